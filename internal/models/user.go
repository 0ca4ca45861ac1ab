package models

import "time"

// Profile is the public row of a user, keyed by the identity user id.
type Profile struct {
	ID             string    `gorm:"primaryKey;column:id" json:"id,omitempty"`
	Email          string    `gorm:"column:email" json:"email"`
	Username       string    `gorm:"column:username;uniqueIndex" json:"username"`
	FullName       string    `gorm:"column:full_name" json:"full_name"`
	AvatarURL      string    `gorm:"column:avatar_url" json:"avatar_url"`
	Bio            string    `gorm:"column:bio" json:"bio"`
	Location       string    `gorm:"column:location" json:"location"`
	FollowersCount int       `gorm:"column:followers_count;default:0" json:"followers_count"`
	FollowingCount int       `gorm:"column:following_count;default:0" json:"following_count"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at,omitzero"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at,omitzero"`
}

func (Profile) TableName() string {
	return "users"
}

// ProfileUpdate holds the profile fields a user may change. Nil fields are
// left untouched.
type ProfileUpdate struct {
	Username  *string `json:"username,omitempty" validate:"omitempty,username"`
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,max=100"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	Location  *string `json:"location,omitempty" validate:"omitempty,max=100"`
}

// Fields returns the set columns.
func (u ProfileUpdate) Fields() map[string]any {
	fields := make(map[string]any)
	if u.Username != nil {
		fields["username"] = *u.Username
	}
	if u.FullName != nil {
		fields["full_name"] = *u.FullName
	}
	if u.AvatarURL != nil {
		fields["avatar_url"] = *u.AvatarURL
	}
	if u.Bio != nil {
		fields["bio"] = *u.Bio
	}
	if u.Location != nil {
		fields["location"] = *u.Location
	}
	return fields
}
