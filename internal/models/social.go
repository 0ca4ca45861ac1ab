package models

type Follower struct {
	Base
	FollowerID  string `gorm:"column:follower_id;uniqueIndex:idx_followers_pair" json:"follower_id"`
	FollowingID string `gorm:"column:following_id;uniqueIndex:idx_followers_pair;index" json:"following_id"`
}

func (Follower) TableName() string {
	return "followers"
}

type Notification struct {
	Base
	UserID   string `gorm:"column:user_id;index" json:"user_id"`
	ActorID  string `gorm:"column:actor_id" json:"actor_id"`
	Type     string `gorm:"column:type" json:"type"`
	EntityID string `gorm:"column:entity_id" json:"entity_id"`
	Body     string `gorm:"column:body" json:"body"`
	Read     bool   `gorm:"column:read;default:false" json:"read"`
}

func (Notification) TableName() string {
	return "notifications"
}
