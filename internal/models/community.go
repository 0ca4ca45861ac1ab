package models

type Topic struct {
	Base
	Name        string `gorm:"column:name;uniqueIndex" json:"name"`
	Description string `gorm:"column:description" json:"description"`
	CreatedBy   string `gorm:"column:created_by" json:"created_by"`
	PostsCount  int    `gorm:"column:posts_count;default:0" json:"posts_count"`
}

func (Topic) TableName() string {
	return "topics"
}

type Space struct {
	Base
	Name         string `gorm:"column:name" json:"name"`
	Description  string `gorm:"column:description" json:"description"`
	CoverURL     string `gorm:"column:cover_url" json:"cover_url"`
	CreatedBy    string `gorm:"column:created_by" json:"created_by"`
	MembersCount int    `gorm:"column:members_count;default:0" json:"members_count"`
}

func (Space) TableName() string {
	return "spaces"
}

type SpaceMember struct {
	Base
	SpaceID string `gorm:"column:space_id;uniqueIndex:idx_space_members_space_user" json:"space_id"`
	UserID  string `gorm:"column:user_id;uniqueIndex:idx_space_members_space_user" json:"user_id"`
	Role    string `gorm:"column:role;default:member" json:"role"`
}

func (SpaceMember) TableName() string {
	return "space_members"
}
