package models

type Post struct {
	Base
	UserID        string   `gorm:"column:user_id;index" json:"user_id"`
	Content       string   `gorm:"column:content" json:"content"`
	ImageURLs     []string `gorm:"column:image_urls;serializer:json" json:"image_urls"`
	TopicID       *string  `gorm:"column:topic_id;index" json:"topic_id,omitempty"`
	SpaceID       *string  `gorm:"column:space_id;index" json:"space_id,omitempty"`
	LikesCount    int      `gorm:"column:likes_count;default:0" json:"likes_count"`
	CommentsCount int      `gorm:"column:comments_count;default:0" json:"comments_count"`
}

func (Post) TableName() string {
	return "posts"
}

type Comment struct {
	Base
	PostID  string `gorm:"column:post_id;index" json:"post_id"`
	UserID  string `gorm:"column:user_id" json:"user_id"`
	Content string `gorm:"column:content" json:"content"`
}

func (Comment) TableName() string {
	return "comments"
}

// Like is unique per (post_id, user_id).
type Like struct {
	Base
	PostID string `gorm:"column:post_id;uniqueIndex:idx_likes_post_user" json:"post_id"`
	UserID string `gorm:"column:user_id;uniqueIndex:idx_likes_post_user" json:"user_id"`
}

func (Like) TableName() string {
	return "likes"
}

// LikeToggle is the outcome of the toggle_like procedure.
type LikeToggle struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likes_count"`
}
