package dto

import "time"

type PageQuery struct {
	Limit  int `query:"limit" validate:"gte=0,lte=100"`
	Offset int `query:"offset" validate:"gte=0"`
}

type FeedQuery struct {
	PageQuery
	TopicID string `query:"topic_id"`
	SpaceID string `query:"space_id"`
}

type CreatePostRequest struct {
	Content   string   `json:"content" validate:"max=5000" example:"First post"`
	ImageURLs []string `json:"image_urls" validate:"max=10,dive,url"`
	TopicID   *string  `json:"topic_id,omitempty"`
	SpaceID   *string  `json:"space_id,omitempty"`
}

type CommentRequest struct {
	Content string `json:"content" validate:"required,max=2000" example:"Nice!"`
}

type ListingQuery struct {
	PageQuery
	Category string `query:"category"`
	Search   string `query:"q"`
}

type CreateListingRequest struct {
	Title       string   `json:"title" validate:"required,max=120" example:"Road bike"`
	Description string   `json:"description" validate:"max=5000"`
	Price       float64  `json:"price" validate:"gte=0" example:"250"`
	Category    string   `json:"category" validate:"required,max=50" example:"sports"`
	Condition   string   `json:"condition" validate:"omitempty,oneof=new like_new good fair poor"`
	Location    string   `json:"location" validate:"max=100"`
	ImageURLs   []string `json:"image_urls" validate:"max=10,dive,url"`
}

type CreateDealRequest struct {
	Title           string     `json:"title" validate:"required,max=120"`
	Description     string     `json:"description" validate:"max=2000"`
	DiscountPercent int        `json:"discount_percent" validate:"gte=0,lte=100"`
	ListingID       *string    `json:"listing_id,omitempty"`
	ImageURL        string     `json:"image_url" validate:"omitempty,url"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

type CreateTopicRequest struct {
	Name        string `json:"name" validate:"required,max=50" example:"gardening"`
	Description string `json:"description" validate:"max=500"`
}

type CreateSpaceRequest struct {
	Name        string `json:"name" validate:"required,max=80" example:"Balcony growers"`
	Description string `json:"description" validate:"max=1000"`
	CoverURL    string `json:"cover_url" validate:"omitempty,url"`
}

type DirectChatRequest struct {
	UserID string `json:"user_id" validate:"required" example:"6a1f0c2e-3d7b-4f55-9a8c-1e2d3c4b5a69"`
}

type SendMessageRequest struct {
	Content  string `json:"content" validate:"max=4000" example:"hello"`
	ImageURL string `json:"image_url" validate:"omitempty,url"`
}

type MarkNotificationsRequest struct {
	ID string `json:"id"`
}

type CountResponse struct {
	Count int `json:"count"`
}
