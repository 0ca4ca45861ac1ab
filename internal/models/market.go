package models

import "time"

type Listing struct {
	Base
	UserID      string   `gorm:"column:user_id;index" json:"user_id"`
	Title       string   `gorm:"column:title" json:"title"`
	Description string   `gorm:"column:description" json:"description"`
	Price       float64  `gorm:"column:price" json:"price"`
	Category    string   `gorm:"column:category;index" json:"category"`
	Condition   string   `gorm:"column:condition" json:"condition"`
	Location    string   `gorm:"column:location" json:"location"`
	ImageURLs   []string `gorm:"column:image_urls;serializer:json" json:"image_urls"`
	Status      string   `gorm:"column:status;default:active" json:"status"`
}

func (Listing) TableName() string {
	return "listings"
}

type Deal struct {
	Base
	UserID          string     `gorm:"column:user_id;index" json:"user_id"`
	ListingID       *string    `gorm:"column:listing_id" json:"listing_id,omitempty"`
	Title           string     `gorm:"column:title" json:"title"`
	Description     string     `gorm:"column:description" json:"description"`
	DiscountPercent int        `gorm:"column:discount_percent" json:"discount_percent"`
	ImageURL        string     `gorm:"column:image_url" json:"image_url"`
	ExpiresAt       *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
}

func (Deal) TableName() string {
	return "deals"
}
