package dto

type RemoveMediaRequest struct {
	Paths []string `json:"paths" validate:"required,min=1,dive,required"`
}

type DeriveURLsQuery struct {
	ContentID string `query:"content_id" validate:"required"`
	Category  string `query:"category" validate:"required,oneof=AVATAR POST LISTING avatar post listing"`
}

type DerivedURLsResponse struct {
	ContentID string            `json:"content_id"`
	Category  string            `json:"category"`
	URLs      map[string]string `json:"urls"`
}
