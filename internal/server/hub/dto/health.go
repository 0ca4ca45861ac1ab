package dto

type HealthCheckResponse struct {
	Status   string `json:"status" example:"healthy"`
	Backend  string `json:"backend" example:"remote"`
	SignedIn bool   `json:"signed_in" example:"true"`
	Realtime string `json:"realtime" example:"subscribed"`
	Channels int    `json:"channels" example:"3"`
}
