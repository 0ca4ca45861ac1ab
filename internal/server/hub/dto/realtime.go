package dto

import "time"

type SubscribeRequest struct {
	Kind string   `json:"kind" validate:"required" example:"messages"`
	Keys []string `json:"keys" example:"chat-42"`
}

type SubscriptionResponse struct {
	Name   string `json:"name" example:"messages:chat-42"`
	Table  string `json:"table" example:"messages"`
	Filter string `json:"filter,omitempty" example:"chat_id=eq.chat-42"`
}

type RealtimeStatus struct {
	State    string   `json:"state" example:"subscribed"`
	Channels []string `json:"channels"`
}

// RealtimeEvent is one change pushed on the event stream
type RealtimeEvent struct {
	Channel         string         `json:"channel"`
	Kind            string         `json:"kind"`
	Table           string         `json:"table"`
	New             map[string]any `json:"new"`
	Old             map[string]any `json:"old"`
	CommitTimestamp time.Time      `json:"commit_timestamp"`
}
