package supabase

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrConflict     = errors.New("supabase: conflict")
	ErrNotFound     = errors.New("supabase: not found")
	ErrUnauthorized = errors.New("supabase: unauthorized")
)

// APIError is a failed collaborator call.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase error %d: %s", e.Status, e.Message)
}

// Is matches the package sentinels by status and PostgREST / storage codes.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrConflict:
		// 23505 unique_violation; storage reports duplicates as 409 or "Duplicate"
		return e.Status == http.StatusConflict || e.Code == "23505" || e.Code == "Duplicate"
	case ErrNotFound:
		// PGRST116: singular response requested but zero rows returned
		return e.Status == http.StatusNotFound || e.Code == "PGRST116"
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden ||
			e.Code == "invalid_grant" || e.Code == "PGRST301"
	}
	return false
}

func parseAPIError(status int, body []byte) error {
	var payload struct {
		Code             any    `json:"code"`
		ErrorCode        string `json:"error_code"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		StatusCode       string `json:"statusCode"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(body, &payload); err != nil {
		apiErr.Message = http.StatusText(status)
		return apiErr
	}

	apiErr.Code = payload.ErrorCode
	if apiErr.Code == "" {
		switch code := payload.Code.(type) {
		case string:
			apiErr.Code = code
		case float64:
			apiErr.Code = fmt.Sprintf("%d", int(code))
		}
	}
	if apiErr.Code == "" && payload.Error != "" && payload.ErrorDescription != "" {
		apiErr.Code = payload.Error
	}

	for _, m := range []string{payload.Message, payload.Msg, payload.ErrorDescription, payload.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	// storage API nests the HTTP status as a string and reports duplicates with error "Duplicate"
	if apiErr.Code == "" && payload.Error == "Duplicate" {
		apiErr.Code = "Duplicate"
	}
	return apiErr
}
