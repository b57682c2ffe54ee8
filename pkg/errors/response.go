package errors

import "time"

// Response is the JSON body written for every failed request.
type Response struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Timestamp string `json:"timestamp"`
}

var now = time.Now

func NewResponse(code, message string) Response {
	return Response{
		Success:   false,
		Error:     message,
		Code:      code,
		Timestamp: now().UTC().Format(time.RFC3339),
	}
}
