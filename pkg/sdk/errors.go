package sdk

import "fmt"

// APIError is a non-200 response from the matcher API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("matcher API: %d: %s", e.StatusCode, e.Message)
}
