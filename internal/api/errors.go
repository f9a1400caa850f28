package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is returned by every failed call. Status 0 means the request never got
// a response (transport failure); Message holds the backend's detail when it sent one.
type HTTPError struct {
	Status  int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("api: %v", e.Err)
	case e.Err != nil:
		return fmt.Sprintf("api: %d: %v", e.Status, e.Err)
	case e.Message != "":
		return fmt.Sprintf("api: %d %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
}

func (e *HTTPError) Unwrap() error { return e.Err }

// DetailOr returns the backend-provided detail carried by err, or fallback
func DetailOr(err error, fallback string) string {
	var he *HTTPError
	if errors.As(err, &he) && he.Message != "" {
		return he.Message
	}
	return fallback
}

// IsUnauthorized reports whether err is a 401 from the backend
func IsUnauthorized(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Status == http.StatusUnauthorized
}

// errorBody matches FastAPI error payloads; detail is either a string or a list
// of validation errors.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func parseDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return s
	}

	var list []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(eb.Detail, &list); err == nil && len(list) > 0 {
		return list[0].Msg
	}
	return ""
}
