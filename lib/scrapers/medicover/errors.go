package medicover

import (
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrMissingElement is returned when an expected HTML element or
	// attribute is absent from a portal page.
	ErrMissingElement = errors.New("missing html element")
	// ErrMissingField is returned when an expected JSON key is absent.
	ErrMissingField = errors.New("missing json field")
)

// StatusError is returned for any response outside of 2xx, no distinction
// is made between 4xx and 5xx.
type StatusError struct {
	Method     string
	Url        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %s", e.Method, e.Url, e.Status)
}

func checkStatus(res *resty.Response) error {
	if res.IsSuccess() {
		return nil
	}
	url := res.Request.URL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		url = res.RawResponse.Request.URL.String()
	}
	return &StatusError{
		Method:     res.Request.Method,
		Url:        url,
		StatusCode: res.StatusCode(),
		Status:     res.Status(),
	}
}

func missingField(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, name)
}
