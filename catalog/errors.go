package catalog

import "fmt"

// NetworkError indicates a request that failed outright or came back with a
// non-2xx status.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ParseError indicates expected page structure was absent where extraction
// has no safe default.
type ParseError struct {
	URL  string
	What string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s: %v", e.URL, e.What, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
