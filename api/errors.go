package api

import (
	"fmt"
	"net/http"
)

// ResponseError means the server answered with a non-2xx status.
type ResponseError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Header     http.Header
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s %s: server responded %d", e.Method, e.URL, e.StatusCode)
}

// TransportError means the request was sent but no response came back.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: no response: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RequestError means the request could not be built.
type RequestError struct {
	Operation string
	Err       error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: building request: %v", e.Operation, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// DecodeError means the server answered 2xx with a body that is not the expected JSON.
type DecodeError struct {
	Method     string
	URL        string
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s %s: decoding %d response: %v", e.Method, e.URL, e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
