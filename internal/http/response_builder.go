package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"saku/internal/core"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Data sets the value encoded as the response body.
func (b *JSONResponseBuilder) Data(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response. A 204 carries no body.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.statusCode == http.StatusNoContent || b.payload == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	body, err := json.Marshal(b.payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"internal","message":"failed to encode response"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(body, '\n'))
}

// errorBody is the envelope of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

const (
	codeBadRequest   = "bad_request"
	codeUnauthorized = "unauthorized"
	codeValidation   = "validation"
	codeNotFound     = "not_found"
	codeConflict     = "conflict"
	codeStorage      = "storage_unavailable"
	codeInternal     = "internal"
)

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) (int, string) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity, codeValidation
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, codeConflict
	case errors.Is(err, core.ErrStorage):
		return http.StatusServiceUnavailable, codeStorage
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// ErrorResponse builds the response for err. Storage and internal failures
// are not described to the client.
func ErrorResponse(err error) *JSONResponseBuilder {
	status, code := statusFor(err)
	detail := errorDetail{Code: code}

	var verr *core.ValidationError
	var nf *core.NotFoundError
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		detail.Message = reqErr.msg
	case errors.As(err, &verr):
		detail.Message = verr.Error()
		detail.Field = verr.Field
	case errors.As(err, &nf):
		detail.Message = nf.Error()
	case status == http.StatusConflict:
		detail.Message = "the request collided with a concurrent update, retry later"
	case status == http.StatusServiceUnavailable:
		detail.Message = "storage is temporarily unavailable"
	default:
		detail.Message = "internal error"
	}

	b := NewJSONResponse().Status(status).Data(errorBody{Error: detail})
	if status == http.StatusConflict || status == http.StatusServiceUnavailable {
		b.Header("Retry-After", "1")
	}
	return b
}

// MessageResponse builds an error envelope with an explicit status.
func MessageResponse(status int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(status).Data(errorBody{Error: errorDetail{Code: code, Message: message}})
}
