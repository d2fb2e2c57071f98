package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mark3labs/swaggerview/internal/spec"
)

// ErrorCode is the machine-readable code carried by the error envelope.
type ErrorCode string

const (
	CodeInvalidArgument      ErrorCode = "invalid_argument"
	CodePermissionDenied     ErrorCode = "permission_denied"
	CodeUnsupportedMediaType ErrorCode = "unsupported_media_type"
	CodeParseFailed          ErrorCode = "parse_failed"
	CodeBadGateway           ErrorCode = "bad_gateway"
	CodePayloadTooLarge      ErrorCode = "payload_too_large"
	CodeCanceled             ErrorCode = "canceled"
	CodeDeadlineExceeded     ErrorCode = "deadline_exceeded"
	CodeInternal             ErrorCode = "internal"
)

// Error is the JSON error envelope.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithDetail returns a copy of e with key set in its details.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Code: e.Code, Message: e.Message, Details: details}
}

// HTTPStatus maps an ErrorCode to an HTTP status code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeUnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	case CodeParseFailed:
		return http.StatusUnprocessableEntity
	case CodeBadGateway:
		return http.StatusBadGateway
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeCanceled:
		return 499 // Client Closed Request (Nginx standard)
	case CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// toError maps loader, parser and validation failures onto the envelope.
func toError(err error) *Error {
	if err == nil {
		return nil
	}

	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}

	if errors.Is(err, spec.ErrUnsupported) {
		return NewError(CodeUnsupportedMediaType, "unsupported descriptor: only Swagger 2.0 documents can be rendered")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(CodeDeadlineExceeded, "request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return NewError(CodeCanceled, "context canceled")
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return NewError(CodePayloadTooLarge, fmt.Sprintf("descriptor exceeds %d bytes", tooLarge.Limit))
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		details := make(map[string]any)
		messages := make([]string, 0, len(valErrs))
		for _, ve := range valErrs {
			msg := formatValidationError(ve)
			details[ve.Field()] = msg
			messages = append(messages, ve.Field()+": "+msg)
		}
		return &Error{Code: CodeInvalidArgument, Message: strings.Join(messages, "; "), Details: details}
	}

	var se *spec.SpecError
	if errors.As(err, &se) {
		var out *Error
		switch se.Code {
		case spec.NetworkError:
			out = NewError(CodeBadGateway, se.Message)
		case spec.InputError:
			out = NewError(CodeInvalidArgument, se.Message)
		default:
			out = NewError(CodeParseFailed, se.Message)
		}
		if se.Location != "" {
			out = out.WithDetail("location", se.Location)
		}
		if se.JSONPointer != "" {
			out = out.WithDetail("pointer", se.JSONPointer)
		}
		return out
	}

	return NewError(CodeInternal, err.Error())
}

func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", ve.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "http_url":
		return "must be an http or https URL"
	case "hostname_port":
		return "must be a host:port address"
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}

type response struct {
	Result any `json:"result"`
}

type errorResponse struct {
	Error *Error `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func writeError(w http.ResponseWriter, svcErr *Error, logger *slog.Logger) {
	if err := writeJSON(w, svcErr.Code.HTTPStatus(), errorResponse{Error: svcErr}); err != nil {
		// Headers already sent, nothing we can do. Log for debugging.
		logger.Error("failed to encode error response",
			slog.String("code", string(svcErr.Code)),
			slog.String("message", svcErr.Message),
			slog.Any("error", err))
	}
}
