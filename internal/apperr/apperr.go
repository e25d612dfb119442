// Package apperr defines the error taxonomy shared by scrapers, storage,
// resume parsing and the LLM clients. Every error carries a stable code and
// a small context map so front-ends can render it without string matching.
package apperr

import (
	"errors"
	"fmt"
	"maps"
)

// Kind classifies an application error.
type Kind string

const (
	KindNetwork          Kind = "NETWORK_ERROR"
	KindParse            Kind = "PARSE_ERROR"
	KindAIService        Kind = "AI_SERVICE_ERROR"
	KindDatabase         Kind = "DATABASE_ERROR"
	KindConfiguration    Kind = "CONFIGURATION_ERROR"
	KindValidation       Kind = "VALIDATION_ERROR"
	KindResumeProcessing Kind = "RESUME_PROCESSING_ERROR"
	KindUnsupported      Kind = "UNSUPPORTED_FORMAT_ERROR"
)

// Error is an application error with a code and structured context.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// ToMap renders the error for JSON output.
func (e *Error) ToMap() map[string]any {
	m := map[string]any{
		"error_code": string(e.Kind),
		"message":    e.Message,
	}
	if len(e.Context) > 0 {
		ctx := make(map[string]any, len(e.Context))
		maps.Copy(ctx, e.Context)
		m["context"] = ctx
	}
	return m
}

func newErr(kind Kind, msg string, ctx map[string]any, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Context: ctx, Err: cause}
}

// Is reports whether err (or anything it wraps) is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Kind == kind
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Network reports a failed or blocked HTTP exchange. status 0 means no response.
func Network(msg, url string, status int) *Error {
	ctx := map[string]any{}
	if url != "" {
		ctx["url"] = url
	}
	if status != 0 {
		ctx["status_code"] = status
	}
	return newErr(KindNetwork, msg, ctx, nil)
}

// NetworkWrap is Network with an underlying cause.
func NetworkWrap(msg, url string, cause error) *Error {
	e := Network(msg, url, 0)
	e.Err = cause
	return e
}

// Parse reports unreadable or malformed input files.
func Parse(msg, filePath, fileType string) *Error {
	ctx := map[string]any{}
	if filePath != "" {
		ctx["file_path"] = filePath
	}
	if fileType != "" {
		ctx["file_type"] = fileType
	}
	return newErr(KindParse, msg, ctx, nil)
}

// AIService reports a failed LLM call.
func AIService(msg, service, apiCode string) *Error {
	ctx := map[string]any{}
	if service != "" {
		ctx["service"] = service
	}
	if apiCode != "" {
		ctx["api_error_code"] = apiCode
	}
	return newErr(KindAIService, msg, ctx, nil)
}

// Database wraps a storage failure.
func Database(msg string, cause error) *Error {
	return newErr(KindDatabase, msg, nil, cause)
}

// Configuration reports an invalid setting.
func Configuration(msg, key string) *Error {
	ctx := map[string]any{}
	if key != "" {
		ctx["config_key"] = key
	}
	return newErr(KindConfiguration, msg, ctx, nil)
}

// Validation reports invalid user input for a field.
func Validation(msg, field string) *Error {
	ctx := map[string]any{}
	if field != "" {
		ctx["field"] = field
	}
	return newErr(KindValidation, msg, ctx, nil)
}

// Processing wraps a resume processing failure.
func Processing(msg string, cause error) *Error {
	return newErr(KindResumeProcessing, msg, nil, cause)
}

// Unsupported reports a file format that cannot be handled.
func Unsupported(format string) *Error {
	return newErr(KindUnsupported, fmt.Sprintf("不支持的文件格式: %s", format),
		map[string]any{"file_type": format}, nil)
}
