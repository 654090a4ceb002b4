package schema

import "errors"

// Error codes carried by FieldError envelopes.
const (
	CodeRequired      = "required"
	CodeTypeMismatch  = "type_mismatch"
	CodeEnumInvalid   = "enum_invalid"
	CodeCheckFailed   = "check_failed"
	CodeRuleViolation = "rule_violation"
	CodeReadOnly      = "readonly_field"
	CodeUnknownField  = "unknown_field"
)

// FieldError is a recoverable, per-field validation failure. Field holds the
// dotted path the error is attached to.
type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func ferr(code, field, msg string) FieldError {
	return FieldError{Code: code, Field: field, Message: msg}
}

// Build-time errors. These are fatal and raised once, when a field or entity
// definition is assembled — never during rendering.
var (
	ErrDuplicateFieldKey           = errors.New("duplicate field key")
	ErrDanglingVisibilityReference = errors.New("visibility rule references unknown field")
	ErrUseAfterBuild               = errors.New("field builder used after build")
)

// checkError is a validator failure that knows its error code.
type checkError struct {
	code string
	msg  string
}

func (e *checkError) Error() string { return e.msg }

func codeOf(err error) string {
	var ce *checkError
	if errors.As(err, &ce) {
		return ce.code
	}
	return CodeTypeMismatch
}
