package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	pv "github.com/go-playground/validator/v10"
)

// Kind is the structural shape of a validator. The shape drives widget
// selection in the form renderer and column typing in the pg transport.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindDate
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	case KindEnum:
		return "enum"
	default:
		return "string"
	}
}

// leaf runs the tag-based checks (email, min=2, gte=0, ...).
var leaf = pv.New()

// Validator is the per-field validation capability: a shape kind, strict
// coercion, and a chain of leaf checks. Constructed at module load via the
// String/Number/Bool/Date/Enum constructors, then owned by a single field.
type Validator struct {
	kind     Kind
	enum     []string
	optional bool
	nullable bool
	tags     []string
	patterns []*regexp.Regexp
}

func String() *Validator { return &Validator{kind: KindString} }
func Number() *Validator { return &Validator{kind: KindNumber} }
func Bool() *Validator   { return &Validator{kind: KindBool} }
func Date() *Validator   { return &Validator{kind: KindDate} }

func Enum(values ...string) *Validator {
	return &Validator{kind: KindEnum, enum: append([]string(nil), values...)}
}

func (v *Validator) tag(t string) *Validator {
	v.tags = append(v.tags, t)
	return v
}

// Min constrains a number's value or a string's length.
func (v *Validator) Min(n int) *Validator {
	if v.kind == KindNumber {
		return v.tag("gte=" + strconv.Itoa(n))
	}
	return v.tag("min=" + strconv.Itoa(n))
}

func (v *Validator) Max(n int) *Validator {
	if v.kind == KindNumber {
		return v.tag("lte=" + strconv.Itoa(n))
	}
	return v.tag("max=" + strconv.Itoa(n))
}

func (v *Validator) Email() *Validator { return v.tag("email") }

func (v *Validator) Pattern(expr string) *Validator {
	v.patterns = append(v.patterns, regexp.MustCompile(expr))
	return v
}

func (v *Validator) Optional() *Validator {
	v.optional = true
	return v
}

func (v *Validator) Nullable() *Validator {
	v.nullable = true
	return v
}

func (v *Validator) Kind() Kind       { return v.kind }
func (v *Validator) IsOptional() bool { return v.optional }
func (v *Validator) IsNullable() bool { return v.nullable }

func (v *Validator) Enum() []string {
	return append([]string(nil), v.enum...)
}

func (v *Validator) clone() *Validator {
	c := *v
	c.enum = append([]string(nil), v.enum...)
	c.tags = append([]string(nil), v.tags...)
	c.patterns = append([]*regexp.Regexp(nil), v.patterns...)
	return &c
}

// asOptional is used by the update-schema derivation: same checks, but the
// value may be absent.
func (v *Validator) asOptional() *Validator {
	c := v.clone()
	c.optional = true
	return c
}

// Validate coerces value to the kind's canonical form (strict, no silent
// cross-type casts for bools/strings) and runs the leaf checks. Returns the
// normalized value.
func (v *Validator) Validate(value any) (any, error) {
	if value == nil {
		if v.nullable || v.optional {
			return nil, nil
		}
		return nil, &checkError{code: CodeRequired, msg: "must not be null"}
	}
	norm, err := v.coerce(value)
	if err != nil {
		return nil, err
	}
	for _, t := range v.tags {
		if err := leaf.Var(norm, t); err != nil {
			return nil, &checkError{code: CodeCheckFailed, msg: fmt.Sprintf("must satisfy %q", t)}
		}
	}
	for _, re := range v.patterns {
		s, ok := norm.(string)
		if !ok || !re.MatchString(s) {
			return nil, &checkError{code: CodeCheckFailed, msg: "must match " + re.String()}
		}
	}
	return norm, nil
}

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`) // YYYY-MM-DD

func (v *Validator) coerce(value any) (any, error) {
	switch v.kind {
	case KindString:
		return toStringStrict(value)
	case KindNumber:
		return toFloatStrict(value)
	case KindBool:
		return toBoolStrict(value)
	case KindDate:
		s, err := toStringStrict(value)
		if err != nil {
			return nil, err
		}
		if !dateRe.MatchString(s) {
			return nil, &checkError{code: CodeTypeMismatch, msg: "must match YYYY-MM-DD"}
		}
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return nil, &checkError{code: CodeTypeMismatch, msg: "invalid date"}
		}
		return s, nil
	case KindEnum:
		s, err := toStringStrict(value)
		if err != nil {
			return nil, err
		}
		for _, ev := range v.enum {
			if s == ev {
				return s, nil
			}
		}
		return nil, &checkError{code: CodeEnumInvalid, msg: fmt.Sprintf("value '%s' is not allowed", s)}
	default:
		return value, nil
	}
}

func toStringStrict(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", &checkError{code: CodeTypeMismatch, msg: "must be string"}
}

// JSON numbers arrive as float64; integers in Go code are accepted too.
func toFloatStrict(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, &checkError{code: CodeTypeMismatch, msg: "must be number"}
		}
		return f, nil
	default:
		return 0, &checkError{code: CodeTypeMismatch, msg: "must be number"}
	}
}

func toBoolStrict(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "y", "on":
			return true, nil
		case "false", "0", "no", "n", "off":
			return false, nil
		}
		return false, &checkError{code: CodeTypeMismatch, msg: "must be boolean"}
	default:
		return false, &checkError{code: CodeTypeMismatch, msg: "must be boolean"}
	}
}
