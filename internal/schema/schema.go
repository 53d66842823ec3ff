// Package schema implements a declarative request-shape validator. An
// Object describes the fields an endpoint accepts; Validate walks a decoded
// JSON body against it and collects every violation rather than stopping at
// the first, so clients see the full list in one round trip. Fields not
// declared in the shape are rejected unless the object opts out.
package schema

import (
	"encoding/base64"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Kind 标识字段的基本类型。
type Kind int

const (
	String Kind = iota
	Number
	Date
	Array
)

// ImageRule bounds a base64 data-URI image field. The same rule applies
// whether the value arrived as JSON or was materialized from a multipart
// upload, so the size ceiling holds on every path.
type ImageRule struct {
	AllowedMIME []string
	MaxBytes    int64
}

// Field describes one accepted input field.
type Field struct {
	Name     string
	Kind     Kind
	Required bool

	// String rules.
	AllowEmpty     bool
	MinLen         int
	MaxLen         int
	Pattern        *regexp.Regexp
	PatternMessage string
	Enum           []string
	Email          bool
	Image          *ImageRule

	// Number rules.
	Min *float64
	Max *float64

	// Date rules. NotBefore names a sibling date field the value must not
	// precede; NotAfterNow forbids future dates. Null is legal when
	// AllowNull is set.
	AllowNull   bool
	NotBefore   string
	NotAfterNow bool

	// Array rules. Exactly one of Elem (object elements) or ElemKind
	// (scalar elements) applies.
	MinItems int
	MaxItems int
	Elem     *Object
	ElemKind Kind

	// Ignored fields are tolerated on input and silently discarded, such
	// as client-supplied child identifiers on a full-replace update.
	Ignored bool
}

// Object is the shape of one request body or nested array element.
type Object struct {
	Fields       []Field
	AllowUnknown bool
}

// Validate checks value against the shape and returns every violation as a
// human-readable message, in field order. Ignored fields are removed from
// the map as a side effect so later binding never sees them.
func (o *Object) Validate(value map[string]any) []string {
	var msgs []string
	o.validate("", value, &msgs)
	return msgs
}

func (o *Object) validate(prefix string, value map[string]any, msgs *[]string) {
	declared := make(map[string]bool, len(o.Fields))
	for i := range o.Fields {
		f := &o.Fields[i]
		declared[f.Name] = true
		if f.Ignored {
			delete(value, f.Name)
			continue
		}
		raw, present := value[f.Name]
		label := quote(prefix + f.Name)
		if !present || raw == nil {
			if raw == nil && present && f.AllowNull {
				continue
			}
			if f.Required {
				*msgs = append(*msgs, label+" is required")
			}
			continue
		}
		f.check(prefix, label, raw, value, msgs)
	}

	if !o.AllowUnknown {
		var unknown []string
		for name := range value {
			if !declared[name] {
				unknown = append(unknown, quote(prefix+name)+" is not allowed")
			}
		}
		sort.Strings(unknown)
		*msgs = append(*msgs, unknown...)
	}
}

func (f *Field) check(prefix, label string, raw any, parent map[string]any, msgs *[]string) {
	switch f.Kind {
	case String:
		f.checkString(label, raw, msgs)
	case Number:
		f.checkNumber(label, raw, msgs)
	case Date:
		f.checkDate(label, raw, parent, msgs)
	case Array:
		f.checkArray(prefix, label, raw, msgs)
	default:
		panic(fmt.Sprintf("schema: unknown kind %d for field %s", f.Kind, f.Name))
	}
}

func (f *Field) checkString(label string, raw any, msgs *[]string) {
	s, ok := raw.(string)
	if !ok {
		*msgs = append(*msgs, label+" must be a string")
		return
	}
	if s == "" {
		if !f.AllowEmpty {
			*msgs = append(*msgs, label+" is not allowed to be empty")
		}
		return
	}
	if f.MinLen > 0 && len(s) < f.MinLen {
		*msgs = append(*msgs, fmt.Sprintf("%s length must be at least %d characters long", label, f.MinLen))
	}
	if f.MaxLen > 0 && len(s) > f.MaxLen {
		*msgs = append(*msgs, fmt.Sprintf("%s length must be less than or equal to %d characters long", label, f.MaxLen))
	}
	if f.Email && !emailPattern.MatchString(s) {
		*msgs = append(*msgs, label+" must be a valid email")
	}
	if f.Pattern != nil && !f.Pattern.MatchString(s) {
		msg := f.PatternMessage
		if msg == "" {
			msg = label + " fails to match the required pattern"
		}
		*msgs = append(*msgs, msg)
	}
	if len(f.Enum) > 0 && !contains(f.Enum, s) {
		*msgs = append(*msgs, fmt.Sprintf("%s must be one of [%s]", label, strings.Join(f.Enum, ", ")))
	}
	if f.Image != nil {
		f.checkImage(label, s, msgs)
	}
}

func (f *Field) checkNumber(label string, raw any, msgs *[]string) {
	n, ok := raw.(float64)
	if !ok {
		*msgs = append(*msgs, label+" must be a number")
		return
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		*msgs = append(*msgs, label+" must be a finite number")
		return
	}
	if f.Min != nil && n < *f.Min {
		*msgs = append(*msgs, fmt.Sprintf("%s must be greater than or equal to %g", label, *f.Min))
	}
	if f.Max != nil && n > *f.Max {
		*msgs = append(*msgs, fmt.Sprintf("%s must be less than or equal to %g", label, *f.Max))
	}
}

func (f *Field) checkDate(label string, raw any, parent map[string]any, msgs *[]string) {
	t, ok := parseDate(raw)
	if !ok {
		*msgs = append(*msgs, label+" must be a valid date")
		return
	}
	if f.NotAfterNow && t.After(time.Now()) {
		*msgs = append(*msgs, label+" must be less than or equal to now")
	}
	if f.NotBefore != "" {
		if ref, ok := parseDate(parent[f.NotBefore]); ok && t.Before(ref) {
			*msgs = append(*msgs, fmt.Sprintf("%s must be greater than or equal to %s", label, quote(f.NotBefore)))
		}
	}
}

func (f *Field) checkArray(prefix, label string, raw any, msgs *[]string) {
	list, ok := raw.([]any)
	if !ok {
		*msgs = append(*msgs, label+" must be an array")
		return
	}
	if f.MinItems > 0 && len(list) < f.MinItems {
		*msgs = append(*msgs, fmt.Sprintf("%s must contain at least %d items", label, f.MinItems))
	}
	if f.MaxItems > 0 && len(list) > f.MaxItems {
		*msgs = append(*msgs, fmt.Sprintf("%s must contain less than or equal to %d items", label, f.MaxItems))
	}
	for i, elem := range list {
		elemPath := fmt.Sprintf("%s%s[%d]", prefix, f.Name, i)
		if f.Elem != nil {
			obj, ok := elem.(map[string]any)
			if !ok {
				*msgs = append(*msgs, quote(elemPath)+" must be an object")
				continue
			}
			f.Elem.validate(elemPath+".", obj, msgs)
			continue
		}
		elemField := Field{Name: f.Name, Kind: f.ElemKind, AllowEmpty: f.AllowEmpty}
		elemField.check(prefix, quote(elemPath), elem, nil, msgs)
	}
}

// checkImage validates a data:<mime>;base64,<payload> string against the
// MIME allow-list and the decoded size ceiling.
func (f *Field) checkImage(label string, s string, msgs *[]string) {
	rule := f.Image
	mime, payload, ok := splitDataURI(s)
	if !ok || !contains(rule.AllowedMIME, mime) {
		*msgs = append(*msgs, label+" must be a JPEG/PNG/WEBP base64 data URI")
		return
	}
	// Reject on the encoded length first so oversized payloads are never
	// decoded just to be refused.
	if rule.MaxBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(payload))) > rule.MaxBytes+3 {
		*msgs = append(*msgs, fmt.Sprintf("%s must decode to at most %d bytes", label, rule.MaxBytes))
		return
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		*msgs = append(*msgs, label+" must contain valid base64 image data")
		return
	}
	if rule.MaxBytes > 0 && int64(len(decoded)) > rule.MaxBytes {
		*msgs = append(*msgs, fmt.Sprintf("%s must decode to at most %d bytes", label, rule.MaxBytes))
	}
}

func splitDataURI(s string) (mime, payload string, ok bool) {
	rest, found := strings.CutPrefix(s, "data:")
	if !found {
		return "", "", false
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", "", false
	}
	mime, found = strings.CutSuffix(meta, ";base64")
	if !found || mime == "" {
		return "", "", false
	}
	return mime, payload, true
}

func parseDate(raw any) (time.Time, bool) {
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, false
	}
	return ParseDate(s)
}

// ParseDate accepts the date layouts the validator accepts, so handlers
// can re-parse validated fields without drifting from the schema rules.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func quote(s string) string { return `"` + s + `"` }

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
