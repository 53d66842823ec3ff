package api

import (
	"regexp"

	"menufolio/internal/schema"
)

// Endpoint shapes. Each handler is paired with one of these through the
// ValidateRequest middleware; the shapes collect every violation and
// reject undeclared fields, so handlers can bind without re-checking.

// Letters-and-digits without lookahead: a letter somewhere before a digit,
// or a digit somewhere before a letter.
var passwordPattern = regexp.MustCompile(`[A-Za-z].*[0-9]|[0-9].*[A-Za-z]`)

const passwordPatternMessage = "Password must contain letters and numbers"

// SkillLevels enumerates the accepted proficiency values.
var SkillLevels = []string{"Beginner", "Intermediate", "Expert"}

func signupSchema() *schema.Object {
	return &schema.Object{Fields: []schema.Field{
		{Name: "email", Kind: schema.String, Required: true, Email: true},
		{Name: "password", Kind: schema.String, Required: true, MinLen: 8, Pattern: passwordPattern, PatternMessage: passwordPatternMessage},
		{Name: "name", Kind: schema.String, AllowEmpty: true},
	}}
}

func loginSchema() *schema.Object {
	return &schema.Object{Fields: []schema.Field{
		{Name: "email", Kind: schema.String, Required: true, Email: true},
		{Name: "password", Kind: schema.String, Required: true},
	}}
}

// menuSchema describes the full menu tree. Creation demands at least one
// section; updates accept an empty list because a full-replace update with
// zero sections is how a client clears a menu out.
func menuSchema(requireSections bool, maxImageBytes int64) *schema.Object {
	minSections := 0
	if requireSections {
		minSections = 1
	}
	return &schema.Object{Fields: []schema.Field{
		{Name: "name", Kind: schema.String, Required: true},
		{Name: "description", Kind: schema.String, AllowEmpty: true},
		{Name: "location", Kind: schema.String, AllowEmpty: true},
		{Name: "contact", Kind: schema.String, AllowEmpty: true},
		{Name: "sections", Kind: schema.Array, Required: requireSections, MinItems: minSections, MaxItems: 10, Elem: sectionSchema(maxImageBytes)},
		// A multipart submission materializes its uploaded file as a
		// top-level image value; images live on items, so it is tolerated
		// here and dropped.
		{Name: "image", Kind: schema.String, Ignored: true},
	}}
}

func sectionSchema(maxImageBytes int64) *schema.Object {
	return &schema.Object{Fields: []schema.Field{
		{Name: "name", Kind: schema.String, Required: true},
		{Name: "position", Kind: schema.Number, Min: f64(0)},
		{Name: "items", Kind: schema.Array, Required: true, MinItems: 1, MaxItems: 20, Elem: itemSchema(maxImageBytes)},
		{Name: "id", Kind: schema.Number, Ignored: true},
		{Name: "menuId", Kind: schema.Number, Ignored: true},
	}}
}

func itemSchema(maxImageBytes int64) *schema.Object {
	return &schema.Object{Fields: []schema.Field{
		{Name: "name", Kind: schema.String, Required: true},
		{Name: "description", Kind: schema.String, AllowEmpty: true},
		{Name: "ingredients", Kind: schema.Array, Required: true, MinItems: 1, MaxItems: 10, ElemKind: schema.String},
		{Name: "image", Kind: schema.String, Image: &schema.ImageRule{
			AllowedMIME: []string{"image/jpeg", "image/png", "image/webp"},
			MaxBytes:    maxImageBytes,
		}},
		{Name: "id", Kind: schema.Number, Ignored: true},
		{Name: "sectionId", Kind: schema.Number, Ignored: true},
	}}
}

func resumeSchema() *schema.Object {
	return &schema.Object{Fields: []schema.Field{
		{Name: "title", Kind: schema.String, Required: true},
		{Name: "summary", Kind: schema.String, AllowEmpty: true},
		{Name: "experiences", Kind: schema.Array, Elem: experienceSchema()},
		{Name: "educations", Kind: schema.Array, Elem: educationSchema()},
		{Name: "skills", Kind: schema.Array, Elem: skillSchema()},
	}}
}

func experienceSchema() *schema.Object {
	return &schema.Object{Fields: []schema.Field{
		{Name: "company", Kind: schema.String, Required: true},
		{Name: "position", Kind: schema.String, Required: true},
		{Name: "startDate", Kind: schema.Date, Required: true, NotAfterNow: true},
		{Name: "endDate", Kind: schema.Date, AllowNull: true, NotBefore: "startDate"},
		{Name: "description", Kind: schema.String, AllowEmpty: true},
		{Name: "id", Kind: schema.Number, Ignored: true},
		{Name: "resumeId", Kind: schema.Number, Ignored: true},
	}}
}

func educationSchema() *schema.Object {
	return &schema.Object{Fields: []schema.Field{
		{Name: "institution", Kind: schema.String, Required: true},
		{Name: "degree", Kind: schema.String, Required: true},
		{Name: "field", Kind: schema.String, Required: true},
		{Name: "startDate", Kind: schema.Date, Required: true, NotAfterNow: true},
		{Name: "endDate", Kind: schema.Date, AllowNull: true, NotBefore: "startDate"},
		{Name: "id", Kind: schema.Number, Ignored: true},
		{Name: "resumeId", Kind: schema.Number, Ignored: true},
	}}
}

func skillSchema() *schema.Object {
	return &schema.Object{Fields: []schema.Field{
		{Name: "name", Kind: schema.String, Required: true},
		{Name: "level", Kind: schema.String, Required: true, Enum: SkillLevels},
		{Name: "id", Kind: schema.Number, Ignored: true},
		{Name: "resumeId", Kind: schema.Number, Ignored: true},
	}}
}

func f64(v float64) *float64 { return &v }
