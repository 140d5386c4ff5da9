package entity

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the ISO layout expiry dates are stored and typed in.
const DateLayout = "2006-01-02"

// Medicine one record of a user's medicine cabinet
type Medicine struct {
	ID       string `bson:"_id" json:"id"`
	Owner    int64  `bson:"added_by" json:"owner"`
	Name     string `bson:"name" json:"name"`
	NameKey  string `bson:"name_lower" json:"name_key"`
	Quantity string `bson:"quantity" json:"quantity"`
	Notes    string `bson:"notes" json:"notes"`
	ExpDate  string `bson:"exp_date" json:"exp_date"` // YYYY-MM-DD
}

// Field editable medicine field
type Field string

const (
	FieldName     Field = "name"
	FieldQuantity Field = "quantity"
	FieldNotes    Field = "notes"
	FieldExpDate  Field = "exp_date"
)

// Fields in the order they are offered for editing.
var Fields = []Field{FieldName, FieldQuantity, FieldNotes, FieldExpDate}

// Valid reports whether f is one of the editable fields.
func (f Field) Valid() bool {
	switch f {
	case FieldName, FieldQuantity, FieldNotes, FieldExpDate:
		return true
	}
	return false
}

// Label human readable (Russian) field name used in prompts.
func (f Field) Label() string {
	switch f {
	case FieldName:
		return "название"
	case FieldQuantity:
		return "количество"
	case FieldNotes:
		return "примечания"
	case FieldExpDate:
		return "срок годности"
	}
	return string(f)
}

// MedicineUpdate partial update; nil fields are left untouched.
type MedicineUpdate struct {
	Name     *string
	NameKey  *string
	Quantity *string
	Notes    *string
	ExpDate  *string
}

// IsEmpty reports whether the update sets nothing.
func (u MedicineUpdate) IsEmpty() bool {
	return u.Name == nil && u.NameKey == nil && u.Quantity == nil && u.Notes == nil && u.ExpDate == nil
}

// Apply writes the set fields into m and reports whether any value changed.
func (u MedicineUpdate) Apply(m *Medicine) bool {
	changed := false
	set := func(dst *string, v *string) {
		if v != nil && *dst != *v {
			*dst = *v
			changed = true
		}
	}
	set(&m.Name, u.Name)
	set(&m.NameKey, u.NameKey)
	set(&m.Quantity, u.Quantity)
	set(&m.Notes, u.Notes)
	set(&m.ExpDate, u.ExpDate)
	return changed
}

// UpdateFor builds an update that sets a single field to value.
// Renames also recompute the name key.
func UpdateFor(field Field, value string) MedicineUpdate {
	var u MedicineUpdate
	switch field {
	case FieldName:
		key := NameKey(value)
		u.Name = &value
		u.NameKey = &key
	case FieldQuantity:
		u.Quantity = &value
	case FieldNotes:
		u.Notes = &value
	case FieldExpDate:
		u.ExpDate = &value
	}
	return u
}

var spaceRun = regexp.MustCompile(`\s+`)

// NameKey case-folded form of a medicine name used for uniqueness and search.
func NameKey(name string) string {
	return strings.ToLower(spaceRun.ReplaceAllString(strings.TrimSpace(name), " "))
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ParseDate parses a strict YYYY-MM-DD date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if !datePattern.MatchString(s) {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today start of the current day in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	n := now.In(loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
}
