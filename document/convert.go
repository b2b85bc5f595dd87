package document

import (
	"strings"

	"github.com/google/uuid"
)

// ObjectConverter walks the fields of an object datum, remembering which
// keys were consumed so that unknown keys can be reported afterwards.
type ObjectConverter struct {
	datum  Datum
	unused map[string]struct{}
}

// NewObjectConverter fails if d is not an object
func NewObjectConverter(d Datum) (*ObjectConverter, *ConversionError) {
	if d.Kind() != KindObject {
		return nil, Errorf("Expected an object; got %s.", d.Print())
	}
	unused := make(map[string]struct{}, d.Len())
	for _, k := range d.Keys() {
		unused[k] = struct{}{}
	}
	return &ObjectConverter{datum: d, unused: unused}, nil
}

// Get returns the field named key and marks it as consumed
func (c *ObjectConverter) Get(key string) (Datum, *ConversionError) {
	v, ok := c.datum.Field(key)
	if !ok {
		return Datum{}, Errorf("Expected a field named `%s`.", key)
	}
	delete(c.unused, key)
	return v, nil
}

// CheckNoExtraKeys fails if any field was never read with Get
func (c *ObjectConverter) CheckNoExtraKeys() *ConversionError {
	if len(c.unused) == 0 {
		return nil
	}
	extra := make([]string, 0, len(c.unused))
	for _, k := range c.datum.Keys() {
		if _, ok := c.unused[k]; ok {
			extra = append(extra, "`"+k+"`")
		}
	}
	return Errorf("Unexpected key(s) %s.", strings.Join(extra, ", "))
}

// ValidName reports whether s is a legal short identifier
func ValidName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// ConvertName decodes a name string. what describes the name in messages,
// e.g. "server name" or "server tag".
func ConvertName(d Datum, what string) (string, *ConversionError) {
	s, ok := d.AsString()
	if !ok {
		return "", Errorf("Expected a %s; got %s.", what, d.Print())
	}
	if !ValidName(s) {
		return "", Errorf("Invalid %s %s. Use A-Z, a-z, 0-9, _ and - only.", what, d.Print())
	}
	return s, nil
}

// NameToDatum is the inverse of ConvertName
func NameToDatum(name string) Datum {
	return String(name)
}

// ConvertUUID decodes a UUID in canonical 8-4-4-4-12 form
func ConvertUUID(d Datum) (uuid.UUID, *ConversionError) {
	s, ok := d.AsString()
	if !ok {
		return uuid.Nil, Errorf("Expected a UUID; got %s.", d.Print())
	}
	if len(s) != 36 {
		return uuid.Nil, Errorf("Expected a UUID; got %s.", d.Print())
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, Errorf("Expected a UUID; got %s.", d.Print())
	}
	return id, nil
}

// UUIDToDatum is the inverse of ConvertUUID
func UUIDToDatum(id uuid.UUID) Datum {
	return String(id.String())
}

// ConvertSet decodes an array into unique elements in first-seen order.
// When allowDuplicates is false a repeated element is an error.
func ConvertSet[T comparable](d Datum, elem func(Datum) (T, *ConversionError), allowDuplicates bool) ([]T, *ConversionError) {
	items, ok := d.AsArray()
	if !ok {
		return nil, Errorf("Expected an array; got %s.", d.Print())
	}
	seen := make(map[T]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		v, err := elem(item)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[v]; dup {
			if !allowDuplicates {
				return nil, Errorf("Duplicate element %s.", item.Print())
			}
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// SetToDatum renders elements as an array in the given order
func SetToDatum[T any](items []T, conv func(T) Datum) Datum {
	out := make([]Datum, len(items))
	for i, item := range items {
		out[i] = conv(item)
	}
	return Datum{kind: KindArray, arr: out}
}
