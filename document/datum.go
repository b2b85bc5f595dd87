// Package document implements the schema-less document model used at the
// table boundary. A Datum is an immutable tagged union over the JSON value
// kinds; converters in this package turn Datums into typed values and report
// path-qualified errors when the shape is wrong.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Kind identifies the variant held by a Datum
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the type name used in error messages
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindBool:
		return "BOOL"
	case KindNumber:
		return "NUMBER"
	case KindString:
		return "STRING"
	case KindArray:
		return "ARRAY"
	case KindObject:
		return "OBJECT"
	default:
		return "UNKNOWN"
	}
}

// Datum is a single document value. The zero value is Null.
type Datum struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Datum
	obj  map[string]Datum
}

func Null() Datum { return Datum{kind: KindNull} }

func Bool(b bool) Datum { return Datum{kind: KindBool, b: b} }

func Number(n float64) Datum { return Datum{kind: KindNumber, n: n} }

func String(s string) Datum { return Datum{kind: KindString, s: s} }

// Array builds an array datum. The items are copied.
func Array(items ...Datum) Datum {
	cp := make([]Datum, len(items))
	copy(cp, items)
	return Datum{kind: KindArray, arr: cp}
}

// Object builds an object datum. The field map is copied.
func Object(fields map[string]Datum) Datum {
	cp := make(map[string]Datum, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Datum{kind: KindObject, obj: cp}
}

func (d Datum) Kind() Kind { return d.kind }

func (d Datum) IsNull() bool { return d.kind == KindNull }

// AsBool returns the boolean payload and whether d is a Bool
func (d Datum) AsBool() (bool, bool) { return d.b, d.kind == KindBool }

// AsNumber returns the numeric payload and whether d is a Number
func (d Datum) AsNumber() (float64, bool) { return d.n, d.kind == KindNumber }

// AsString returns the string payload and whether d is a String
func (d Datum) AsString() (string, bool) { return d.s, d.kind == KindString }

// AsArray returns a copy of the elements and whether d is an Array
func (d Datum) AsArray() ([]Datum, bool) {
	if d.kind != KindArray {
		return nil, false
	}
	cp := make([]Datum, len(d.arr))
	copy(cp, d.arr)
	return cp, true
}

// Len returns the number of elements of an Array or fields of an Object
func (d Datum) Len() int {
	switch d.kind {
	case KindArray:
		return len(d.arr)
	case KindObject:
		return len(d.obj)
	}
	return 0
}

// Field returns the named field of an Object
func (d Datum) Field(key string) (Datum, bool) {
	if d.kind != KindObject {
		return Datum{}, false
	}
	v, ok := d.obj[key]
	return v, ok
}

// Keys returns the sorted field names of an Object
func (d Datum) Keys() []string {
	if d.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(d.obj))
	for k := range d.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports deep structural equality. Arrays compare in order.
func (d Datum) Equal(o Datum) bool {
	if d.kind != o.kind {
		return false
	}
	switch d.kind {
	case KindNull:
		return true
	case KindBool:
		return d.b == o.b
	case KindNumber:
		return d.n == o.n
	case KindString:
		return d.s == o.s
	case KindArray:
		if len(d.arr) != len(o.arr) {
			return false
		}
		for i := range d.arr {
			if !d.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(d.obj) != len(o.obj) {
			return false
		}
		for k, v := range d.obj {
			ov, ok := o.obj[k]
			if !ok || !v.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// Print renders d as compact JSON for diagnostics
func (d Datum) Print() string {
	var buf bytes.Buffer
	d.writeJSON(&buf)
	return buf.String()
}

func (d Datum) String() string { return d.Print() }

func (d Datum) writeJSON(buf *bytes.Buffer) {
	switch d.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(d.b))
	case KindNumber:
		buf.WriteString(strconv.FormatFloat(d.n, 'g', -1, 64))
	case KindString:
		writeQuoted(buf, d.s)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range d.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			item.writeJSON(buf)
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range d.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeQuoted(buf, k)
			buf.WriteByte(':')
			d.obj[k].writeJSON(buf)
		}
		buf.WriteByte('}')
	}
}

// writeQuoted writes s as a JSON string without escaping HTML characters
func writeQuoted(buf *bytes.Buffer, s string) {
	var quoted bytes.Buffer
	enc := json.NewEncoder(&quoted)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Write(bytes.TrimSuffix(quoted.Bytes(), []byte("\n")))
}

// MarshalJSON implements json.Marshaler
func (d Datum) MarshalJSON() ([]byte, error) {
	if d.kind == KindNumber && (math.IsNaN(d.n) || math.IsInf(d.n, 0)) {
		return nil, fmt.Errorf("cannot encode non-finite number %v", d.n)
	}
	var buf bytes.Buffer
	d.writeJSON(&buf)
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Datum) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromNative(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// FromNative converts a decoded JSON or msgpack value into a Datum
func FromNative(v interface{}) (Datum, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Datum{}, fmt.Errorf("invalid number %q: %w", x.String(), err)
		}
		return Number(f), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case int8:
		return Number(float64(x)), nil
	case int16:
		return Number(float64(x)), nil
	case int32:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case uint8:
		return Number(float64(x)), nil
	case uint16:
		return Number(float64(x)), nil
	case uint32:
		return Number(float64(x)), nil
	case uint64:
		return Number(float64(x)), nil
	case []interface{}:
		items := make([]Datum, len(x))
		for i, item := range x {
			parsed, err := FromNative(item)
			if err != nil {
				return Datum{}, err
			}
			items[i] = parsed
		}
		return Datum{kind: KindArray, arr: items}, nil
	case []string:
		items := make([]Datum, len(x))
		for i, item := range x {
			items[i] = String(item)
		}
		return Datum{kind: KindArray, arr: items}, nil
	case map[string]interface{}:
		fields := make(map[string]Datum, len(x))
		for k, item := range x {
			parsed, err := FromNative(item)
			if err != nil {
				return Datum{}, err
			}
			fields[k] = parsed
		}
		return Datum{kind: KindObject, obj: fields}, nil
	case Datum:
		return x, nil
	default:
		return Datum{}, fmt.Errorf("unsupported document value of type %T", v)
	}
}

// ToNative converts d into plain Go values (nil, bool, float64, string,
// []interface{}, map[string]interface{})
func (d Datum) ToNative() interface{} {
	switch d.kind {
	case KindBool:
		return d.b
	case KindNumber:
		return d.n
	case KindString:
		return d.s
	case KindArray:
		out := make([]interface{}, len(d.arr))
		for i, item := range d.arr {
			out[i] = item.ToNative()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(d.obj))
		for k, v := range d.obj {
			out[k] = v.ToNative()
		}
		return out
	}
	return nil
}
