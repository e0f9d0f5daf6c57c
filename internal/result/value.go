package result

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Kind identifies the JSON type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	}
	return "unknown"
}

// Value is a single JSON value from an analysis result. Numbers keep their
// literal text so they render exactly as the service sent them.
type Value struct {
	kind Kind
	text string // string payload or number literal
	b    bool
	obj  *Object
	arr  []Value
}

func NullValue() Value            { return Value{kind: KindNull} }
func BoolValue(b bool) Value      { return Value{kind: KindBool, b: b} }
func StringValue(s string) Value  { return Value{kind: KindString, text: s} }
func ObjectValue(o *Object) Value { return Value{kind: KindObject, obj: o} }
func ArrayValue(a []Value) Value  { return Value{kind: KindArray, arr: a} }

// NumberValue wraps a JSON number literal such as "3" or "12.500".
func NumberValue(literal string) Value { return Value{kind: KindNumber, text: literal} }

// IntValue is a convenience for building results in code.
func IntValue(n int64) Value { return NumberValue(strconv.FormatInt(n, 10)) }

func (v Value) Kind() Kind { return v.kind }

// Object returns the nested object, or nil when the value is not an object.
func (v Value) Object() *Object {
	if v.kind != KindObject {
		return nil
	}
	return v.obj
}

func (v Value) Array() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// Float returns the numeric value when the value is a number.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Display renders the value the way the summary table shows it: strings
// unquoted, numbers as sent, everything else as compact JSON.
func (v Value) Display() string {
	switch v.kind {
	case KindString, KindNumber:
		return v.text
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNull:
		return "null"
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

// MarshalJSON encodes the value without HTML escaping, keeping object key order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		buf.WriteString(v.text)
	case KindString:
		writeString(buf, v.text)
	case KindObject:
		if v.obj == nil {
			buf.WriteString("{}")
			return nil
		}
		return v.obj.writeJSON(buf)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	// Encode appends a newline
	buf.Truncate(buf.Len() - 1)
}
