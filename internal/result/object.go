package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotObject is returned by Parse when the body is valid JSON but not an object.
var ErrNotObject = errors.New("result is not a JSON object")

// MaxDepth bounds object and array nesting accepted by Parse.
const MaxDepth = 10000

var errTooDeep = fmt.Errorf("exceeded max depth of %d", MaxDepth)

// Object is a JSON object that remembers the order its keys arrived in.
// The zero value is an empty object ready to use.
type Object struct {
	keys []string
	vals map[string]Value
}

// Field is one key/value entry of an Object.
type Field struct {
	Key   string
	Value Value
}

func NewObject() *Object { return &Object{} }

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Set stores a value. A repeated key keeps its first position and takes the new value.
func (o *Object) Set(key string, v Value) {
	if o.vals == nil {
		o.vals = make(map[string]Value)
	}
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

func (o *Object) Get(key string) (Value, bool) {
	if o == nil || o.vals == nil {
		return Value{}, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Fields returns the entries in document order.
func (o *Object) Fields() []Field {
	if o == nil {
		return nil
	}
	out := make([]Field, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, Field{Key: k, Value: o.vals[k]})
	}
	return out
}

// Clone returns a deep copy.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := &Object{}
	for _, f := range o.Fields() {
		c.Set(f.Key, cloneValue(f.Value))
	}
	return c
}

func cloneValue(v Value) Value {
	switch v.kind {
	case KindObject:
		return ObjectValue(v.obj.Clone())
	case KindArray:
		arr := make([]Value, len(v.arr))
		for i, e := range v.arr {
			arr[i] = cloneValue(e)
		}
		return ArrayValue(arr)
	}
	return v
}

func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := o.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Object) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, f := range o.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, f.Key)
		buf.WriteByte(':')
		if err := f.Value.writeJSON(buf); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

// Parse decodes a response body into an Object, preserving key order at every level.
func Parse(text string) (*Object, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse result: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		if _, err := decodeValue(dec, tok, 0); err != nil {
			return nil, fmt.Errorf("parse result: %w", err)
		}
		return nil, ErrNotObject
	}
	obj, err := decodeObject(dec, 1)
	if err != nil {
		return nil, fmt.Errorf("parse result: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data after top-level object")
		}
		return nil, fmt.Errorf("parse result: %w", err)
	}
	return obj, nil
}

func decodeObject(dec *json.Decoder, depth int) (*Object, error) {
	obj := &Object{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		tok, err = dec.Token()
		if err != nil {
			return nil, err
		}
		v, err := decodeValue(dec, tok, depth)
		if err != nil {
			return nil, err
		}
		obj.Set(key, v)
	}
	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

// decodeValue reads the value starting at tok; depth is the nesting level of
// the container holding it.
func decodeValue(dec *json.Decoder, tok json.Token, depth int) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		if depth >= MaxDepth {
			return Value{}, errTooDeep
		}
		switch t {
		case '{':
			obj, err := decodeObject(dec, depth+1)
			if err != nil {
				return Value{}, err
			}
			return ObjectValue(obj), nil
		case '[':
			var arr []Value
			for dec.More() {
				next, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				v, err := decodeValue(dec, next, depth+1)
				if err != nil {
					return Value{}, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return ArrayValue(arr), nil
		}
		return Value{}, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return StringValue(t), nil
	case json.Number:
		return NumberValue(t.String()), nil
	case bool:
		return BoolValue(t), nil
	case nil:
		return NullValue(), nil
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}
