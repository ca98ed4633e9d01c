package feature

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind identifies the type held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindString
	KindStringList
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindStringList:
		return "string_list"
	case KindNumber:
		return "number"
	default:
		return "invalid"
	}
}

// Value is a single attribute value: a bool, a string, a list of strings or a number.
// The zero Value is invalid and every accessor on it fails with ErrAttributeType.
type Value struct {
	kind Kind
	b    bool
	s    string
	list []string
	n    float64
}

// BoolValue returns a Value holding a bool.
func BoolValue(v bool) Value { return Value{kind: KindBool, b: v} }

// StringValue returns a Value holding a string.
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// StringListValue returns a Value holding a copy of the given strings.
func StringListValue(v ...string) Value {
	list := slices.Clone(v)
	if list == nil {
		list = []string{}
	}
	return Value{kind: KindStringList, list: list}
}

// NumberValue returns a Value holding a number.
func NumberValue(v float64) Value { return Value{kind: KindNumber, n: v} }

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// AsBool returns the bool held by v or ErrAttributeType.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, v.typeError(KindBool)
	}
	return v.b, nil
}

// AsString returns the string held by v or ErrAttributeType.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", v.typeError(KindString)
	}
	return v.s, nil
}

// AsStringList returns a copy of the list held by v or ErrAttributeType.
func (v Value) AsStringList() ([]string, error) {
	if v.kind != KindStringList {
		return nil, v.typeError(KindStringList)
	}
	return slices.Clone(v.list), nil
}

// AsNumber returns the number held by v or ErrAttributeType.
func (v Value) AsNumber() (float64, error) {
	if v.kind != KindNumber {
		return 0, v.typeError(KindNumber)
	}
	return v.n, nil
}

// Contains reports whether v is a string list containing s.
func (v Value) Contains(s string) bool {
	return v.kind == KindStringList && slices.Contains(v.list, s)
}

// Equal reports whether both values have the same kind and content.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == other.b
	case KindString:
		return v.s == other.s
	case KindStringList:
		return slices.Equal(v.list, other.list)
	case KindNumber:
		return v.n == other.n
	default:
		return true
	}
}

// Any returns the held value as a plain Go value.
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindString:
		return v.s
	case KindStringList:
		return slices.Clone(v.list)
	case KindNumber:
		return v.n
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.s
	case KindStringList:
		return "[" + strings.Join(v.list, ",") + "]"
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	default:
		return "<invalid>"
	}
}

func (v Value) clone() Value {
	if v.kind == KindStringList {
		v.list = slices.Clone(v.list)
	}
	return v
}

func (v Value) typeError(want Kind) error {
	return errors.Join(ErrAttributeType, fmt.Errorf("want %s, got %s", want, v.kind))
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindInvalid {
		return []byte("null"), nil
	}
	return json.Marshal(v.Any())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return errors.Join(ErrInvalidValue, err)
	}

	switch x := raw.(type) {
	case bool:
		*v = BoolValue(x)
	case string:
		*v = StringValue(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return errors.Join(ErrInvalidValue, err)
		}
		*v = NumberValue(n)
	case []any:
		list := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return errors.Join(ErrInvalidValue, fmt.Errorf("list item %v is not a string", item))
			}
			list = append(list, s)
		}
		*v = StringListValue(list...)
	default:
		return errors.Join(ErrInvalidValue, fmt.Errorf("unsupported JSON value %s", string(data)))
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (v Value) MarshalYAML() (any, error) {
	return v.Any(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!bool":
			var b bool
			if err := node.Decode(&b); err != nil {
				return errors.Join(ErrInvalidValue, err)
			}
			*v = BoolValue(b)
		case "!!int", "!!float":
			var n float64
			if err := node.Decode(&n); err != nil {
				return errors.Join(ErrInvalidValue, err)
			}
			*v = NumberValue(n)
		case "!!str":
			*v = StringValue(node.Value)
		default:
			return errors.Join(ErrInvalidValue, fmt.Errorf("unsupported YAML tag %s at line %d", node.ShortTag(), node.Line))
		}
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return errors.Join(ErrInvalidValue, err)
		}
		*v = StringListValue(list...)
	default:
		return errors.Join(ErrInvalidValue, fmt.Errorf("unsupported YAML node at line %d", node.Line))
	}
	return nil
}
