package domain

import (
	"encoding/json"
	"strconv"
)

type ValueKind uint8

const (
	ValueKindNone ValueKind = iota
	ValueKindInt
	ValueKindFloat
	ValueKindText
)

func (k ValueKind) String() string {
	switch k {
	case ValueKindInt:
		return "int"
	case ValueKindFloat:
		return "float"
	case ValueKindText:
		return "text"
	default:
		return "none"
	}
}

// Value is the result of a derivation. A zero Value is the absence value.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Text  string
}

func NoValue() Value {
	return Value{}
}

func IntValue(v int64) Value {
	return Value{Kind: ValueKindInt, Int: v}
}

func FloatValue(v float64) Value {
	return Value{Kind: ValueKindFloat, Float: v}
}

func TextValue(v string) Value {
	return Value{Kind: ValueKindText, Text: v}
}

func (v Value) Present() bool {
	return v.Kind != ValueKindNone
}

// Number returns the numeric value, false for text and absence.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case ValueKindInt:
		return float64(v.Int), true
	case ValueKindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case ValueKindInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueKindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case ValueKindText:
		return v.Text
	default:
		return "<none>"
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueKindInt:
		return json.Marshal(v.Int)
	case ValueKindFloat:
		return json.Marshal(v.Float)
	case ValueKindText:
		return json.Marshal(v.Text)
	default:
		return []byte("null"), nil
	}
}

type ReadingDefinition struct {
	Key            string
	Name           string
	Unit           string
	Kind           ValueKind
	DeviceClass    string
	StateClass     string
	EntityCategory string
	Icon           string
	Decimals       uint
}

type Reading struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Unit  string `json:"unit,omitempty"`
	Value Value  `json:"value"`
}
