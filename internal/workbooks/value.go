package workbooks

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind classifies a cell value.
type Kind int

const (
	KindEmpty Kind = iota
	KindNumber
	KindText
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	default:
		return "empty"
	}
}

// Value is the raw content of one cell. Numbers keep the text they were
// stored as so CSV output reproduces the workbook's own representation.
type Value struct {
	Kind   Kind
	Number float64
	Text   string
	Bool   bool
}

// EmptyValue returns the value of a cell with no content.
func EmptyValue() Value { return Value{Kind: KindEmpty} }

// NumberValue wraps a numeric cell value.
func NumberValue(f float64) Value {
	return Value{Kind: KindNumber, Number: f, Text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// TextValue wraps a text cell value verbatim.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// BoolValue wraps a boolean cell value. Its text form is True or False.
func BoolValue(b bool) Value {
	v := Value{Kind: KindBool, Bool: b, Text: "False"}
	if b {
		v.Text = "True"
	}
	return v
}

// ParseValue interprets s as a number when it is a finite decimal float and
// otherwise keeps the original string as text.
func ParseValue(s string) Value {
	if f, ok := parseNumber(s); ok {
		return NumberValue(f)
	}
	return TextValue(s)
}

func parseNumber(s string) (float64, bool) {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0, false
	}
	// Hex floats are not decimal.
	if strings.ContainsAny(t, "xXpP") {
		return 0, false
	}
	if strings.Contains(t, "_") {
		var ok bool
		if t, ok = stripDigitSeparators(t); !ok {
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// stripDigitSeparators removes underscores that sit between two digits,
// as in "1_000". Any other underscore makes the input non-numeric.
func stripDigitSeparators(s string) (string, bool) {
	isDigit := func(b byte) bool { return b >= '0' && b <= '9' }
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			sb.WriteByte(s[i])
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return "", false
		}
	}
	return sb.String(), true
}

// numberFromRaw builds a number that keeps the workbook's stored text.
func numberFromRaw(raw string) (Value, bool) {
	f, ok := parseNumber(raw)
	if !ok {
		return Value{}, false
	}
	return Value{Kind: KindNumber, Number: f, Text: strings.TrimSpace(raw)}, true
}

// Numeric returns the value used by sum and average. Booleans count as
// 1 and 0; text and empty cells do not take part.
func (v Value) Numeric() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Number, true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// String renders the value in its natural textual form; empty cells render as "".
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		if v.Text != "" {
			return v.Text
		}
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindText, KindBool:
		return v.Text
	default:
		return ""
	}
}

// Interface returns the value as a plain Go value: float64, string, bool or nil.
func (v Value) Interface() any {
	switch v.Kind {
	case KindNumber:
		return v.Number
	case KindText:
		return v.Text
	case KindBool:
		return v.Bool
	default:
		return nil
	}
}

// MarshalJSON encodes numbers as JSON numbers, text as strings, booleans as
// booleans and empty cells as null.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}
