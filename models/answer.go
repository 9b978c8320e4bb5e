// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ValueKind tags which member of AnswerValue is populated
type ValueKind int

const (
	KindText ValueKind = iota + 1
	KindNumber
	KindList
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindList:
		return "list"
	}
	return "unknown"
}

var ErrNullAnswer = errors.New("answer value cannot be null")

// AnswerValue is the stored value of one answer: a string, a number or a list
// of strings. The zero value is not a valid answer.
type AnswerValue struct {
	Kind   ValueKind
	Text   string
	Number float64
	List   []string
}

func TextValue(s string) AnswerValue { return AnswerValue{Kind: KindText, Text: s} }

func NumberValue(n float64) AnswerValue { return AnswerValue{Kind: KindNumber, Number: n} }

func ListValue(items ...string) AnswerValue { return AnswerValue{Kind: KindList, List: items} }

// IsEmpty reports whether the value counts as "not answered"
func (v AnswerValue) IsEmpty() bool {
	switch v.Kind {
	case KindText:
		return v.Text == ""
	case KindNumber:
		return false
	case KindList:
		return len(v.List) == 0
	}
	return true
}

// Strings returns the value as a set of strings: scalars become a singleton,
// lists pass through.
func (v AnswerValue) Strings() []string {
	switch v.Kind {
	case KindText:
		return []string{v.Text}
	case KindNumber:
		return []string{strconv.FormatFloat(v.Number, 'f', -1, 64)}
	case KindList:
		return v.List
	}
	return []string{""}
}

// String renders the value for exports and logs
func (v AnswerValue) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindList:
		b, _ := json.Marshal(v.List)
		return string(b)
	}
	return ""
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindText:
		return json.Marshal(v.Text)
	case KindNumber:
		return json.Marshal(v.Number)
	case KindList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	}
	return []byte("null"), nil
}

func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ErrNullAnswer
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextValue(s)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]string, 0, len(raw))
		for _, item := range raw {
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				// Lists of numbers are accepted and kept as their literal text
				var n json.Number
				if err := json.Unmarshal(item, &n); err != nil {
					return fmt.Errorf("list items must be strings: %w", err)
				}
				s = n.String()
			}
			items = append(items, s)
		}
		*v = ListValue(items...)
	case 't', 'f':
		return errors.New("boolean answers are not supported")
	case '{':
		return errors.New("object answers are not supported")
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = NumberValue(n)
	}
	return nil
}

// ParseAnswerValue decodes a JSON document into an AnswerValue. Text that is
// not valid JSON is kept as a plain text value, which is how exported sheets
// round-trip free text.
func ParseAnswerValue(s string) (AnswerValue, error) {
	var v AnswerValue
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		if s == "" || errors.Is(err, ErrNullAnswer) {
			return AnswerValue{}, ErrNullAnswer
		}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return TextValue(s), nil
		}
		return AnswerValue{}, err
	}
	return v, nil
}
