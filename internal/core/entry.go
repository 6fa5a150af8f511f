package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type (
	// Number is a numeric field that never fails to decode. Anything that
	// is not a finite number (or a string holding one) reads as zero.
	Number float64

	// Text is a label field that never fails to decode. Non-textual JSON
	// values read as the empty string, i.e. absent.
	Text string

	// Entry is one district/program/date reporting record.
	Entry struct {
		ID                   string `json:"id,omitempty"`
		District             Text   `json:"district"`
		TotalChildren        Number `json:"totalChildren"`
		OutOfSchoolChildren  Number `json:"outOfSchoolChildren"`
		GirlsPercentage      Number `json:"girlsPercentage"`
		BoysPercentage       Number `json:"boysPercentage"`
		PovertyPercentage    Number `json:"povertyPercentage"`
		DisabilityPercentage Number `json:"disabilityPercentage"`
		OtherPercentage      Number `json:"otherPercentage"`
		ProgramType          Text   `json:"programType"`
		Date                 Text   `json:"date"`
	}
)

// Float returns the value as float64.
func (n Number) Float() float64 { return float64(n) }

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number(coerceNumber(data))
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		f = 0
	}
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

// ParseNumber converts free text to a Number the lenient way: surrounding
// whitespace is ignored, blanks are zero and so is anything unparsable.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return Number(f)
}

func coerceNumber(data []byte) float64 {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0
		}
		return float64(ParseNumber(s))
	case 't':
		if string(data) == "true" {
			return 1
		}
		return 0
	case 'f', 'n', '{', '[':
		return 0
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// String returns the label.
func (t Text) String() string { return string(t) }

// IsEmpty reports whether the label is absent.
func (t Text) IsEmpty() bool { return t == "" }

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*t = ""
			return nil
		}
		*t = Text(s)
	case 't', 'f':
		*t = Text(data)
	case 'n', '{', '[':
		*t = ""
	default:
		// numeric literal, kept as written
		*t = Text(data)
	}
	return nil
}

// UnmarshalJSON accepts both "id" and the Mongo-style "_id" key, and ids
// sent as numbers.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type plain Entry
	var aux struct {
		plain
		ID      json.RawMessage `json:"id"`
		MongoID json.RawMessage `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = Entry(aux.plain)
	e.ID = rawID(aux.ID)
	if e.ID == "" {
		e.ID = rawID(aux.MongoID)
	}
	return nil
}

func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var t Text
	_ = t.UnmarshalJSON(raw)
	return strings.TrimSpace(string(t))
}
