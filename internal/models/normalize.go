package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// object is a decoded JSON object whose values are parsed lazily and leniently.
type object map[string]json.RawMessage

func decodeObject(raw json.RawMessage) (object, error) {
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, err
	}
	return o, nil
}

func (o object) str(names ...string) string {
	raw, ok := present(o, names...)
	if !ok {
		return ""
	}
	return asString(raw)
}

func (o object) integer(names ...string) (int, bool) {
	raw, ok := present(o, names...)
	if !ok {
		return 0, false
	}
	return asInt(raw)
}

func (o object) dec(names ...string) (decimal.Decimal, bool) {
	raw, ok := present(o, names...)
	if !ok {
		return decimal.Decimal{}, false
	}
	return asDecimal(raw)
}

func (o object) boolean(names ...string) (bool, bool) {
	raw, ok := present(o, names...)
	if !ok {
		return false, false
	}
	return asBool(raw)
}

func unquote(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// asString accepts a JSON string or number; identities may arrive as either.
func asString(raw json.RawMessage) string {
	if s, ok := unquote(raw); ok {
		return s
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && (raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9')) {
		return string(raw)
	}
	return ""
}

// ID is an identity decoded from either a JSON string or a JSON number.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if bytes.Equal(raw, []byte("null")) {
		*id = ""
		return nil
	}
	if s, ok := unquote(raw); ok {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("models: id must be a string or number, got %s", raw)
	}
	*id = ID(n.String())
	return nil
}

// asInt accepts a JSON number or a numeric string. Fractions are truncated.
func asInt(raw json.RawMessage) (int, bool) {
	text := strings.TrimSpace(string(raw))
	if s, ok := unquote(raw); ok {
		text = strings.TrimSpace(s)
	}
	if n, err := strconv.Atoi(text); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// asDecimal accepts a JSON number or a decimal string such as "12.50".
func asDecimal(raw json.RawMessage) (decimal.Decimal, bool) {
	text := strings.TrimSpace(string(raw))
	if s, ok := unquote(raw); ok {
		text = strings.TrimSpace(s)
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// asBool accepts true/false, 0/1 and their string forms.
func asBool(raw json.RawMessage) (bool, bool) {
	text := strings.TrimSpace(string(raw))
	if s, ok := unquote(raw); ok {
		text = strings.TrimSpace(s)
	}
	switch strings.ToLower(text) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}
