// Package models defines the data structures exchanged with the storefront REST API.
// It includes the response envelope every endpoint returns, request payloads, and the
// normalized payload schemas the stores keep: user profiles, cart lines and summaries,
// products, orders and payments.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingField is returned when an envelope does not carry the requested payload field.
var ErrMissingField = errors.New("models: missing payload field")

// Envelope is the response body of every endpoint: a numeric business status code
// (0 = success), a message, and endpoint-specific payload fields such as
// data, items or summary.
type Envelope struct {
	// Code is nil when the body carried no code field.
	Code    *int
	Message string

	fields map[string]json.RawMessage
}

// UnmarshalJSON keeps every top-level field so payloads can be decoded later.
func (e *Envelope) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	e.fields = fields
	e.Code = nil
	e.Message = ""

	if raw, ok := present(fields, "code"); ok {
		code, ok := asInt(raw)
		if !ok {
			return fmt.Errorf("models: non-numeric code %s", raw)
		}
		e.Code = &code
	}
	if raw, ok := present(fields, "message", "msg"); ok {
		e.Message = asString(raw)
	}
	return nil
}

// MarshalJSON writes the envelope back as a flat object.
func (e Envelope) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(e.fields)+2)
	for k, v := range e.fields {
		out[k] = v
	}
	if e.Code != nil {
		out["code"] = json.RawMessage(fmt.Sprint(*e.Code))
	}
	msg, err := json.Marshal(e.Message)
	if err != nil {
		return nil, err
	}
	out["message"] = msg
	return json.Marshal(out)
}

// Succeeded reports whether the business status code is absent or zero.
func (e *Envelope) Succeeded() bool {
	return e.Code == nil || *e.Code == 0
}

// Raw returns the first non-null field among names.
func (e *Envelope) Raw(names ...string) (json.RawMessage, bool) {
	return present(e.fields, names...)
}

// Decode unmarshals the first non-null field among names into v.
func (e *Envelope) Decode(v any, names ...string) error {
	raw, ok := e.Raw(names...)
	if !ok {
		return fmt.Errorf("%w: %v", ErrMissingField, names)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %v: %w", names, err)
	}
	return nil
}

// present returns the first field among names whose value is not JSON null.
func present(fields map[string]json.RawMessage, names ...string) (json.RawMessage, bool) {
	for _, name := range names {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		return raw, true
	}
	return nil, false
}

// ErrorResponse is the body the gateway writes for failed requests.
type ErrorResponse struct {
	Errors string `json:"errors"`
}
