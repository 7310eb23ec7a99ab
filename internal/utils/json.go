package utils

import (
	"encoding/json"
	"errors"
)

var errEmptyPayload = errors.New("empty payload")

// SafeJSONParse decodes data into v, rejecting empty and null payloads.
func SafeJSONParse(data []byte, v interface{}) error {
	if len(data) == 0 || string(data) == "null" {
		return errEmptyPayload
	}
	return json.Unmarshal(data, v)
}

// StringOrField reads an identifier sent either as a bare JSON string or as
// an object carrying it under field. It returns "" when neither matches.
func StringOrField(data []byte, field string) string {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	var obj map[string]json.RawMessage
	if err := SafeJSONParse(data, &obj); err != nil {
		return ""
	}
	if err := json.Unmarshal(obj[field], &s); err != nil {
		return ""
	}
	return s
}
