// Package nodeid encodes and decodes Relay-style global node IDs.
package nodeid

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Encode marshals the type name and key values into a base64-encoded JSON array.
func Encode(typeName string, keys ...interface{}) string {
	payload := make([]interface{}, 0, len(keys)+1)
	payload = append(payload, typeName)
	payload = append(payload, keys...)
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// Decode parses a node ID and returns the type name and raw key values.
// Numbers are returned as json.Number so large integers keep their precision.
func Decode(nodeID string) (string, []interface{}, error) {
	raw, err := base64.StdEncoding.DecodeString(nodeID)
	if err != nil {
		return "", nil, fmt.Errorf("invalid id: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload []interface{}
	if err := dec.Decode(&payload); err != nil {
		return "", nil, fmt.Errorf("invalid id: %w", err)
	}
	if len(payload) < 2 {
		return "", nil, errors.New("invalid id: missing type or key values")
	}
	typeName, ok := payload[0].(string)
	if !ok || typeName == "" {
		return "", nil, errors.New("invalid id: missing type name")
	}
	return typeName, payload[1:], nil
}

// DecodeKey decodes a node ID that must name expectedType and carry exactly one string key.
func DecodeKey(nodeID, expectedType string) (string, error) {
	typeName, keys, err := Decode(nodeID)
	if err != nil {
		return "", err
	}
	if typeName != expectedType {
		return "", fmt.Errorf("invalid id: expected type %s, got %s", expectedType, typeName)
	}
	if len(keys) != 1 {
		return "", fmt.Errorf("invalid id: expected 1 key value, got %d", len(keys))
	}
	switch v := keys[0].(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	default:
		return "", fmt.Errorf("invalid id: unsupported key value %v", v)
	}
}
