// Package cursor encodes and decodes Relay-style connection cursors.
// Cursors are opaque base64-encoded JSON objects naming the model and the
// position of an edge inside the collection it was sliced from.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const version = 1

type payloadV1 struct {
	Version  int    `json:"v"`
	TypeName string `json:"t"`
	Offset   int    `json:"o"`
}

// Encode builds an opaque cursor for the edge at offset within a collection of typeName.
func Encode(typeName string, offset int) string {
	data, err := json.Marshal(payloadV1{
		Version:  version,
		TypeName: typeName,
		Offset:   offset,
	})
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// Decode parses a cursor and returns its type name and offset.
func Decode(raw string) (typeName string, offset int, err error) {
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", 0, fmt.Errorf("invalid cursor: %w", err)
	}
	var payload payloadV1
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", 0, fmt.Errorf("invalid cursor format: %w", err)
	}
	if payload.Version != version {
		return "", 0, fmt.Errorf("invalid cursor format: unsupported version %d", payload.Version)
	}
	if payload.TypeName == "" {
		return "", 0, fmt.Errorf("invalid cursor: missing type")
	}
	if payload.Offset < 0 {
		return "", 0, fmt.Errorf("invalid cursor: negative offset")
	}
	return payload.TypeName, payload.Offset, nil
}

// OffsetFor decodes raw and checks that it belongs to typeName.
// Any failure yields fallback, mirroring how Relay array connections treat
// unparseable cursors.
func OffsetFor(raw *string, typeName string, fallback int) int {
	if raw == nil {
		return fallback
	}
	gotType, offset, err := Decode(*raw)
	if err != nil || gotType != typeName {
		return fallback
	}
	return offset
}
