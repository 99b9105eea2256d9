package api

import (
	"encoding/json"
	"fmt"
)

// ParseRequest converts raw tool arguments into a typed request struct
// by round-tripping through JSON. Extraneous fields are ignored so
// clients can send more than a tool declares; a type mismatch on a
// declared field is an error.
func ParseRequest[T any](args map[string]interface{}, request *T) error {
	jsonData, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to marshal request arguments: %w", err)
	}
	if err := json.Unmarshal(jsonData, request); err != nil {
		return fmt.Errorf("failed to parse request: %w", err)
	}
	return nil
}
