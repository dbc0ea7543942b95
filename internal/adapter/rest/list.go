package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// decodeList accepts a bare JSON array or a paginated {"results": [...]} object.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	out := []T{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return out, nil
	}
	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if page.Results != nil {
		out = page.Results
	}
	return out, nil
}
