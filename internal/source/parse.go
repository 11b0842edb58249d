package source

import (
	"bytes"
	"encoding/json"
	"fmt"

	"confcal/internal/model"
)

// DecodeConferences parses a conference file: a JSON array of conference
// objects. An empty body or a JSON null yields an empty list.
func DecodeConferences(body []byte) ([]model.Conference, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []model.Conference{}, nil
	}

	var confs []model.Conference
	if err := json.Unmarshal(trimmed, &confs); err != nil {
		return nil, fmt.Errorf("decode conferences: %w", err)
	}
	if confs == nil {
		confs = []model.Conference{}
	}
	return confs, nil
}
