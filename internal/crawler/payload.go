package crawler

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ParsePayload decodes an upstream document. A document without a movie
// section is rejected with ErrMalformedPayload.
func ParsePayload(body []byte) (*Payload, error) {
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if payload.Movie == nil || payload.Movie.ID == "" {
		return nil, ErrMalformedPayload
	}
	return &payload, nil
}

// Upstream timestamps come in a few shapes depending on the source's age.
var payloadTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseTime parses an upstream timestamp. The ok result is false when the
// value is absent or unparseable, in which case the caller substitutes its own
// clock.
func ParseTime(ref TimeRef) (time.Time, bool) {
	value := strings.TrimSpace(ref.Time)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range payloadTimeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func refNames(refs []NamedRef) []string {
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		name := strings.TrimSpace(ref.Name)
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names
}
