package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"kudos/internal/models"
)

// parsePropertyFlags parses --properties-json and --property key=value pairs
// into one property set. JSON is parsed first, then pairs overlay on top.
// Pair values that read as booleans or numbers keep that type.
func parsePropertyFlags(pairs []string, rawJSON string) (models.Properties, error) {
	props := models.Properties{}

	if rawJSON != "" {
		if err := json.Unmarshal([]byte(rawJSON), &props); err != nil {
			return nil, fmt.Errorf("invalid --properties-json: %w", err)
		}
	}

	for _, pair := range pairs {
		idx := strings.IndexByte(pair, '=')
		if idx <= 0 {
			return nil, fmt.Errorf("invalid --property format %q, expected key=value", pair)
		}
		props[strings.TrimSpace(pair[:idx])] = propertyValue(pair[idx+1:])
	}

	if len(props) == 0 {
		return nil, nil
	}
	return props, nil
}

func propertyValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
