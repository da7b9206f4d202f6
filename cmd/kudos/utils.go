package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// readFilters are the visibility flags shared by every read command.
type readFilters struct {
	forLineage             bool
	forDuplicateProcessing bool
	effectiveTime          string
}

func bindReadFilterFlags(cmd *cobra.Command, f *readFilters) {
	cmd.Flags().BoolVar(&f.forLineage, "for-lineage", false, "include retired (memento) elements")
	cmd.Flags().BoolVar(&f.forDuplicateProcessing, "for-duplicate-processing", false, "include elements marked as duplicates")
	cmd.Flags().StringVar(&f.effectiveTime, "effective-time", "", "evaluate effectivity at this time (RFC3339 or YYYY-MM-DD)")
}

func (f readFilters) apply(query url.Values) {
	if f.forLineage {
		query.Set("for_lineage", "true")
	}
	if f.forDuplicateProcessing {
		query.Set("for_duplicate_processing", "true")
	}
	setIfNotEmpty(query, "effective_time", f.effectiveTime)
}

func intToString(value int) string {
	return strconv.Itoa(value)
}

func setIfNotEmpty(values url.Values, key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	values.Set(key, value)
}

func splitCommaList(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func parseOptionalTime(flag, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	return nil, fmt.Errorf("invalid --%s %q (use RFC3339 or YYYY-MM-DD)", flag, raw)
}

func chooseFirst(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}
