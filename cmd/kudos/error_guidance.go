package main

import (
	"context"
	"errors"
	"net"

	"kudos/internal/api"
)

// Matches server.ErrCodeElementNotFound.
const elementNotFoundErrorCode = 2001

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized":
			lines = append(lines, "hint: set KUDOS_USERNAME/KUDOS_PASSWORD or KUDOS_API_TOKEN.")
		case "forbidden":
			lines = append(lines, "hint: the element may be outside your zones, or the route needs an admin (KUDOS_ADMIN_TOKEN).")
		case "resource_exhausted":
			lines = append(lines, "hint: too many failed logins; wait a few minutes before retrying.")
		}
		if apiErr.ErrorCode == elementNotFoundErrorCode {
			lines = append(lines, "hint: the element may be retired or a duplicate; retry with --for-lineage or --for-duplicate-processing.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify KUDOS_API_URL points to a kudos server.")
		}
		if apiErr.Status >= 500 {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase KUDOS_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a kudos server is running at KUDOS_API_URL.",
			"hint: start local server manually with: kudos srv",
			"hint: you can increase KUDOS_HTTP_TIMEOUT for slower environments.",
		)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
