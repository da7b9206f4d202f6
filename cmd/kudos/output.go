package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"kudos/internal/api"
	"kudos/internal/format"
	"kudos/internal/models"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

// writeOutput writes a payload with the formatter chosen by --json/--output.
func writeOutput(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeElementList(elements []api.ElementResponse) error {
	for _, element := range elements {
		if err := writePlain("%s\n", formatElementLine(element)); err != nil {
			return err
		}
	}
	return nil
}

func writeElementDetail(element api.ElementResponse) error {
	lines := []string{
		fmt.Sprintf("guid: %s", element.GUID),
		fmt.Sprintf("type: %s", element.TypeName),
		fmt.Sprintf("status: %s", element.Status),
		fmt.Sprintf("created_by: %s", element.CreatedBy),
		fmt.Sprintf("created_at: %s", formatTime(element.CreatedAt)),
	}
	if element.QualifiedName != "" {
		lines = append(lines, fmt.Sprintf("qualified_name: %s", element.QualifiedName))
	}
	if len(element.Zones) > 0 {
		lines = append(lines, fmt.Sprintf("zones: %s", strings.Join(element.Zones, ", ")))
	}
	if element.AnchorGUID != "" {
		lines = append(lines, fmt.Sprintf("anchor: %s (%s)", element.AnchorGUID, element.AnchorTypeName))
	}
	if element.DuplicateOf != "" {
		lines = append(lines, fmt.Sprintf("duplicate_of: %s", element.DuplicateOf))
	}
	if element.EffectiveFrom != nil {
		lines = append(lines, fmt.Sprintf("effective_from: %s", formatTime(*element.EffectiveFrom)))
	}
	if element.EffectiveTo != nil {
		lines = append(lines, fmt.Sprintf("effective_to: %s", formatTime(*element.EffectiveTo)))
	}
	if element.ExternalSource != nil {
		lines = append(lines, fmt.Sprintf("external_source: %s", formatExternalSource(element.ExternalSource)))
	}
	if element.LikeCount != nil {
		lines = append(lines, fmt.Sprintf("likes: %d", *element.LikeCount))
	}
	if len(element.Properties) > 0 {
		keys := make([]string, 0, len(element.Properties))
		for key := range element.Properties {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		lines = append(lines, "properties:")
		for _, key := range keys {
			lines = append(lines, fmt.Sprintf("  %s: %v", key, element.Properties[key]))
		}
	}

	return writePlain("%s\n", strings.Join(lines, "\n"))
}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	badColor  = color.New(color.FgRed)
	dimColor  = color.New(color.Faint)
)

func formatElementLine(element api.ElementResponse) string {
	marker := okColor.Sprint("●")
	switch {
	case element.Status == models.StatusMemento:
		marker = badColor.Sprint("✗")
	case element.DuplicateOf != "":
		marker = warnColor.Sprint("≡")
	}
	name := chooseFirst(element.QualifiedName, element.GUID)
	return fmt.Sprintf("%s %s [%s] - %s", marker, element.GUID, element.TypeName, name)
}

func writeLikeList(likes []models.Like) error {
	if len(likes) == 0 {
		return writePlain("no likes\n")
	}
	for _, like := range likes {
		visibility := dimColor.Sprint("private")
		if like.IsPublic {
			visibility = okColor.Sprint("public")
		}
		line := fmt.Sprintf("%s %s by %s at %s", like.GUID, visibility, like.CreatedBy, formatTime(like.CreatedAt))
		if like.ExternalSource != nil {
			line += " via " + formatExternalSource(like.ExternalSource)
		}
		if err := writePlain("%s\n", line); err != nil {
			return err
		}
	}
	return nil
}

func formatExternalSource(src *models.ExternalSource) string {
	return chooseFirst(src.Name, src.GUID)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
