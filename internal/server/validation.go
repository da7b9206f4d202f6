package server

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"kudos/internal/models"
	"kudos/internal/store"
)

func validateGUID(guid string) bool {
	return store.IsGUID(guid)
}

func requireGUID(raw, name string) (string, error) {
	guid := strings.TrimSpace(raw)
	if guid == "" {
		return "", badRequestCode(fmt.Errorf("%s is required", name), ErrCodeMissingRequired)
	}
	if !validateGUID(guid) {
		return "", badRequestCode(fmt.Errorf("invalid %s", name), ErrCodeInvalidGUID)
	}
	return guid, nil
}

func requireUserID(raw string) (string, error) {
	userID := strings.TrimSpace(raw)
	if userID == "" {
		return "", badRequestCode(fmt.Errorf("user id is required"), ErrCodeInvalidUserID)
	}
	return userID, nil
}

func normalizeTypeName(value string) (string, error) {
	typeName, err := models.ParseElementTypeName(value)
	if err != nil {
		return "", badRequestCode(err, ErrCodeInvalidType)
	}
	return typeName, nil
}

func normalizeZone(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", badRequestCode(fmt.Errorf("zone is required"), ErrCodeMissingRequired)
	}
	for _, r := range value {
		if r > unicode.MaxASCII || unicode.IsSpace(r) {
			return "", badRequestCode(fmt.Errorf("zone must be ascii and non-space"), ErrCodeInvalidZone)
		}
	}
	return strings.ToLower(value), nil
}

func normalizeZones(values []string) ([]string, error) {
	zones := make([]string, 0, len(values))
	seen := map[string]struct{}{}
	for _, value := range values {
		zone, err := normalizeZone(value)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[zone]; ok {
			continue
		}
		seen[zone] = struct{}{}
		zones = append(zones, zone)
	}
	sort.Strings(zones)
	return zones, nil
}

// checkSupportedZones rejects zones outside supported. An empty supported
// list accepts any zone.
func checkSupportedZones(zones, supported []string) error {
	if len(supported) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(supported))
	for _, zone := range supported {
		allowed[zone] = struct{}{}
	}
	for _, zone := range zones {
		if _, ok := allowed[zone]; !ok {
			return badRequestCode(fmt.Errorf("unsupported zone: %s", zone), ErrCodeInvalidZone)
		}
	}
	return nil
}

func parseOrdering(value string) (models.SequencingOrder, error) {
	order, err := models.ParseSequencingOrder(value)
	if err != nil {
		return "", badRequestCode(err, ErrCodeInvalidOrdering)
	}
	return order, nil
}
