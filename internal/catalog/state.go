package catalog

import (
	"strings"

	pkgerrors "github.com/gosha22008/orders-backend/pkg/errors"
)

// ParseState converts a partner state flag. It accepts the same spellings as
// Python's distutils strtobool.
func ParseState(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "y", "yes", "t", "true", "on", "1":
		return true, nil
	case "n", "no", "f", "false", "off", "0":
		return false, nil
	}
	return false, pkgerrors.New(pkgerrors.CodeValidation, "invalid state value").
		WithDetails(map[string]any{"state": raw})
}
