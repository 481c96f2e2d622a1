package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/shopbridge/shopbridge-backend/pkg/errors"
)

// ParseQueryInt reads an optional integer query parameter bounded by [min, max].
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseQueryEnum reads an optional case-insensitive enum query parameter.
// ok is false when the parameter is absent.
func ParseQueryEnum[T any](r *http.Request, key string, parse func(string) (T, error)) (value T, ok bool, err error) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key)))
	if raw == "" {
		return value, false, nil
	}
	parsed, parseErr := parse(raw)
	if parseErr != nil {
		return value, false, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid "+key).
			WithDetails(map[string]any{"field": key, "value": raw})
	}
	return parsed, true, nil
}
