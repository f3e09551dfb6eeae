package handler

import (
	"errors"
	"strconv"
	"strings"
)

var (
	errInvalidIDList = errors.New("must be a comma-separated list of ids")
	errInvalidBool   = errors.New("must be a boolean")
)

// parseIDList parses "1,2,3" into ids. An empty string means no filter.
func parseIDList(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			return nil, errInvalidIDList
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseFlag parses an optional boolean query parameter.
func parseFlag(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errInvalidBool
	}
	return v, nil
}
