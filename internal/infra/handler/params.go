package handler

import (
	"fmt"
	"net/http"
	"strconv"
)

func readQueryInt(r *http.Request, key string, min, max, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return parseInt(key, raw, min, max)
}

func readQueryBool(r *http.Request, key string, def bool) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return v, nil
}

func parseInt(name, value string, min, max int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if v < min {
		return 0, fmt.Errorf("%s must be >= %d", name, min)
	}
	if max > 0 && v > max {
		return 0, fmt.Errorf("%s must be <= %d", name, max)
	}
	return v, nil
}
