package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidRecord signals an incomplete dispatch record.
var ErrInvalidRecord = errors.New("invalid dispatch record")

// ID represents a dispatch record identifier.
type ID = uuid.UUID

// Record describes one navigation handled by the history.
type Record struct {
	ID       ID                `json:"id"`
	Location string            `json:"location"`
	Pattern  string            `json:"pattern,omitempty"`
	Handler  string            `json:"handler,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Query    string            `json:"query,omitempty"`
	Matched  bool              `json:"matched"`
	Error    string            `json:"error,omitempty"`
	At       time.Time         `json:"at"`
}

// New builds a record for location. Unmatched records carry no pattern,
// handler or params; a matched record may have the empty pattern of a root
// default route.
func New(location string, matched bool, pattern, handler string, names, values []string, query string, at time.Time) (Record, error) {
	if matched && handler == "" {
		return Record{}, fmt.Errorf("%w: matched without handler", ErrInvalidRecord)
	}
	if !matched && (pattern != "" || handler != "" || len(names) > 0) {
		return Record{}, fmt.Errorf("%w: unmatched record with route data", ErrInvalidRecord)
	}
	if len(names) != len(values) {
		return Record{}, fmt.Errorf("%w: %d names for %d values", ErrInvalidRecord, len(names), len(values))
	}
	var params map[string]string
	if len(names) > 0 {
		params = make(map[string]string, len(names))
		for i, n := range names {
			params[n] = values[i]
		}
	}
	return Record{
		ID:       uuid.New(),
		Location: strings.TrimSpace(location),
		Pattern:  pattern,
		Handler:  handler,
		Params:   params,
		Query:    query,
		Matched:  matched,
		At:       at.UTC(),
	}, nil
}

// Failed reports whether the handler returned an error.
func (r Record) Failed() bool {
	return r.Error != ""
}
