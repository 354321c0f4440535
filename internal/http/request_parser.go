// Package http serves the ledger as a JSON API.
//
// This file holds the query and body parsing shared by the handlers. Query
// parameters are strict: a malformed value is a 400, never a silent default.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finanzas/internal/core"
)

// maxBodyBytes bounds record payloads.
const maxBodyBytes = 1 << 20

// ErrBadRequest marks malformed client input.
var ErrBadRequest = errors.New("bad request")

var errEmptyBody = fmt.Errorf("%w: empty body", ErrBadRequest)

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams reads year and month, defaulting each to now's.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{Year: now.Year(), Month: int(now.Month())}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return MonthParams{}, fmt.Errorf("%w: invalid year %q", ErrBadRequest, v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, fmt.Errorf("%w: invalid month %q", ErrBadRequest, v)
		}
		params.Month = m
	}
	return params, nil
}

// ParseDateParam reads a YYYY-MM-DD parameter, defaulting to now's day.
func ParseDateParam(query url.Values, name string, now time.Time) (core.Date, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return core.DateOf(now), nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: invalid %s %q", ErrBadRequest, name, v)
	}
	return d, nil
}

// ParseRange reads start and end. Both default to the bounds of now's
// month so a bare request sums the current month.
func ParseRange(query url.Values, now time.Time) (core.Date, core.Date, error) {
	first := core.NewDate(now.Year(), int(now.Month()), 1)
	last := core.NewDate(now.Year(), int(now.Month()), core.DaysIn(now.Year(), int(now.Month())))

	start, end := first, last
	var err error
	if strings.TrimSpace(query.Get("start")) != "" {
		if start, err = ParseDateParam(query, "start", now); err != nil {
			return core.Date{}, core.Date{}, err
		}
	}
	if strings.TrimSpace(query.Get("end")) != "" {
		if end, err = ParseDateParam(query, "end", now); err != nil {
			return core.Date{}, core.Date{}, err
		}
	}
	return start, end, nil
}

// ParseKind reads an optional record kind.
func ParseKind(query url.Values) (core.RecordKind, error) {
	v := core.RecordKind(strings.ToLower(strings.TrimSpace(query.Get("kind"))))
	if v != "" && !v.IsValid() {
		return "", fmt.Errorf("%w: invalid kind %q", ErrBadRequest, v)
	}
	return v, nil
}

// ParseOrder reads order=asc|desc; descending is the default.
func ParseOrder(query url.Values) (ascending bool, err error) {
	switch strings.ToLower(strings.TrimSpace(query.Get("order"))) {
	case "", "desc":
		return false, nil
	case "asc":
		return true, nil
	default:
		return false, fmt.Errorf("%w: invalid order %q", ErrBadRequest, query.Get("order"))
	}
}

// DecodeJSON reads one JSON value from a bounded request body, rejecting
// unknown fields and trailing data.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("%w: content type %q is not JSON", ErrBadRequest, ct)
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", ErrBadRequest)
	}
	return nil
}
