package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/services"
	"finanzas/internal/store"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/records/x").
		Data(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if w.Header().Get("Location") != "/api/records/x" {
		t.Errorf("Location = %q", w.Header().Get("Location"))
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if strings.TrimSpace(w.Body.String()) != `{"n":1}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)

	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
	if w.Header().Get("Content-Type") != "" {
		t.Errorf("unexpected Content-Type %q", w.Header().Get("Content-Type"))
	}
}

func TestErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	UnprocessableEntityError("name is empty").Write(w)

	var body errorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != http.StatusUnprocessableEntity || body.Error != "name is empty" {
		t.Errorf("body = %+v", body)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: month", ErrBadRequest), http.StatusBadRequest},
		{fmt.Errorf("delete x: %w", store.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: %w", services.ErrValidation, core.ErrEmptyName), http.StatusUnprocessableEntity},
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	r = r.WithContext(log.NewContext(r.Context(), log.Discard()))
	w := httptest.NewRecorder()

	WriteError(w, r, log.OpSummary, errors.New("sqlite: database is locked"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "sqlite") {
		t.Errorf("internal error leaked: %s", w.Body.String())
	}
}

func TestAmountView(t *testing.T) {
	v := amount(core.Money{Cents: -1205})
	if v.Value != "-12.05" || v.Cents != -1205 {
		t.Errorf("amount = %+v", v)
	}
}
