package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"finanzas/internal/core"
	"finanzas/internal/log"
	"finanzas/internal/recurrence"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Data(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	start, end, err := ParseRange(r.URL.Query(), s.now())
	if err != nil {
		WriteError(w, r, log.OpSummary, err)
		return
	}
	t, err := s.ledger.Summary(r.Context(), start.Time, end.Time)
	if err != nil {
		WriteError(w, r, log.OpSummary, err)
		return
	}
	NewJSONResponse().Data(summaryView{
		Start:  start.String(),
		End:    end.String(),
		Totals: totals(t),
	}).Write(w)
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params, err := ParseMonthParams(q, s.now())
	if err != nil {
		WriteError(w, r, log.OpRead, err)
		return
	}
	ascending, err := ParseOrder(q)
	if err != nil {
		WriteError(w, r, log.OpRead, err)
		return
	}
	ov, err := s.ledger.Month(r.Context(), params.Year, params.Month, ascending)
	if err != nil {
		WriteError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(month(ov)).Write(w)
}

func (s *Server) handleMonthTotal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params, err := ParseMonthParams(q, s.now())
	if err != nil {
		WriteError(w, r, log.OpSummary, err)
		return
	}
	kind, err := ParseKind(q)
	if err != nil {
		WriteError(w, r, log.OpSummary, err)
		return
	}
	if kind == "" {
		WriteError(w, r, log.OpSummary, fmt.Errorf("%w: kind is required", ErrBadRequest))
		return
	}
	total, err := s.ledger.MonthTotal(r.Context(), kind, params.Year, params.Month)
	if err != nil {
		WriteError(w, r, log.OpSummary, err)
		return
	}
	NewJSONResponse().Data(monthTotalView{
		Year:  params.Year,
		Month: params.Month,
		Kind:  string(kind),
		Total: amount(total),
	}).Write(w)
}

func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	day, err := ParseDateParam(r.URL.Query(), "date", s.now())
	if err != nil {
		WriteError(w, r, log.OpRead, err)
		return
	}
	rows, err := s.ledger.Day(r.Context(), day)
	if err != nil {
		WriteError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(dayView{
		Date:         day.String(),
		Total:        amount(recurrence.TotalOf(rows)),
		Transactions: transactions(rows),
	}).Write(w)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	params, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		WriteError(w, r, log.OpRead, err)
		return
	}
	marks, err := s.ledger.Calendar(r.Context(), params.Year, params.Month)
	if err != nil {
		WriteError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Data(calendarView{Year: params.Year, Month: params.Month, Days: marks}).Write(w)
}

func (s *Server) handlePeriod(w http.ResponseWriter, r *http.Request) {
	ref, err := ParseDateParam(r.URL.Query(), "date", s.now())
	if err != nil {
		WriteError(w, r, log.OpSummary, err)
		return
	}
	p, err := s.ledger.Period(r.Context(), ref)
	if err != nil {
		WriteError(w, r, log.OpSummary, err)
		return
	}
	NewJSONResponse().Data(periodSummary(p)).Write(w)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		rs  []core.Record
		err error
	)
	if strings.EqualFold(q.Get("archived"), "true") {
		rs, err = s.ledger.ListArchived(r.Context())
	} else {
		var kind core.RecordKind
		if kind, err = ParseKind(q); err == nil {
			rs, err = s.ledger.ListRecords(r.Context(), kind)
		}
	}
	if err != nil {
		WriteError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Data(records(rs)).Write(w)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var in core.Record
	if err := DecodeJSON(w, r, &in); err != nil {
		WriteError(w, r, log.OpCreate, err)
		return
	}
	created, err := s.ledger.CreateRecord(r.Context(), sanitizeRecord(in))
	if err != nil {
		WriteError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/records/"+created.ID).
		Data(records([]core.Record{created})[0]).
		Write(w)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteRecord(r.Context(), r.PathValue("id")); err != nil {
		WriteError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleArchiveRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.ArchiveRecord(r.Context(), r.PathValue("id")); err != nil {
		WriteError(w, r, log.OpArchive, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handlePayInstallment accepts an empty body for the record's own plan or
// {"item": name} for a group item.
func (s *Server) handlePayInstallment(w http.ResponseWriter, r *http.Request) {
	var in installmentRequest
	if r.ContentLength != 0 {
		if err := DecodeJSON(w, r, &in); err != nil && !errors.Is(err, errEmptyBody) {
			WriteError(w, r, log.OpUpdate, err)
			return
		}
	}
	updated, err := s.ledger.PayInstallment(r.Context(), r.PathValue("id"), sanitizeInput(in.Item))
	if err != nil {
		WriteError(w, r, log.OpUpdate, err)
		return
	}
	NewJSONResponse().Data(records([]core.Record{updated})[0]).Write(w)
}
