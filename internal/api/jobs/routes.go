// Package jobs provides the /api/jobs endpoints over the job ledger.
package jobs

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zlovtnik/stripe-lunar/internal/api/common"
	"github.com/zlovtnik/stripe-lunar/internal/etl"
	"github.com/zlovtnik/stripe-lunar/internal/export"
	"github.com/zlovtnik/stripe-lunar/internal/ledger"
)

// localDateTime is accepted for startDate alongside RFC 3339
const localDateTime = "2006-01-02T15:04:05"

// Routes serves the job history endpoints
type Routes struct {
	ledger ledger.Ledger
	now    func() time.Time
}

// Router creates the /api/jobs router
func Router(l ledger.Ledger) http.Handler {
	return newRouter(&Routes{
		ledger: l,
		now:    time.Now,
	})
}

func newRouter(routes *Routes) chi.Router {
	r := chi.NewRouter()
	r.Get("/", routes.listByOperation)
	r.Get("/recent", routes.listRecent)
	r.Get("/last", routes.last)
	r.Get("/statistics", routes.statistics)
	r.Get("/export", routes.exportCSV)
	return r
}

func (rr *Routes) listByOperation(w http.ResponseWriter, r *http.Request) {
	jobName := r.URL.Query().Get("jobName")
	if jobName == "" {
		common.WriteErrorResponse(w, "jobName is required", http.StatusBadRequest)
		return
	}

	records, err := rr.ledger.ListByOperation(r.Context(), etl.Operation(jobName))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSONResponse(w, records, http.StatusOK)
}

func (rr *Routes) listRecent(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("startDate")
	if raw == "" {
		common.WriteErrorResponse(w, "startDate is required", http.StatusBadRequest)
		return
	}
	since, err := ParseStartDate(raw)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := rr.ledger.ListSince(r.Context(), since)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSONResponse(w, records, http.StatusOK)
}

func (rr *Routes) last(w http.ResponseWriter, r *http.Request) {
	jobName := r.URL.Query().Get("jobName")
	if jobName == "" {
		common.WriteErrorResponse(w, "jobName is required", http.StatusBadRequest)
		return
	}

	record, err := rr.ledger.Last(r.Context(), etl.Operation(jobName))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if record == nil {
		common.WriteErrorResponse(w, fmt.Sprintf("no executions of %s", jobName), http.StatusNotFound)
		return
	}
	common.WriteJSONResponse(w, record, http.StatusOK)
}

func (rr *Routes) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := rr.ledger.Statistics(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.WriteJSONResponse(w, stats, http.StatusOK)
}

func (rr *Routes) exportCSV(w http.ResponseWriter, r *http.Request) {
	filter := export.Filter{JobName: r.URL.Query().Get("jobName")}
	if raw := r.URL.Query().Get("startDate"); raw != "" {
		since, err := ParseStartDate(raw)
		if err != nil {
			common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.Since = &since
	}

	now := rr.now()
	records, err := export.Jobs(r.Context(), rr.ledger, filter, now)
	if err != nil {
		common.WriteError(w, err)
		return
	}

	slog.Info("Exporting job history", "job_name", filter.JobName, "jobs", len(records))

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(now)))
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, records); err != nil {
		slog.Error("Failed to write job history export", "error", err)
	}
}

// ParseStartDate accepts RFC 3339 or a local date-time without offset
func ParseStartDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(localDateTime, raw, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid startDate %q: expected RFC 3339 or %s", raw, localDateTime)
}
