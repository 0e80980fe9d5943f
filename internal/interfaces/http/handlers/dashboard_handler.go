package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/focosview/focosview/internal/dashboard/session"
	"github.com/focosview/focosview/internal/dashboard/state"
	"github.com/focosview/focosview/internal/dashboard/status"
	"github.com/focosview/focosview/internal/dashboard/view"
	"github.com/focosview/focosview/internal/infrastructure/archive"
	"github.com/focosview/focosview/internal/infrastructure/monitoring/logging"
	"github.com/focosview/focosview/pkg/errors"
)

const maxCommandBytes = 64 << 10

// RevisionHeader carries the view revision on every dashboard response.
const RevisionHeader = "X-View-Revision"

// Dashboard is the session surface the handler drives; *session.Session
// implements it.
type Dashboard interface {
	ID() string
	View() view.Document
	State() state.FilterState
	Status() status.Snapshot
	Dispatch(ctx context.Context, cmd session.Command) error
}

// History reads archived consistency checks; *archive.Archive implements it.
type History interface {
	List(ctx context.Context, opts archive.ListOptions) ([]archive.Entry, error)
}

// DashboardHandler exposes one dashboard session over HTTP.
type DashboardHandler struct {
	dash    Dashboard
	history History
	logger  logging.Logger
}

// NewDashboardHandler creates a DashboardHandler. history may be nil when
// the archive is disabled.
func NewDashboardHandler(dash Dashboard, history History, logger logging.Logger) *DashboardHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &DashboardHandler{dash: dash, history: history, logger: logger}
}

// CommandResponse acknowledges a dispatched command.
type CommandResponse struct {
	Session  string          `json:"session"`
	Revision uint64          `json:"revision"`
	Status   status.Snapshot `json:"status"`
}

// View handles GET /api/view. With ?since=<revision> it answers 304 while
// the view has not moved past that revision.
func (h *DashboardHandler) View(w http.ResponseWriter, r *http.Request) {
	doc := h.dash.View()
	w.Header().Set(RevisionHeader, strconv.FormatUint(doc.Revision, 10))
	if since := r.URL.Query().Get("since"); since != "" {
		if rev, err := strconv.ParseUint(since, 10, 64); err == nil && doc.Revision <= rev {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	writeJSON(w, http.StatusOK, doc)
}

// State handles GET /api/state.
func (h *DashboardHandler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dash.State())
}

// Status handles GET /api/status.
func (h *DashboardHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dash.Status())
}

// Command handles POST /api/commands.
func (h *DashboardHandler) Command(w http.ResponseWriter, r *http.Request) {
	var cmd session.Command
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		writeAppError(w, errors.Wrap(err, errors.CodeInvalidParam, "malformed command"))
		return
	}

	if err := h.dash.Dispatch(r.Context(), cmd); err != nil {
		h.logger.Debug("command refused", logging.String("type", string(cmd.Type)), logging.Err(err))
		writeAppError(w, err)
		return
	}

	doc := h.dash.View()
	w.Header().Set(RevisionHeader, strconv.FormatUint(doc.Revision, 10))
	writeJSON(w, http.StatusAccepted, CommandResponse{
		Session:  h.dash.ID(),
		Revision: doc.Revision,
		Status:   h.dash.Status(),
	})
}

// History handles GET /api/history?limit=&inconsistent=&since=.
func (h *DashboardHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeAppError(w, errors.New(errors.ErrCodeServiceUnavailable, "consistency archive disabled"))
		return
	}
	opts := archive.ListOptions{
		Limit:            queryInt(r, "limit", 50, 1000),
		OnlyInconsistent: r.URL.Query().Get("inconsistent") == "true",
	}
	if since := r.URL.Query().Get("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeAppError(w, errors.InvalidParam("since must be RFC 3339").WithDetail("since="+since))
			return
		}
		opts.Since = ts
	}

	entries, err := h.history.List(r.Context(), opts)
	if err != nil {
		h.logger.Warn("history unavailable", logging.Err(err))
		writeAppError(w, err)
		return
	}
	if entries == nil {
		entries = []archive.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
