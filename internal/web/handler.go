package web

import (
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/focusd/focusd/internal/config"
	"github.com/focusd/focusd/internal/database"
	"github.com/focusd/focusd/internal/dispatcher"
	"github.com/focusd/focusd/internal/models"
	"github.com/focusd/focusd/internal/reporter"
	"github.com/focusd/focusd/pkg/utils"
)

// StatusSource exposes the live tracker state.
type StatusSource interface {
	Status() *dispatcher.Status
}

type Handler struct {
	config   *config.Config
	repo     *database.Repository
	reporter *reporter.Reporter
	status   StatusSource
	cache    *expirable.LRU[string, []byte]
	logger   zerolog.Logger
	now      func() time.Time
}

func NewHandler(cfg *config.Config, repo *database.Repository, status StatusSource, logger zerolog.Logger) *Handler {
	size := cfg.Web.CacheSize
	if size <= 0 {
		size = 1
	}
	return &Handler{
		config:   cfg,
		repo:     repo,
		reporter: reporter.New(cfg, repo),
		status:   status,
		cache:    expirable.NewLRU[string, []byte](size, nil, cfg.Web.CacheTTL),
		logger:   logger,
		now:      time.Now,
	}
}

type sessionView struct {
	Key             string     `json:"key"`
	App             string     `json:"app"`
	Title           string     `json:"title"`
	Workspace       string     `json:"workspace,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	DurationSeconds int64      `json:"duration_seconds"`
	AfkSince        *time.Time `json:"afk_since,omitempty"`
}

type statusView struct {
	Running   bool         `json:"running"`
	State     string       `json:"state,omitempty"`
	Afk       bool         `json:"afk"`
	Session   *sessionView `json:"session,omitempty"`
	LastEvent *time.Time   `json:"last_event,omitempty"`
	Accepted  uint64       `json:"events_accepted"`
	Dropped   uint64       `json:"events_dropped"`

	PollInterval  string `json:"poll_interval"`
	IdleThreshold string `json:"idle_threshold"`
	DatabasePath  string `json:"database_path"`
	ExcludeAfk    bool   `json:"exclude_afk"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	view := statusView{
		PollInterval:  h.config.Tracker.PollInterval.String(),
		IdleThreshold: h.config.Tracker.IdleThreshold.String(),
		DatabasePath:  h.config.Database.Path,
		ExcludeAfk:    h.config.Report.ExcludeAfk,
	}

	var st *dispatcher.Status
	if h.status != nil {
		st = h.status.Status()
	}
	if st != nil {
		view.Running = true
		view.State = st.State.String()
		view.Afk = st.Afk
		view.Accepted = st.Accepted
		view.Dropped = st.Dropped
		if !st.LastEvent.IsZero() {
			last := st.LastEvent
			view.LastEvent = &last
		}
		if s := st.Session; s != nil {
			view.Session = &sessionView{
				Key:             s.Key,
				App:             s.Window.App,
				Title:           s.Window.Title,
				Workspace:       s.Window.Workspace,
				StartTime:       s.StartTime,
				DurationSeconds: int64(s.DurationAt(h.now()).Seconds()),
				AfkSince:        s.AfkSince,
			}
		}
	}

	if isHTMX(r) {
		h.respondStatusHTML(w, view)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *Handler) respondStatusHTML(w http.ResponseWriter, view statusView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	switch {
	case !view.Running:
		fmt.Fprint(w, `<div class="loading">Tracker not running in this process</div>`)
	case view.Session == nil:
		fmt.Fprint(w, `<div class="loading">No focused window</div>`)
	default:
		s := view.Session
		state := "active"
		if view.Afk {
			state = "away since " + utils.Ago(*s.AfkSince)
		}
		fmt.Fprintf(w, `<div class="app-item"><span class="app-name">%s</span><div><span class="app-time">%s</span><span class="app-percentage">%s</span></div></div>`,
			html.EscapeString(s.App), utils.FormatDuration(s.DurationSeconds), html.EscapeString(state))
		fmt.Fprintf(w, `<div class="total">%s</div>`, html.EscapeString(utils.Truncate(s.Title, 80)))
	}
}

// handleUsage lists raw sessions. from and to accept RFC 3339, a date or an
// English expression; the default window is the last 24 hours.
func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	start, end := now.Add(-24*time.Hour), now.Add(time.Second)

	var err error
	if from := r.URL.Query().Get("from"); from != "" {
		if start, err = h.reporter.ParseTime(from, now); err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if end, err = h.reporter.ParseTime(to, now); err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
	}
	if !start.Before(end) {
		respondError(w, http.StatusBadRequest, errors.New("from must be before to"))
		return
	}

	records, err := h.repo.ListWindowUsage(r.Context(), start, end)
	if err != nil {
		h.serverError(w, err)
		return
	}

	if limit := queryInt(r, "limit", 0); limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}

	respondJSON(w, http.StatusOK, records)
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	rec, err := h.repo.Latest(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, errors.New("no usage recorded"))
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	h.cached(w, r, func() (int, []byte, string, error) {
		var (
			report *models.Report
			err    error
		)
		if since := r.URL.Query().Get("since"); since != "" {
			report, err = h.reporter.GenerateSince(r.Context(), since)
		} else {
			report, err = h.reporter.GenerateReport(r.Context(), period(r))
		}
		if err != nil {
			return http.StatusBadRequest, nil, "", err
		}

		if r.URL.Query().Get("format") == "text" {
			return http.StatusOK, []byte(h.reporter.FormatReportText(report)), "text/plain; charset=utf-8", nil
		}
		body, err := json.Marshal(report)
		return http.StatusOK, body, "application/json", err
	})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	h.cached(w, r, func() (int, []byte, string, error) {
		report, err := h.reporter.GenerateReport(r.Context(), period(r))
		if err != nil {
			return http.StatusBadRequest, nil, "", err
		}

		if isHTMX(r) {
			return http.StatusOK, summaryHTML(report), "text/html; charset=utf-8", nil
		}

		body, err := json.Marshal(map[string]interface{}{
			"period":        report.Period,
			"apps":          report.Apps,
			"total_seconds": report.TotalSeconds,
			"total_minutes": report.TotalMinutes,
			"total_hours":   report.TotalHours,
		})
		return http.StatusOK, body, "application/json", err
	})
}

func summaryHTML(report *models.Report) []byte {
	var b strings.Builder

	if len(report.Apps) == 0 {
		b.WriteString(`<div class="loading">No data available</div>`)
		return []byte(b.String())
	}

	b.WriteString(`<div class="listing">`)
	for _, app := range report.Apps {
		name := app.AppName
		if app.DisplayName != "" {
			name = app.DisplayName
		}

		percentStr := fmt.Sprintf("%.1f%%", app.Percentage)
		if app.Percentage < 10 {
			percentStr = "&nbsp;&nbsp;" + percentStr
		} else if app.Percentage < 100 {
			percentStr = "&nbsp;" + percentStr
		}

		fmt.Fprintf(&b, `
		<div class="app-item" style="--bar-width: %.1f%%">
			<span class="app-name">%s</span>
			<div>
				<span class="app-time">%s</span>
				<span class="app-percentage">%s</span>
			</div>
		</div>`, app.Percentage, html.EscapeString(name), utils.FormatRoundedUnit(app.TotalSeconds), percentStr)
	}
	b.WriteString(`</div>`)

	fmt.Fprintf(&b, `<div class="total">Total: %s</div>`, utils.FormatRoundedUnit(report.TotalSeconds))
	if report.AfkIntervals > 0 {
		fmt.Fprintf(&b, `<div class="afk">Away: %s</div>`, utils.FormatRoundedUnit(report.AfkSeconds))
	}
	return []byte(b.String())
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	loc, err := h.config.Location()
	if err != nil {
		h.serverError(w, err)
		return
	}
	now := h.now().In(loc)

	apps, err := h.repo.TodayAppTotals(r.Context(), now)
	if err != nil {
		h.serverError(w, err)
		return
	}
	hours, err := h.repo.HourlyTotals(r.Context(), now)
	if err != nil {
		h.serverError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":   database.StartOfDay(now).Format("2006-01-02"),
		"apps":   apps,
		"hourly": hours,
	})
}

// handleAfk lists AFK intervals for ?from&to, or for ?period when no range
// is given.
func (h *Handler) handleAfk(w http.ResponseWriter, r *http.Request) {
	var (
		report *models.Report
		err    error
	)
	if from := r.URL.Query().Get("from"); from != "" {
		now := h.now()
		end := now
		start, perr := h.reporter.ParseTime(from, now)
		if perr == nil {
			if to := r.URL.Query().Get("to"); to != "" {
				end, perr = h.reporter.ParseTime(to, now)
			}
		}
		if perr != nil {
			respondError(w, http.StatusBadRequest, perr)
			return
		}
		report, err = h.reporter.GenerateRange(r.Context(), start, end)
	} else {
		report, err = h.reporter.GenerateReport(r.Context(), period(r))
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	intervals, err := h.repo.ListAfkIntervals(r.Context(), report.Period.Start, report.Period.End)
	if err != nil {
		h.serverError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"period":        report.Period,
		"intervals":     intervals,
		"total_seconds": report.AfkSeconds,
	})
}

func (h *Handler) handleErrors(w http.ResponseWriter, r *http.Request) {
	logs, err := h.repo.ListErrorLogs(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		h.serverError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, logs)
}

func (h *Handler) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := h.repo.ListGoals(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, goals)
}

func (h *Handler) handleGoalProgress(w http.ResponseWriter, r *http.Request) {
	loc, err := h.config.Location()
	if err != nil {
		h.serverError(w, err)
		return
	}
	progress, err := h.repo.GoalProgress(r.Context(), h.now().In(loc))
	if err != nil {
		h.serverError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, progress)
}

type goalRequest struct {
	MaxMinutes    int   `json:"max_minutes"`
	NotifyEnabled *bool `json:"notify_enabled"`
}

func (h *Handler) handlePutGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errors.Wrap(err, "invalid body"))
		return
	}

	goal := &models.DailyGoal{
		AppIdentifier: chi.URLParam(r, "app"),
		MaxMinutes:    req.MaxMinutes,
		NotifyEnabled: req.NotifyEnabled == nil || *req.NotifyEnabled,
	}
	if err := h.repo.UpsertGoal(r.Context(), goal); err != nil {
		h.writeError(w, err)
		return
	}
	h.cache.Purge()

	saved, err := h.repo.GetGoal(r.Context(), goal.AppIdentifier)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, saved)
}

func (h *Handler) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteGoal(r.Context(), chi.URLParam(r, "app")); err != nil {
		h.writeError(w, err)
		return
	}
	h.cache.Purge()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListAliases(w http.ResponseWriter, r *http.Request) {
	aliases, err := h.repo.ListAliases(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, aliases)
}

func (h *Handler) handlePutAlias(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Alias string `json:"alias"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errors.Wrap(err, "invalid body"))
		return
	}

	app := chi.URLParam(r, "app")
	if err := h.repo.SetAlias(r.Context(), app, req.Alias); err != nil {
		h.writeError(w, err)
		return
	}
	h.cache.Purge()
	respondJSON(w, http.StatusOK, map[string]string{"app_identifier": app, "alias": req.Alias})
}

func (h *Handler) handleDeleteAlias(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteAlias(r.Context(), chi.URLParam(r, "app")); err != nil {
		h.writeError(w, err)
		return
	}
	h.cache.Purge()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   h.now().Format(time.RFC3339),
	})
}

// cached serves a GET response from the LRU when present. Only successful
// renders are stored; any write to goals, aliases or categories purges the
// cache.
func (h *Handler) cached(w http.ResponseWriter, r *http.Request, render func() (int, []byte, string, error)) {
	key := r.URL.RequestURI()
	if isHTMX(r) {
		key = "hx:" + key
	}

	if body, ok := h.cache.Get(key); ok {
		writeBody(w, http.StatusOK, contentType(key, r), body)
		return
	}

	code, body, ctype, err := render()
	if err != nil {
		respondError(w, code, err)
		return
	}
	h.cache.Add(key, body)
	writeBody(w, code, ctype, body)
}

func contentType(key string, r *http.Request) string {
	switch {
	case strings.HasPrefix(key, "hx:"):
		return "text/html; charset=utf-8"
	case r.URL.Query().Get("format") == "text":
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, err)
	case errors.Is(err, database.ErrInvalidRecord):
		respondError(w, http.StatusBadRequest, err)
	case errors.Is(err, database.ErrDuplicate):
		respondError(w, http.StatusConflict, err)
	default:
		h.serverError(w, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, err error) {
	h.logger.Error().Err(err).Msg("request failed")
	respondError(w, http.StatusInternalServerError, err)
}

func period(r *http.Request) string {
	p := r.URL.Query().Get("period")
	if p == "" {
		return "day"
	}
	return p
}

func queryInt(r *http.Request, name string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil && v > 0 {
		return v
	}
	return def
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeBody(w http.ResponseWriter, code int, ctype string, body []byte) {
	setCORS(w)
	w.Header().Set("Content-Type", ctype)
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

func respondJSON(w http.ResponseWriter, code int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeBody(w, code, "application/json", body)
}

func respondError(w http.ResponseWriter, code int, err error) {
	respondJSON(w, code, map[string]string{"error": err.Error()})
}
