package handlers

import (
	"net/http"

	"github.com/benvon/taskwise/internal/models"
	"github.com/benvon/taskwise/internal/projection"
	"github.com/benvon/taskwise/internal/store"
	"github.com/gorilla/mux"
)

// ViewHandler serves read-only projections of the collection
type ViewHandler struct {
	store *store.Store
}

// NewViewHandler creates a new view handler
func NewViewHandler(s *store.Store) *ViewHandler {
	return &ViewHandler{store: s}
}

// RegisterRoutes registers view and lookup routes on the API router
func (h *ViewHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/views/recurrence", h.RecurrenceView).Methods("GET")
	r.HandleFunc("/views/categories", h.CategoryView).Methods("GET")
	r.HandleFunc("/views/calendar", h.CalendarView).Methods("GET")
	r.HandleFunc("/views/markers", h.Markers).Methods("GET")
	r.HandleFunc("/views/calendar.ics", h.CalendarICS).Methods("GET")
	r.HandleFunc("/categories", h.Categories).Methods("GET")
	r.HandleFunc("/recurrences", h.Recurrences).Methods("GET")
}

// CalendarResponse is the task list for one day
type CalendarResponse struct {
	Date  models.Date   `json:"date"`
	Tasks []models.Task `json:"tasks"`
}

// RecurrenceView returns the daily, weekly, monthly and other buckets
func (h *ViewHandler) RecurrenceView(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, projection.ByRecurrence(h.store.Snapshot(r.Context())))
}

// CategoryView returns non-recurring tasks grouped by category
func (h *ViewHandler) CategoryView(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, projection.ByCategory(h.store.Snapshot(r.Context())).Groups())
}

// CalendarView returns the tasks due on ?date=YYYY-MM-DD, today when omitted
func (h *ViewHandler) CalendarView(w http.ResponseWriter, r *http.Request) {
	loc := h.store.Location()
	date := models.DateOf(h.store.Now(), loc)
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := models.ParseDate(raw)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		date = parsed
	}

	respondJSON(w, http.StatusOK, CalendarResponse{
		Date:  date,
		Tasks: projection.OnDate(h.store.Snapshot(r.Context()), date, loc),
	})
}

// Markers returns the distinct due dates for calendar highlighting
func (h *ViewHandler) Markers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, projection.DueDateMarkers(h.store.Snapshot(r.Context()), h.store.Location()))
}

// CalendarICS exports dated tasks as an iCalendar document
func (h *ViewHandler) CalendarICS(w http.ResponseWriter, r *http.Request) {
	body := projection.CalendarICS(h.store.Snapshot(r.Context()), h.store.Now(), h.store.Location())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="taskwise.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// Categories returns the category lookup table in canonical order
func (h *ViewHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories := models.Categories()
	out := make([]models.Info, 0, len(categories))
	for _, c := range categories {
		out = append(out, c.Info())
	}
	respondJSON(w, http.StatusOK, out)
}

// Recurrences returns the recurrence lookup table in canonical order
func (h *ViewHandler) Recurrences(w http.ResponseWriter, r *http.Request) {
	recurrences := models.Recurrences()
	out := make([]models.Info, 0, len(recurrences))
	for _, rec := range recurrences {
		out = append(out, rec.Info())
	}
	respondJSON(w, http.StatusOK, out)
}
