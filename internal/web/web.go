package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"chronos/internal/ics"
	appLog "chronos/internal/log"
	"chronos/internal/model"
	"chronos/internal/schedule"
)

// Server exposes the schedule store over a JSON HTTP API for a
// presentation layer.
type Server struct {
	store     *schedule.Store
	weekStart string
	router    *mux.Router
}

// NewServer constructs a Server over store. weekStart is echoed by the
// month endpoint ("monday" or "sunday").
func NewServer(store *schedule.Store, weekStart string) *Server {
	s := &Server{
		store:     store,
		weekStart: weekStart,
		router:    mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.router.Use(requestLogMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/items", s.handleListItems).Methods(http.MethodGet)
	api.HandleFunc("/items", s.handleCreateItem).Methods(http.MethodPost)
	api.HandleFunc("/items/move", s.handleMoveItems).Methods(http.MethodPost)
	api.HandleFunc("/items/{id}", s.handleGetItem).Methods(http.MethodGet)
	api.HandleFunc("/items/{id}", s.handleUpdateItem).Methods(http.MethodPut)
	api.HandleFunc("/items/{id}", s.handleDeleteItem).Methods(http.MethodDelete)
	api.HandleFunc("/items/{id}/toggle", s.handleToggleItem).Methods(http.MethodPost)
	api.HandleFunc("/agenda", s.handleAgenda).Methods(http.MethodGet)
	api.HandleFunc("/month", s.handleMonth).Methods(http.MethodGet)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/export.ics", s.handleExport).Methods(http.MethodGet)
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleListItems returns every item in insertion order (the vault view).
func (s *Server) handleListItems(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, itemsResponse{Items: s.toDTOs(s.store.Items())})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, found := s.store.Get(id)
	if !found {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, s.toDTO(item, s.store.Today()))
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var in itemDTO
	if !decodeJSON(w, r, &in) {
		return
	}
	item, err := in.toItem(uuid.New())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.store.Add(item)
	writeJSON(w, http.StatusCreated, s.toDTO(item, s.store.Today()))
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in itemDTO
	if !decodeJSON(w, r, &in) {
		return
	}
	item, err := in.toItem(id)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.store.Update(item) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, s.toDTO(item, s.store.Today()))
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if !s.store.Remove(id) {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if !s.store.ToggleComplete(id) {
		if _, found := s.store.Get(id); found {
			writeError(w, http.StatusUnprocessableEntity, "only tasks can be completed")
			return
		}
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	item, _ := s.store.Get(id)
	writeJSON(w, http.StatusOK, s.toDTO(item, s.store.Today()))
}

// moveRequest is the body of POST /api/items/move.
type moveRequest struct {
	IDs  []uuid.UUID `json:"ids"`
	Date model.Date  `json:"date"`
}

func (s *Server) handleMoveItems(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Date.IsZero() {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	moved := s.store.MoveItems(req.IDs, req.Date)
	writeJSON(w, http.StatusOK, moveResponse{Moved: moved})
}

// handleAgenda returns the ordered agenda for ?date=YYYY-MM-DD (default today).
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	today := s.store.Today()
	date := today
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		date = d
	}

	items := s.store.ItemsForDate(date)
	dtos := make([]itemDTO, 0, len(items))
	for _, it := range items {
		dtos = append(dtos, s.toDTO(it, today))
	}
	writeJSON(w, http.StatusOK, agendaResponse{Date: date, Items: dtos})
}

// handleMonth returns busy days for ?month=YYYY-MM (default this month).
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	today := s.store.Today()
	year, month := today.Year, today.Month
	if raw := r.URL.Query().Get("month"); raw != "" {
		t, err := time.Parse("2006-01", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		year, month = t.Year(), t.Month()
	}

	days := s.store.MonthSummary(year, month)
	out := monthResponse{
		Month:     fmt.Sprintf("%04d-%02d", year, int(month)),
		WeekStart: s.weekStart,
		Days:      make([]dayDTO, 0, len(days)),
	}
	for _, d := range days {
		out.Days = append(out.Days, dayDTO{Date: d.Date, Count: d.Count, HasMissed: d.HasMissed})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, summaryResponse{
		Today:     s.store.Today(),
		Remaining: s.store.Remaining(),
		Missed:    len(s.store.Missed()),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	body := ics.Export(s.store.Items(), s.store.Location(), time.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="chronos.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return uuid.UUID{}, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
