package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sagerenn/dictd/internal/dict"
	"github.com/sagerenn/dictd/internal/observability"
	"github.com/sagerenn/dictd/internal/present"
	"github.com/sagerenn/dictd/internal/service"
	"github.com/sagerenn/dictd/internal/session"
)

type Options struct {
	BasePath string
	// WaitTimeout bounds how long a query request waits for its result.
	WaitTimeout time.Duration
}

type Router struct {
	svc         *service.Service
	sessions    *session.Manager
	log         *slog.Logger
	basePath    string
	waitTimeout time.Duration
}

type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

type dictResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type sessionResponse struct {
	ID string `json:"id"`
}

type queryRequest struct {
	Query *string `json:"query"`
}

type navigationResponse struct {
	ID   string `json:"id"`
	Word string `json:"word"`
	Href string `json:"href"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewRouter(svc *service.Service, sessions *session.Manager, log *observability.Logger, opts Options) http.Handler {
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 10 * time.Second
	}
	r := &Router{
		svc:         svc,
		sessions:    sessions,
		log:         log.With("component", "http"),
		basePath:    normalizeBasePath(opts.BasePath),
		waitTimeout: opts.WaitTimeout,
	}

	api := chi.NewRouter()
	api.Get("/health", r.handleHealth)
	api.Get("/dicts", r.handleDicts)
	api.Get("/lookup", r.handleLookup)
	api.Get("/words/{id}", r.handleWord)
	api.Handle("/debug/vars", expvar.Handler())
	api.Route("/sessions", func(sr chi.Router) {
		sr.Post("/", r.handleCreateSession)
		sr.Get("/{id}", r.handleGetSession)
		sr.Delete("/{id}", r.handleDeleteSession)
		sr.Post("/{id}/query", r.handleQuery)
		sr.Post("/{id}/select/{pos}", r.handleSelect)
	})

	root := chi.NewRouter()
	root.Use(observability.RequestIDMiddleware)
	root.Use(observability.LoggingMiddleware(log))
	root.Use(observability.RecoveryMiddleware(log))
	if r.basePath != "" {
		root.Mount(r.basePath, api)
	}
	root.Mount("/", api)
	return root
}

func (r *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Time: time.Now().UTC()})
}

func (r *Router) handleDicts(w http.ResponseWriter, _ *http.Request) {
	dicts := r.svc.List()
	resp := make([]dictResponse, 0, len(dicts))
	for _, d := range dicts {
		resp = append(resp, dictResponse{ID: d.ID(), Name: d.Name()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLookup answers one query without a session.
func (r *Router) handleLookup(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query().Get("q")
	ctx, cancel := context.WithTimeout(req.Context(), r.waitTimeout)
	defer cancel()

	p := present.New()
	p.Begin(query)
	rows, err := r.svc.Lookup(ctx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			r.writeError(w, req, err)
			return
		}
		r.log.WarnContext(ctx, "lookup failed, result is absent",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		rows = nil
	}
	p.OnFetchComplete(query, rows)
	writeJSON(w, http.StatusOK, p.View())
}

func (r *Router) handleWord(w http.ResponseWriter, req *http.Request) {
	id, err := url.PathUnescape(chi.URLParam(req, "id"))
	if err != nil {
		r.writeError(w, req, validationError("bad word id"))
		return
	}
	e, err := r.svc.Word(req.Context(), id)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (r *Router) handleCreateSession(w http.ResponseWriter, req *http.Request) {
	s := r.sessions.Create()
	w.Header().Set("Location", r.basePath+"/sessions/"+s.ID())
	writeJSON(w, http.StatusCreated, sessionResponse{ID: s.ID()})
}

func (r *Router) handleGetSession(w http.ResponseWriter, req *http.Request) {
	s, err := r.sessions.Get(chi.URLParam(req, "id"))
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	v, err := s.View(req.Context())
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (r *Router) handleDeleteSession(w http.ResponseWriter, req *http.Request) {
	if err := r.sessions.Delete(chi.URLParam(req, "id")); err != nil {
		r.writeError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleQuery(w http.ResponseWriter, req *http.Request) {
	s, err := r.sessions.Get(chi.URLParam(req, "id"))
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	query, err := readQuery(req)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	wait := true
	if raw := req.URL.Query().Get("wait"); raw != "" {
		wait, err = strconv.ParseBool(raw)
		if err != nil {
			r.writeError(w, req, validationError("wait must be a boolean"))
			return
		}
	}

	v, _, err := s.Submit(req.Context(), query)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	if !wait {
		writeJSON(w, http.StatusAccepted, v)
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), r.waitTimeout)
	defer cancel()
	shown, err := s.Await(ctx)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, shown)
	case errors.Is(err, context.DeadlineExceeded) && req.Context().Err() == nil:
		// Still loading; the caller polls GET /sessions/{id}.
		writeJSON(w, http.StatusAccepted, v)
	default:
		r.writeError(w, req, err)
	}
}

func (r *Router) handleSelect(w http.ResponseWriter, req *http.Request) {
	s, err := r.sessions.Get(chi.URLParam(req, "id"))
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	pos, err := strconv.Atoi(chi.URLParam(req, "pos"))
	if err != nil {
		r.writeError(w, req, validationError("position must be an integer"))
		return
	}
	nav, err := s.Select(req.Context(), pos)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, navigationResponse{
		ID:   nav.ID,
		Word: nav.Word,
		Href: r.basePath + "/words/" + url.PathEscape(nav.ID),
	})
}

// readQuery takes the query from ?q= when present, otherwise from a JSON body
// {"query": "..."}. An empty query is valid; a missing one is not.
func readQuery(req *http.Request) (string, error) {
	if values := req.URL.Query(); values.Has("q") {
		return values.Get("q"), nil
	}
	var body queryRequest
	if err := json.NewDecoder(io.LimitReader(req.Body, 1<<16)).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return "", validationError("missing query")
		}
		return "", validationError("invalid JSON body")
	}
	if body.Query == nil {
		return "", validationError("missing query")
	}
	return *body.Query, nil
}

func validationError(msg string) error {
	return errors.Join(errors.New(msg), dict.ErrValidation)
}

func (r *Router) writeError(w http.ResponseWriter, req *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"
	switch {
	case errors.Is(err, dict.ErrValidation):
		status, msg = http.StatusBadRequest, firstLine(err)
	case errors.Is(err, dict.ErrNotFound), errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrClosed):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "timed out"
	default:
		r.log.ErrorContext(req.Context(), "request failed",
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()),
			slog.String("request_id", observability.RequestIDFrom(req.Context())),
		)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// firstLine drops the sentinel that errors.Join appends on its own line.
func firstLine(err error) string {
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return msg
}

func normalizeBasePath(basePath string) string {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" || basePath == "/" {
		return ""
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return strings.TrimRight(basePath, "/")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(payload)
}
