package items

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"reqlog/internal/domain"
	"reqlog/internal/pipeline"
)

// ErrDiskFull is returned when an item cannot be persisted.
var ErrDiskFull = errors.New("disk full")

// Wrapper turns an error-returning handler into an http.Handler, typically
// by applying guards and reporting failures to the enclosing capture boundary.
type Wrapper func(pipeline.Handler) http.Handler

// Server routes the items API. Handlers return their failures instead of
// writing error responses; the Wrapper decides how those are rendered.
type Server struct {
	router chi.Router
	store  *Store
}

// NewServer creates a Server with all routes configured.
func NewServer(store *Store, wrap Wrapper) *Server {
	s := &Server{store: store}

	r := chi.NewRouter()
	r.Method(http.MethodGet, "/healthz", wrap(pipeline.HandlerFunc(s.handleHealth)))
	r.Method(http.MethodGet, "/items", wrap(pipeline.HandlerFunc(s.handleList)))
	r.Method(http.MethodPost, "/items", wrap(pipeline.HandlerFunc(s.handleCreate)))
	r.Method(http.MethodGet, "/items/{id}", wrap(pipeline.HandlerFunc(s.handleGet)))
	s.router = r

	return s
}

// ServeHTTP implements http.Handler by delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type createRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) error {
	w.WriteHeader(http.StatusOK)
	_, err := w.Write([]byte("ok"))
	return err
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) error {
	return writeJSON(w, http.StatusOK, s.store.List())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) error {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
	}

	it, err := s.store.Get(id)
	if errors.Is(err, domain.ErrNotFound) {
		return writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
	}
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) error {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
		}
		return writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
	}

	name := strings.TrimSpace(req.Name)
	switch name {
	case "":
		return writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
	case "boom":
		panic("item handler exploded")
	case "full":
		return domain.Internal("disk full", ErrDiskFull)
	}

	return writeJSON(w, http.StatusCreated, s.store.Create(name))
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return domain.Internal("encoding response", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}
