package pages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/2beens/pagebox/internal/telemetry/metrics"
	"github.com/2beens/pagebox/internal/telemetry/tracing"
	"github.com/2beens/pagebox/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultListPage = 1
	defaultListSize = 10
)

type pagesRepo interface {
	Add(ctx context.Context, page Page) (*Page, error)
	Update(ctx context.Context, page Page) error
	GetByPath(ctx context.Context, path string) (*Page, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListParams) ([]Page, int, error)
}

type Handler struct {
	repo    pagesRepo
	metrics *metrics.Manager
}

func NewHandler(repo pagesRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	pagesRouter := mainRouter.PathPrefix("/api/pages").Subrouter()
	pagesRouter.HandleFunc("", handler.handleList).Methods("GET", "OPTIONS").Name("pages-list")
	pagesRouter.HandleFunc("", handler.handleSave).Methods("POST", "OPTIONS").Name("pages-save")
	pagesRouter.HandleFunc("/{path}", handler.handleGetByPath).Methods("GET", "OPTIONS").Name("pages-get")
	pagesRouter.HandleFunc("/{id}", handler.handleDelete).Methods("DELETE", "OPTIONS").Name("pages-delete")
}

type ListResponse struct {
	Pages      []Page `json:"pages"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	PagesCount int    `json:"pagesCount"`
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "pagesHandler.list")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	page, err := listQueryParam(r, "page", defaultListPage)
	if err != nil {
		http.Error(w, `{"error": "invalid page parameter"}`, http.StatusBadRequest)
		return
	}
	size, err := listQueryParam(r, "limit", defaultListSize)
	if err != nil {
		http.Error(w, `{"error": "invalid limit parameter"}`, http.StatusBadRequest)
		return
	}

	span.SetAttributes(attribute.Int("page", page))
	span.SetAttributes(attribute.Int("size", size))

	pagesList, total, err := handler.repo.List(ctx, ListParams{
		Page: page,
		Size: size,
	})
	if err != nil {
		log.Errorf("list pages: %s", err)
		http.Error(w, `{"error": "internal error"}`, http.StatusInternalServerError)
		return
	}

	if pagesList == nil {
		pagesList = []Page{}
	}

	resp := ListResponse{
		Pages:      pagesList,
		Total:      total,
		Page:       page,
		PagesCount: (total + size - 1) / size,
	}
	respBytes, err := json.Marshal(resp)
	if err != nil {
		log.Errorf("marshal pages list response: %s", err)
		http.Error(w, `{"error": "internal error"}`, http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respBytes)
}

func (handler *Handler) handleGetByPath(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "pagesHandler.getByPath")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, DELETE, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	path := vars["path"]
	span.SetAttributes(attribute.String("page.path", path))

	page, err := handler.repo.GetByPath(ctx, path)
	switch {
	case errors.Is(err, ErrPageNotFound):
		http.Error(w, `{"error": "page not found"}`, http.StatusNotFound)
		span.SetStatus(codes.Error, "page-not-found")
		return
	case err != nil:
		log.Errorf("get page [%s]: %s", path, err)
		http.Error(w, `{"error": "internal error"}`, http.StatusInternalServerError)
		return
	}

	pageBytes, err := json.Marshal(page)
	if err != nil {
		log.Errorf("marshal page: %s", err)
		http.Error(w, `{"error": "internal error"}`, http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, pageBytes)
}

// handleSave creates a new page, or fully replaces an existing one when
// the request carries an id.
func (handler *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "pagesHandler.save")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var page Page
	if err := json.NewDecoder(r.Body).Decode(&page); err != nil {
		log.Errorf("save page, unmarshal json params: %s", err)
		http.Error(w, `{"error": "invalid request"}`, http.StatusBadRequest)
		return
	}
	if page.Path == "" {
		http.Error(w, `{"error": "page path empty"}`, http.StatusBadRequest)
		return
	}

	span.SetAttributes(attribute.String("page.path", page.Path))

	var savedPage *Page
	if page.ID == "" {
		added, err := handler.repo.Add(ctx, page)
		switch {
		case errors.Is(err, ErrPathTaken):
			http.Error(w, `{"error": "page path already taken"}`, http.StatusConflict)
			span.SetStatus(codes.Error, "path-taken")
			return
		case err != nil:
			log.Errorf("save page, add: %s", err)
			http.Error(w, `{"error": "internal error"}`, http.StatusInternalServerError)
			return
		}
		savedPage = added
	} else {
		err := handler.repo.Update(ctx, page)
		switch {
		case errors.Is(err, ErrPageNotFound):
			http.Error(w, `{"error": "page not found"}`, http.StatusNotFound)
			span.SetStatus(codes.Error, "page-not-found")
			return
		case errors.Is(err, ErrPathTaken):
			http.Error(w, `{"error": "page path already taken"}`, http.StatusConflict)
			span.SetStatus(codes.Error, "path-taken")
			return
		case err != nil:
			log.Errorf("save page, update: %s", err)
			http.Error(w, `{"error": "internal error"}`, http.StatusInternalServerError)
			return
		}
		savedPage = &page
	}

	if handler.metrics != nil {
		handler.metrics.CounterPagesSaved.Inc()
	}
	span.SetAttributes(attribute.String("page.id", savedPage.ID))

	pageBytes, err := json.Marshal(savedPage)
	if err != nil {
		log.Errorf("marshal saved page: %s", err)
		http.Error(w, `{"error": "internal error"}`, http.StatusInternalServerError)
		return
	}

	log.Tracef("page [%s] saved", savedPage.Path)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, pageBytes)
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "pagesHandler.delete")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, DELETE, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	id := vars["id"]
	span.SetAttributes(attribute.String("page.id", id))

	err := handler.repo.Delete(ctx, id)
	switch {
	case errors.Is(err, ErrPageNotFound):
		http.Error(w, `{"error": "page not found"}`, http.StatusNotFound)
		span.SetStatus(codes.Error, "page-not-found")
		return
	case err != nil:
		log.Errorf("delete page [%s]: %s", id, err)
		http.Error(w, `{"error": "internal error"}`, http.StatusInternalServerError)
		return
	}

	if handler.metrics != nil {
		handler.metrics.CounterPagesDeleted.Inc()
	}

	log.Tracef("page [%s] deleted", id)
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"deletedId": "%s"}`, id))
}

func listQueryParam(r *http.Request, name string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	if value < 1 {
		return 0, fmt.Errorf("%s must be greater than 0", name)
	}
	return value, nil
}
