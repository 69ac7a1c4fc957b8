// Package api exposes the blog over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hypergopher/downblog"
)

// MaxBodyBytes limits the size of request bodies.
const MaxBodyBytes = 1 << 20

// Service is the part of downblog.DownBlog the handlers use.
type Service interface {
	List(ctx context.Context, params downblog.QueryParams) (downblog.Page, error)
	AdminList(ctx context.Context) ([]*downblog.Post, error)
	Get(ctx context.Context, id string) (*downblog.Post, error)
	Submit(ctx context.Context, fields downblog.PostFields) (*downblog.Post, error)
	Edit(ctx context.Context, id string, fields downblog.PostFields) (*downblog.Post, error)
	Delete(ctx context.Context, ids ...string) error
	Authors(ctx context.Context) ([]string, error)
}

// Handler serves the blog routes.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler creates a new handler
func NewHandler(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// NewRouter returns the chi router with every blog route and the common middleware.
func NewRouter(service Service, logger *slog.Logger) http.Handler {
	h := NewHandler(service, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HandleHealth)
	r.Get("/all-blogs", h.HandleList)
	r.Get("/single-blog/{blogId}", h.HandleGet)
	r.Post("/blog-submit", h.HandleSubmit)
	r.Put("/edit-blog", h.HandleEdit)
	r.Delete("/delete-blog/{blogId}", h.HandleDelete)
	r.Delete("/delete-blogs", h.HandleDeleteMany)
	r.Get("/admin/blog-list", h.HandleAdminList)
	r.Get("/authors", h.HandleAuthors)

	return r
}

type response struct {
	Message   any                 `json:"message"`
	Success   bool                `json:"success"`
	Total     *int                `json:"total,omitempty"`
	Paginator *downblog.Paginator `json:"paginator,omitempty"`
}

// blogID accepts an id sent either as a JSON string or as a JSON number.
type blogID string

func (id *blogID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = blogID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("blog id must be a string or a number: %w", err)
	}
	*id = blogID(n.String())
	return nil
}

type editRequest struct {
	BlogID blogID `json:"blogId"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Author string `json:"author"`
}

type deleteManyRequest struct {
	BlogIDs []blogID `json:"blogIds"`
}

// HandleHealth handles GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

// HandleList handles GET /all-blogs. Query parameters select, sort and page the posts.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), downblog.QueryParamsFromValues(r.URL.Query()))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	total := page.Paginator.TotalPosts
	h.writeJSON(w, http.StatusOK, response{
		Message:   page.Posts,
		Success:   true,
		Total:     &total,
		Paginator: &page.Paginator,
	})
}

// HandleGet handles GET /single-blog/{blogId}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.Get(r.Context(), chi.URLParam(r, "blogId"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response{Message: post, Success: true})
}

// HandleSubmit handles POST /blog-submit
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	var fields downblog.PostFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		handleDecodeError(w, err)
		return
	}

	post, err := h.service.Submit(r.Context(), fields)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, response{Message: post, Success: true})
}

// HandleEdit handles PUT /edit-blog
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleDecodeError(w, err)
		return
	}

	post, err := h.service.Edit(r.Context(), string(req.BlogID), downblog.PostFields{
		Title:  req.Title,
		Text:   req.Text,
		Author: req.Author,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response{Message: post, Success: true})
}

// HandleDelete handles DELETE /delete-blog/{blogId}. Deleting a missing post succeeds.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "blogId")
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response{
		Message: fmt.Sprintf("Blog: %s Deleted", id),
		Success: true,
	})
}

// HandleDeleteMany handles DELETE /delete-blogs
func (h *Handler) HandleDeleteMany(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	var req deleteManyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleDecodeError(w, err)
		return
	}

	ids := make([]string, 0, len(req.BlogIDs))
	for _, id := range req.BlogIDs {
		ids = append(ids, string(id))
	}

	if err := h.service.Delete(r.Context(), ids...); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response{
		Message: fmt.Sprintf("Blogs: %s Deleted", strings.Join(ids, ", ")),
		Success: true,
	})
}

// HandleAdminList handles GET /admin/blog-list
func (h *Handler) HandleAdminList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.AdminList(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, response{Message: posts, Success: true})
}

// HandleAuthors handles GET /authors
func (h *Handler) HandleAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := h.service.Authors(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	if authors == nil {
		authors = []string{}
	}

	h.writeJSON(w, http.StatusOK, response{Message: authors, Success: true})
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
