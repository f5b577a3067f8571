// Package shop implements catalog browsing and product comments.
package shop

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/otabek-olimov/uzshop-backend/internal/flash"
	"github.com/otabek-olimov/uzshop-backend/internal/middleware"
	"github.com/otabek-olimov/uzshop-backend/internal/models"
)

// homeProductLimit caps the product list on the landing page.
const homeProductLimit = 8

// Catalog defines the read-only product/category access the handlers need.
type Catalog interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListAvailableProducts(ctx context.Context, limit int) ([]models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
}

// CommentStore defines the append-only comment persistence.
type CommentStore interface {
	Insert(ctx context.Context, c *models.Comment) (string, error)
	ListByProduct(ctx context.Context, slug string) ([]models.Comment, error)
}

// UserGetter resolves the acting identity for comment attribution.
type UserGetter interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Handler holds the shop HTTP handlers.
type Handler struct {
	catalog  Catalog
	comments CommentStore
	accounts UserGetter
	flash    *flash.Store
	log      zerolog.Logger
}

func NewHandler(catalog Catalog, comments CommentStore, accounts UserGetter, fl *flash.Store, log zerolog.Logger) *Handler {
	return &Handler{catalog: catalog, comments: comments, accounts: accounts, flash: fl, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Home returns the landing page context: all categories and the first
// available products.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list categories")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	products, err := h.catalog.ListAvailableProducts(r.Context(), homeProductLimit)
	if err != nil {
		h.log.Error().Err(err).Msg("list products")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	if products == nil {
		products = []models.Product{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"products":   products,
		"notices":    h.flash.Pop(w, r),
	})
}

// Detail returns one product with its comments and an empty comment form
// context. An unknown slug is a terminal 404 for the request.
func (h *Handler) Detail(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	product, err := h.catalog.GetProductBySlug(r.Context(), slug)
	if err != nil {
		h.log.Error().Err(err).Str("slug", slug).Msg("load product")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	if product == nil {
		http.Error(w, `{"error":"product not found"}`, http.StatusNotFound)
		return
	}

	comments, err := h.comments.ListByProduct(r.Context(), slug)
	if err != nil {
		h.log.Error().Err(err).Str("slug", slug).Msg("list comments")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"product":      product,
		"comments":     comments,
		"comment_form": models.CommentForm{},
		"notices":      h.flash.Pop(w, r),
	})
}

// Comment appends one rating+text comment for the acting identity. Field
// errors are computed but only a generic notice reaches the visitor on this
// path; both outcomes redirect back to the product detail page. Behind
// RequireAuth.
func (h *Handler) Comment(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	product, err := h.catalog.GetProductBySlug(r.Context(), slug)
	if err != nil {
		h.log.Error().Err(err).Str("slug", slug).Msg("load product")
		http.Error(w, `{"error":"database error"}`, http.StatusInternalServerError)
		return
	}
	if product == nil {
		http.Error(w, `{"error":"product not found"}`, http.StatusNotFound)
		return
	}

	detailURL := "/product/" + slug + "/detail/"

	if err := r.ParseForm(); err != nil {
		h.flash.Error(w, r, "Your comment was not saved.")
		http.Redirect(w, r, detailURL, http.StatusSeeOther)
		return
	}
	rating, _ := strconv.Atoi(r.PostFormValue("rating"))
	form := models.CommentForm{
		Content: r.PostFormValue("content"),
		Rating:  rating,
	}

	if errs := validateComment(form); !errs.Empty() {
		h.flash.Error(w, r, "Your comment was not saved.")
		http.Redirect(w, r, detailURL, http.StatusSeeOther)
		return
	}

	u, err := h.accounts.GetUserByID(r.Context(), middleware.UserID(r.Context()))
	if err != nil || u == nil {
		h.log.Error().Err(err).Msg("load commenter")
		http.Error(w, `{"error":"user not found"}`, http.StatusInternalServerError)
		return
	}

	_, err = h.comments.Insert(r.Context(), &models.Comment{
		ProductSlug: product.Slug,
		UserID:      u.ID,
		Username:    u.Username,
		Content:     form.Content,
		Rating:      form.Rating,
	})
	if err != nil {
		h.log.Error().Err(err).Str("slug", slug).Msg("insert comment")
		h.flash.Error(w, r, "Your comment was not saved.")
		http.Redirect(w, r, detailURL, http.StatusSeeOther)
		return
	}

	h.flash.Success(w, r, "Thank you for a comment")
	http.Redirect(w, r, detailURL, http.StatusSeeOther)
}

// validateComment applies the comment rules: content is required and the
// rating must fall in 1..5.
func validateComment(f models.CommentForm) models.FieldErrors {
	errs := models.FieldErrors{}
	if f.Content == "" {
		errs.Add("content", "Comment text is required")
	}
	if f.Rating < 1 || f.Rating > 5 {
		errs.Add("rating", "Rating must be between 1 and 5")
	}
	return errs
}
