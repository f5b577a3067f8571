package shop

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otabek-olimov/uzshop-backend/internal/flash"
	"github.com/otabek-olimov/uzshop-backend/internal/middleware"
	"github.com/otabek-olimov/uzshop-backend/internal/models"
)

// --- fakes ---

type fakeCatalog struct {
	categories []models.Category
	products   []models.Product
}

func (f *fakeCatalog) ListCategories(context.Context) ([]models.Category, error) {
	return f.categories, nil
}

func (f *fakeCatalog) ListAvailableProducts(_ context.Context, limit int) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		if !p.Available {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetProductBySlug(_ context.Context, slug string) (*models.Product, error) {
	for i := range f.products {
		if f.products[i].Slug == slug {
			return &f.products[i], nil
		}
	}
	return nil, nil
}

type fakeComments struct {
	comments []models.Comment
}

func (f *fakeComments) Insert(_ context.Context, c *models.Comment) (string, error) {
	f.comments = append(f.comments, *c)
	return "oid", nil
}

func (f *fakeComments) ListByProduct(_ context.Context, slug string) ([]models.Comment, error) {
	var out []models.Comment
	for _, c := range f.comments {
		if c.ProductSlug == slug {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeUsers struct {
	users map[string]*models.User
}

func (f *fakeUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	return f.users[id], nil
}

// --- helpers ---

type fixture struct {
	catalog  *fakeCatalog
	comments *fakeComments
	users    *fakeUsers
	router   chi.Router
}

func newFixture() *fixture {
	catalog := &fakeCatalog{
		categories: []models.Category{{ID: 1, Name: "Tools"}},
		products: []models.Product{
			{ID: 1, Name: "Widget", Slug: "widget-1", Price: 9.99, Available: true, CategoryID: 1},
			{ID: 2, Name: "Hidden", Slug: "hidden-1", Available: false, CategoryID: 1},
		},
	}
	comments := &fakeComments{}
	users := &fakeUsers{users: map[string]*models.User{
		"u1": {ID: "u1", Username: "otabek5"},
	}}
	h := NewHandler(catalog, comments, users, flash.NewStore("test-secret"), zerolog.Nop())

	r := chi.NewRouter()
	r.Get("/", h.Home)
	r.Route("/product/{slug}", func(r chi.Router) {
		r.Get("/detail/", h.Detail)
		r.Post("/comment/", h.Comment)
	})
	return &fixture{catalog: catalog, comments: comments, users: users, router: r}
}

func (fx *fixture) postComment(userID string, slug string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/product/"+slug+"/comment/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = req.WithContext(middleware.WithIdentity(req.Context(), userID, "sid-1"))
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

// --- tests ---

func TestHomeListsCatalog(t *testing.T) {
	fx := newFixture()

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Categories []models.Category `json:"categories"`
		Products   []models.Product  `json:"products"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Len(t, body.Categories, 1)
	require.Len(t, body.Products, 1, "unavailable products stay hidden")
	assert.Equal(t, "widget-1", body.Products[0].Slug)
}

func TestDetailUnknownSlugIs404(t *testing.T) {
	fx := newFixture()

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/product/no-such/detail/", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDetailIncludesCommentsInOrder(t *testing.T) {
	fx := newFixture()
	fx.comments.comments = []models.Comment{
		{ProductSlug: "widget-1", Username: "a", Content: "first", Rating: 4},
		{ProductSlug: "widget-1", Username: "b", Content: "second", Rating: 5},
		{ProductSlug: "other", Username: "c", Content: "elsewhere", Rating: 1},
	}

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/product/widget-1/detail/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Comments []models.Comment `json:"comments"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Comments, 2)
	assert.Equal(t, "first", body.Comments[0].Content)
	assert.Equal(t, "second", body.Comments[1].Content)
}

func TestCommentEmptyContentLeavesCountUnchanged(t *testing.T) {
	fx := newFixture()

	w := fx.postComment("u1", "widget-1", url.Values{
		"content": {""},
		"rating":  {"5"},
	})

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/product/widget-1/detail/", w.Header().Get("Location"))
	assert.Empty(t, fx.comments.comments)
}

func TestCommentRatingOutOfBounds(t *testing.T) {
	fx := newFixture()

	for _, rating := range []string{"0", "6", "-1", "not-a-number"} {
		w := fx.postComment("u1", "widget-1", url.Values{
			"content": {"nice widget"},
			"rating":  {rating},
		})
		assert.Equal(t, http.StatusSeeOther, w.Code, "rating %s", rating)
		assert.Empty(t, fx.comments.comments, "rating %s", rating)
	}
}

func TestCommentUnknownProductIs404(t *testing.T) {
	fx := newFixture()

	w := fx.postComment("u1", "no-such", url.Values{
		"content": {"hello"},
		"rating":  {"3"},
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, fx.comments.comments)
}

func TestCommentRecordsActingIdentity(t *testing.T) {
	fx := newFixture()

	w := fx.postComment("u1", "widget-1", url.Values{
		"content": {"does what it says"},
		"rating":  {"5"},
	})

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/product/widget-1/detail/", w.Header().Get("Location"))
	require.Len(t, fx.comments.comments, 1)
	c := fx.comments.comments[0]
	assert.Equal(t, "widget-1", c.ProductSlug)
	assert.Equal(t, "u1", c.UserID)
	assert.Equal(t, "otabek5", c.Username)
	assert.Equal(t, 5, c.Rating)
}
