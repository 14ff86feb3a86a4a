// handler_test.go provides shared test infrastructure for the handler
// tests. Handlers run against the in-memory category store.
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"bookswap/internal/service"
	"bookswap/internal/store"
)

// testEnv bundles a category router with its backing store.
type testEnv struct {
	store  *store.MemoryCategoryStore
	router chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := store.NewMemoryCategoryStore()
	h := NewCategories(service.NewCategoryService(repo, nil, nil))

	r := chi.NewRouter()
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Patch("/{id}/status", h.SetStatus)
		r.Delete("/{id}", h.Delete)
		r.Get("/{id}/path", h.Path)
		r.Get("/{id}/descendants", h.Descendants)
	})
	return &testEnv{store: repo, router: r}
}

// do sends a request through the router. body is JSON encoded unless it is
// a string, which is sent verbatim.
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// apiResponse is a superset of the success, error and list envelopes.
type apiResponse struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Error      string            `json:"error"`
	Errors     map[string]string `json:"errors"`
	Data       json.RawMessage   `json:"data"`
	Pagination struct {
		TotalItems   int `json:"totalItems"`
		TotalPages   int `json:"totalPages"`
		CurrentPage  int `json:"currentPage"`
		ItemsPerPage int `json:"itemsPerPage"`
	} `json:"pagination"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), "body: %s", rr.Body.String())
	return resp
}

// categoryJSON is the subset of a category the tests inspect.
type categoryJSON struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	ParentID  *int64 `json:"parent_id"`
	Published bool   `json:"published"`
}

// create posts a category and returns it, failing the test on any error.
func (e *testEnv) create(t *testing.T, name string, parentID *int64) categoryJSON {
	t.Helper()
	body := map[string]any{"name": name}
	if parentID != nil {
		body["parent_id"] = *parentID
	}
	rr := e.do(t, http.MethodPost, "/api/categories", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var c categoryJSON
	require.NoError(t, json.Unmarshal(decode(t, rr).Data, &c))
	return c
}
