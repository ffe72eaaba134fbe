package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/acp-registry/apiserver/internal/logger"
	"github.com/acp-registry/apiserver/internal/store"
	"github.com/acp-registry/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	active    []types.ActiveUser
	pending   []types.PendingUser
	err       error
	submitted types.Profile
	approved  int64
}

func (s *stubService) ListActive(ctx context.Context) ([]types.ActiveUser, error) {
	return s.active, s.err
}

func (s *stubService) ListPending(ctx context.Context) ([]types.PendingUser, error) {
	return s.pending, s.err
}

func (s *stubService) Submit(ctx context.Context, profile types.Profile) (types.PendingUser, error) {
	s.submitted = profile
	if s.err != nil {
		return types.PendingUser{}, s.err
	}
	return types.PendingUser{ID: 42, Profile: profile}, nil
}

func (s *stubService) Approve(ctx context.Context, id int64) (types.ActiveUser, error) {
	s.approved = id
	if s.err != nil {
		return types.ActiveUser{}, s.err
	}
	return types.ActiveUser{}, nil
}

func newTestRouter(svc ModerationService) http.Handler {
	r := chi.NewRouter()
	r.Use(CORS)
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)
	UserRouter(r, svc, logger.Discard())
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestListActive(t *testing.T) {
	svc := &stubService{active: []types.ActiveUser{{
		Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Profile:   types.Profile{"username": json.RawMessage(`"ann"`)},
	}}}

	rec := do(t, newTestRouter(svc), http.MethodGet, "/users", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `[{"username":"ann","timestamp":"2025-01-01T00:00:00.000Z"}]`, rec.Body.String())
}

func TestListEmptyIsArray(t *testing.T) {
	svc := &stubService{active: []types.ActiveUser{}, pending: []types.PendingUser{}}

	rec := do(t, newTestRouter(svc), http.MethodGet, "/users/pending", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListStorageFailure(t *testing.T) {
	svc := &stubService{err: &store.StorageError{Op: "load", Err: errors.New("disk on fire")}}

	rec := do(t, newTestRouter(svc), http.MethodGet, "/users", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "disk on fire", errorMessage(t, rec))
}

func TestRegister(t *testing.T) {
	svc := &stubService{}

	rec := do(t, newTestRouter(svc), http.MethodPost, "/register", `{"username":"ann","email":"a@x.com","age":41}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"id":42}`, rec.Body.String())
	assert.JSONEq(t, `41`, string(svc.submitted["age"]))
}

func TestRegisterErrors(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		err     error
		status  int
		message string
	}{
		{"malformed body", `{"username":`, nil, http.StatusBadRequest, "invalid request"},
		{"not an object", `["ann"]`, nil, http.StatusBadRequest, "invalid request"},
		{"duplicate", `{"username":"ann"}`, store.ErrDuplicate, http.StatusBadRequest, "Username or email already exists"},
		{"invalid profile", `{"username":"ann"}`, fmt.Errorf("%w: email required", store.ErrInvalidProfile), http.StatusBadRequest, "invalid profile: email required"},
		{"storage failure", `{"username":"ann"}`, &store.StorageError{Op: "persist", Err: errors.New("write failed")}, http.StatusInternalServerError, "write failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{err: tc.err}
			rec := do(t, newTestRouter(svc), http.MethodPost, "/register", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.message, errorMessage(t, rec))
		})
	}
}

func TestApprove(t *testing.T) {
	svc := &stubService{}
	h := newTestRouter(svc)

	rec := do(t, h, http.MethodPost, "/approve", `{"userId":1717171717171}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, int64(1717171717171), svc.approved)

	rec = do(t, h, http.MethodPost, "/approve", `{"userId":"7"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), svc.approved)

	rec = do(t, h, http.MethodPost, "/approve", `{"userId":1e3}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1000), svc.approved)

	rec = do(t, h, http.MethodPost, "/approve", `{"userId":12.0}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(12), svc.approved)
}

func TestApproveErrors(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		err     error
		status  int
		message string
	}{
		{"missing id", `{}`, nil, http.StatusBadRequest, "invalid userId"},
		{"fractional id", `{"userId":1.5}`, nil, http.StatusBadRequest, "invalid userId"},
		{"unknown id", `{"userId":999}`, store.ErrNotFound, http.StatusNotFound, "User not found"},
		{"storage failure", `{"userId":1}`, &store.StorageError{Op: "load", Err: errors.New("timeout")}, http.StatusInternalServerError, "timeout"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubService{err: tc.err}
			rec := do(t, newTestRouter(svc), http.MethodPost, "/approve", tc.body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.message, errorMessage(t, rec))
		})
	}
}

func TestPreflight(t *testing.T) {
	rec := do(t, newTestRouter(&stubService{}), http.MethodOptions, "/register", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Empty(t, rec.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	h := newTestRouter(&stubService{})

	rec := do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", errorMessage(t, rec))

	rec = do(t, h, http.MethodDelete, "/users", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
