// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/panelsurvey/auth"
	"github.com/danielhkuo/panelsurvey/middleware"
	"github.com/danielhkuo/panelsurvey/models"
	"github.com/danielhkuo/panelsurvey/store"
	"github.com/danielhkuo/panelsurvey/testutil"
)

const adminPassword = "let-me-in"

func newTestRouter(t *testing.T, limiter *middleware.RateLimiter) *http.ServeMux {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.SeedQuestionnaire(t, store.NewSQLStore(db))

	cfg := testutil.GetTestConfig()
	hash, err := auth.HashPassword(adminPassword)
	require.NoError(t, err)
	cfg.AdminPasswordHash = hash

	if limiter == nil {
		limiter = middleware.NewRateLimiter(1000, 1000)
	}
	return NewRouter(db, cfg, limiter)
}

func serve(mux http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	mux := newTestRouter(t, nil)

	w := serve(mux, httptest.NewRequest("GET", "/health", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	assert.Equal(t, "OK", w.Body.String())
}

func TestRootEndpoint(t *testing.T) {
	mux := newTestRouter(t, nil)

	w := serve(mux, httptest.NewRequest("GET", "/", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	assert.Equal(t, "panelsurvey API v1", w.Body.String())

	testutil.AssertStatus(t, serve(mux, httptest.NewRequest("GET", "/nope", nil)), http.StatusNotFound)
}

func TestMetricsEndpoint(t *testing.T) {
	mux := newTestRouter(t, nil)

	// Drive one request through the logging middleware first
	serve(mux, testutil.MakeRequest("GET", "/api/survey/questions?phase=P1", nil, nil))

	w := serve(mux, httptest.NewRequest("GET", "/metrics", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Body.String(), "panelsurvey_http_requests_total")
}

func TestRouteExistence(t *testing.T) {
	mux := newTestRouter(t, nil)

	// Routes respond with something other than the mux's own 404/405
	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"POST", "/api/respondent/start"},
		{"GET", "/api/respondent/resume"},
		{"POST", "/api/logout"},
		{"GET", "/api/survey/questions"},
		{"GET", "/api/survey/phases/P1"},
		{"POST", "/api/responses/save"},
		{"POST", "/api/phase/complete"},
		{"POST", "/api/admin/login"},
		{"POST", "/api/admin/logout"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := serve(mux, testutil.MakeRequest(tc.method, tc.path, nil, nil))
			assert.NotEqual(t, http.StatusMethodNotAllowed, w.Code)
			if w.Code == http.StatusNotFound {
				// Handler 404s carry a JSON error; the mux's do not
				assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newTestRouter(t, nil)

	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/api/respondent/start"},
		{"POST", "/api/respondent/resume"},
		{"DELETE", "/api/survey/questions"},
		{"GET", "/api/responses/save"},
		{"PUT", "/api/admin/dashboard/clear-data"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := serve(mux, httptest.NewRequest(tc.method, tc.path, nil))
			testutil.AssertStatus(t, w, http.StatusMethodNotAllowed)
		})
	}
}

func TestAdminRoutesRequireLogin(t *testing.T) {
	mux := newTestRouter(t, nil)

	protected := []struct {
		method string
		path   string
	}{
		{"GET", "/api/admin/dashboard/overview"},
		{"GET", "/api/admin/dashboard/funnel"},
		{"GET", "/api/admin/dashboard/respondents"},
		{"GET", "/api/admin/dashboard/questions?phase=P1"},
		{"GET", "/api/admin/dashboard/ai-summary"},
		{"POST", "/api/admin/dashboard/ai-summary"},
		{"POST", "/api/admin/dashboard/clear-data"},
		{"POST", "/api/admin/dashboard/restore-data"},
		{"POST", "/api/admin/dashboard/permanent-delete"},
		{"DELETE", "/api/admin/respondents/abc"},
		{"GET", "/api/admin/audit"},
		{"GET", "/api/admin/export"},
		{"POST", "/api/admin/import"},
	}

	for _, tc := range protected {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := serve(mux, httptest.NewRequest(tc.method, tc.path, nil))
			testutil.AssertStatus(t, w, http.StatusUnauthorized)

			req := httptest.NewRequest(tc.method, tc.path, nil)
			req.Header.Set("Authorization", "Bearer not-a-token")
			testutil.AssertStatus(t, serve(mux, req), http.StatusUnauthorized)
		})
	}
}

func TestAdminLoginFlow(t *testing.T) {
	mux := newTestRouter(t, nil)

	w := serve(mux, testutil.MakeRequest("POST", "/api/admin/login", models.AdminLoginRequest{Password: adminPassword}, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var login models.AdminLoginResponse
	testutil.AssertJSON(t, w, &login)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	// The cookie alone is enough
	req := httptest.NewRequest("GET", "/api/admin/dashboard/overview", nil)
	req.AddCookie(cookies[0])
	testutil.AssertStatus(t, serve(mux, req), http.StatusOK)

	// So is the bearer token
	req = httptest.NewRequest("GET", "/api/admin/dashboard/funnel", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	testutil.AssertStatus(t, serve(mux, req), http.StatusOK)

	req = httptest.NewRequest("GET", "/api/admin/export?type=respondents&format=csv", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	w = serve(mux, req)
	testutil.AssertStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Body.String(), "phone_normalized")
}

func TestRegistrationRateLimit(t *testing.T) {
	mux := newTestRouter(t, middleware.NewRateLimiter(0.001, 2))

	body := models.StartRequest{FullName: "Ani Wijaya", Phone: "081234567890"}
	headers := map[string]string{"X-Forwarded-For": "203.0.113.9"}

	testutil.AssertStatus(t, serve(mux, testutil.MakeRequest("POST", "/api/respondent/start", body, headers)), http.StatusCreated)
	testutil.AssertStatus(t, serve(mux, testutil.MakeRequest("POST", "/api/respondent/start", body, headers)), http.StatusOK)

	w := serve(mux, testutil.MakeRequest("POST", "/api/respondent/start", body, headers))
	testutil.AssertStatus(t, w, http.StatusTooManyRequests)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	// Another client is unaffected
	other := map[string]string{"X-Forwarded-For": "198.51.100.4"}
	testutil.AssertStatus(t, serve(mux, testutil.MakeRequest("POST", "/api/respondent/start", body, other)), http.StatusOK)
}

func TestPathParameterExtraction(t *testing.T) {
	mux := newTestRouter(t, nil)

	w := serve(mux, testutil.MakeRequest("POST", "/api/respondent/start",
		models.StartRequest{FullName: "Ani Wijaya", Phone: "081234567890"}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)
	var start models.StartResponse
	testutil.AssertJSON(t, w, &start)

	req := testutil.MakeRequest("GET", "/api/survey/phases/P1", nil, map[string]string{"X-Session-Token": start.SessionToken})
	w = serve(mux, req)
	testutil.AssertStatus(t, w, http.StatusOK)
	var view models.PhaseViewResponse
	testutil.AssertJSON(t, w, &view)
	assert.Equal(t, "P1", view.Phase.Code)
}
