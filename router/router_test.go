package router

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/handlers"
	"visitor-management/models"
	"visitor-management/pkg/paseto"
	"visitor-management/repository/memory"
	"visitor-management/service"
)

type testServer struct {
	app    *fiber.App
	tokens *paseto.Maker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	maker, err := paseto.NewPasetoMaker(base64.URLEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef")), time.Hour)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	ledger := service.NewLedger(memory.NewCheckLogStore())
	engine := service.NewPassEngine(service.EngineDeps{
		Passes:  memory.NewPassStore(),
		Ledger:  ledger,
		Metrics: service.NewMetrics(reg),
	})

	app := fiber.New()
	SetupRoutes(app, Handlers{
		Auth:         handlers.NewAuthHandler(nil, maker),
		Visitors:     handlers.NewVisitorHandler(nil, nil),
		Appointments: handlers.NewAppointmentHandler(nil, nil, nil),
		Passes:       handlers.NewPassHandler(engine, nil),
		CheckLogs:    handlers.NewCheckLogHandler(engine, ledger, nil),
		Reports:      handlers.NewReportHandler(nil, time.UTC),
		Files:        handlers.NewFileHandler(nil),
		Tokens:       maker,
		Metrics:      reg,
	})
	return &testServer{app: app, tokens: maker}
}

func (s *testServer) token(t *testing.T, role string) string {
	t.Helper()
	token, err := s.tokens.GenerateToken(&models.User{ID: primitive.NewObjectID(), Email: role + "@example.com", Role: role})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRoutes_RequireToken(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/api/v1/passes", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/v1/passes", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/v1/checklogs/scan", "", `{"pass_id":"`+primitive.NewObjectID().Hex()+`"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoutes_ScanRoles(t *testing.T) {
	s := newTestServer(t)
	body := `{"pass_id":"` + primitive.NewObjectID().Hex() + `"}`

	resp := s.do(t, http.MethodPost, "/api/v1/checklogs/scan", s.token(t, models.RoleEmployee), body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Security and admin reach the engine, which reports the unknown pass.
	for _, role := range []string{models.RoleSecurity, models.RoleAdmin} {
		resp = s.do(t, http.MethodPost, "/api/v1/checklogs/scan", s.token(t, role), body)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, role)
	}
}

func TestRoutes_AdminOnly(t *testing.T) {
	s := newTestServer(t)
	guard := s.token(t, models.RoleSecurity)

	cases := []struct {
		method, path string
	}{
		{http.MethodGet, "/api/v1/reports/summary"},
		{http.MethodGet, "/api/v1/reports/visits-export"},
		{http.MethodDelete, "/api/v1/checklogs/" + primitive.NewObjectID().Hex()},
		{http.MethodPost, "/api/v1/passes/" + primitive.NewObjectID().Hex() + "/reconcile"},
		{http.MethodPut, "/api/v1/appointments/" + primitive.NewObjectID().Hex() + "/status"},
	}
	for _, tc := range cases {
		resp := s.do(t, tc.method, tc.path, guard, "")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, tc.path)
	}

	resp := s.do(t, http.MethodPost, "/api/v1/passes/"+primitive.NewObjectID().Hex()+"/reconcile", s.token(t, models.RoleAdmin), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoutes_PublicEndpoints(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "visitor_passes_issued_total")
}
