package tracker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/poolworks/poolcare-api/services"
)

// newEnvelopeServer serves canned success/error envelopes and records the
// requests it saw.
type envelopeServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(r *http.Request) (int, interface{}) // returns status and data or error payload
}

type recordedRequest struct {
	method string
	path   string
	auth   string
	body   map[string]interface{}
}

func (s *envelopeServer) serve(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	s.requests = append(s.requests, recordedRequest{
		method: r.Method,
		path:   r.URL.Path,
		auth:   r.Header.Get("Authorization"),
		body:   body,
	})
	s.mu.Unlock()

	status, payload := s.handler(r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status >= 400 {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   payload,
		})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    payload,
	})
}

func (s *envelopeServer) request(i int) recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[i]
}

func (s *envelopeServer) requestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func TestClientLoginStoresToken(t *testing.T) {
	backend := &envelopeServer{handler: func(r *http.Request) (int, interface{}) {
		return http.StatusOK, map[string]interface{}{
			"access_token": "token-abc",
			"token_type":   "bearer",
			"user":         map[string]interface{}{"id": "u1", "username": "jorge", "role": "employee"},
		}
	}}
	server := httptest.NewServer(http.HandlerFunc(backend.serve))
	defer server.Close()

	client := New(server.URL)
	user, err := client.Login(context.Background(), "jorge", "hunter2hunter2")
	assert.NoError(t, err)
	assert.Equal(t, "jorge", user.Username)

	req := backend.request(0)
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/api/v1/auth/login", req.path)
	assert.Equal(t, "jorge", req.body["username"])

	// Subsequent calls carry the token
	_, err = client.Reports(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "Bearer token-abc", backend.request(1).auth)
}

func TestClientUpdateReportSendsPartialPatch(t *testing.T) {
	backend := &envelopeServer{handler: func(r *http.Request) (int, interface{}) {
		return http.StatusOK, map[string]interface{}{"id": "r1", "employee_notes": "cleaned"}
	}}
	server := httptest.NewServer(http.HandlerFunc(backend.serve))
	defer server.Close()

	client := New(server.URL)
	client.SetToken("token-abc")

	report, err := client.UpdateReport(context.Background(), "r1", map[string]interface{}{
		"employee_notes": "cleaned",
	})
	assert.NoError(t, err)
	assert.Equal(t, "cleaned", report.EmployeeNotes)

	req := backend.request(0)
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/api/v1/reports/r1", req.path)
	assert.Equal(t, map[string]interface{}{"employee_notes": "cleaned"}, req.body)
}

func TestClientSurfacesAPIError(t *testing.T) {
	backend := &envelopeServer{handler: func(r *http.Request) (int, interface{}) {
		return http.StatusForbidden, map[string]interface{}{
			"code":    "PERMISSION_DENIED",
			"message": "administrator role required to modify status",
		}
	}}
	server := httptest.NewServer(http.HandlerFunc(backend.serve))
	defer server.Close()

	client := New(server.URL)
	client.SetToken("token-abc")

	_, err := client.UpdateReport(context.Background(), "r1", map[string]interface{}{"status": "completed"})

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "PERMISSION_DENIED", apiErr.Code)
}

func TestClientWrapsNetworkFailureAsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // connection refused from here on

	client := New(server.URL)
	_, err := client.Reports(context.Background())

	var transportErr *services.TransportError
	assert.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "GET /api/v1/reports", transportErr.Op)
}

func TestClientSynchronizerFlushesThroughUpdateReport(t *testing.T) {
	backend := &envelopeServer{handler: func(r *http.Request) (int, interface{}) {
		return http.StatusOK, map[string]interface{}{"id": "r1"}
	}}
	server := httptest.NewServer(http.HandlerFunc(backend.serve))
	defer server.Close()

	client := New(server.URL)
	client.SetToken("token-abc")
	synchronizer := client.NewSynchronizer(100 * time.Millisecond)

	synchronizer.Set("r1", "employee_notes", "c")
	synchronizer.Set("r1", "employee_notes", "cl")
	h := synchronizer.Set("r1", "employee_notes", "cleaned the filter")
	waitSettled(t, h)

	assert.Equal(t, 1, backend.requestCount())
	req := backend.request(0)
	assert.Equal(t, "/api/v1/reports/r1", req.path)
	assert.Equal(t, map[string]interface{}{"employee_notes": "cleaned the filter"}, req.body)
}
