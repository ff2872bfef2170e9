package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/devfeed-crawler/internal/record"
)

type sliceLister[T any] []T

func (s sliceLister[T]) LoadList(context.Context) []T {
	return s
}

func newTestServer(ready Checker) *Server {
	events := sliceLister[record.Event]{
		{ID: "e1", Title: "GopherCon Korea", Link: "https://gophercon.kr"},
		{ID: "e2", Title: "해커톤", Link: "https://hack.example.com"},
		{ID: "e3", Title: "Meetup", Link: "https://meetup.example.com"},
	}
	jobs := sliceLister[record.JobPosting]{
		{ID: "j1", RecIdx: "100", Title: "Backend Engineer"},
	}
	return NewServer(Stores{Events: events, Jobs: jobs}, ready, zap.NewNop())
}

func serve(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_ListEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantCount int
	}{
		{name: "all", target: "/v1/events", wantCode: http.StatusOK, wantCount: 3},
		{name: "limited", target: "/v1/events?limit=2", wantCode: http.StatusOK, wantCount: 2},
		{name: "zero means all", target: "/v1/events?limit=0", wantCode: http.StatusOK, wantCount: 3},
		{name: "bad limit", target: "/v1/events?limit=-1", wantCode: http.StatusBadRequest},
		{name: "non numeric", target: "/v1/events?limit=ten", wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := serve(t, newTestServer(nil), tt.target)
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				return
			}
			var body struct {
				Items []record.Event `json:"items"`
				Count int            `json:"count"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCount, body.Count)
			assert.Len(t, body.Items, tt.wantCount)
			assert.Equal(t, "e1", body.Items[0].ID)
		})
	}
}

func TestServer_GetRecord(t *testing.T) {
	t.Parallel()

	s := newTestServer(nil)

	rec := serve(t, s, "/v1/jobs/j1")
	require.Equal(t, http.StatusOK, rec.Code)
	var job record.JobPosting
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "Backend Engineer", job.Title)

	rec = serve(t, s, "/v1/events/e2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "해커톤")

	rec = serve(t, s, "/v1/events/missing")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_EmptyAndMissingStores(t *testing.T) {
	t.Parallel()

	s := NewServer(Stores{Events: sliceLister[record.Event](nil)}, nil, nil)

	rec := serve(t, s, "/v1/events")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"count":0}`, rec.Body.String())

	rec = serve(t, s, "/v1/jobs")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_Probes(t *testing.T) {
	t.Parallel()

	s := newTestServer(nil)
	rec := serve(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	require.Equal(t, http.StatusOK, serve(t, s, "/readyz").Code)

	failing := newTestServer(func(context.Context) error { return errors.New("db down") })
	require.Equal(t, http.StatusServiceUnavailable, serve(t, failing, "/readyz").Code)
}

func TestServer_RequestIDPassthrough(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	newTestServer(nil).Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	s := newTestServer(nil)
	serve(t, s, "/v1/events")
	rec := serve(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestParseLimit(t *testing.T) {
	t.Parallel()

	n, err := parseLimit("")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = parseLimit("7")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = parseLimit("-3")
	require.Error(t, err)
}
