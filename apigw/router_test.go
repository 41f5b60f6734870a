package apigw_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jordancannon88/application-metrics/aggregate"
	"github.com/jordancannon88/application-metrics/apigw"
	"github.com/jordancannon88/application-metrics/event"
)

// mockWriter implements apigw.EventWriter for testing.
type mockWriter struct {
	putFunc  func(ctx context.Context, e *event.Event) error
	captured *event.Event
}

func (m *mockWriter) PutEvent(ctx context.Context, e *event.Event) error {
	m.captured = e

	if m.putFunc != nil {
		return m.putFunc(ctx, e)
	}

	return nil
}

// mockStore implements aggregate.Store for testing.
type mockStore struct {
	queryFunc func(ctx context.Context, application, startTS, endTS string) ([]event.Event, error)
}

func (m *mockStore) QueryEvents(ctx context.Context, application, startTS, endTS string) ([]event.Event, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, application, startTS, endTS)
	}

	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(writer *mockWriter, store *mockStore) *apigw.Router {
	logger := testLogger()
	router := apigw.NewRouter(writer, aggregate.NewHandler(store, logger), logger)
	router.SetClock(func() time.Time {
		return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	})

	return router
}

func proxyRequest(method, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       "/applications",
		Body:       body,
		RequestContext: events.APIGatewayProxyRequestContext{
			Identity: events.APIGatewayRequestIdentity{
				SourceIP:  "203.0.113.10",
				UserAgent: "test-agent",
			},
		},
	}
}

func decodeBody(t *testing.T, resp events.APIGatewayProxyResponse) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))

	return body
}

// =============================================================================
// PUT /applications
// =============================================================================

func TestHandlePut_Success(t *testing.T) {
	t.Parallel()

	writer := &mockWriter{}
	router := newTestRouter(writer, &mockStore{})

	resp, err := router.Handle(context.Background(), proxyRequest(http.MethodPut,
		`{"application":"app1","operation":"play","currentMediaTime":42.25}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"state": "Success", "message": "Updated items."}, decodeBody(t, resp))
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])

	require.NotNil(t, writer.captured)
	assert.Equal(t, "app1", writer.captured.Application)
	assert.Equal(t, "play", writer.captured.Operation)
	assert.Equal(t, 42.25, writer.captured.CurrentMediaTime)
	assert.Equal(t, "203.0.113.10", writer.captured.SourceIP)
	assert.Equal(t, "test-agent", writer.captured.UserAgent)
	assert.Equal(t, "2024-01-15T12:00:00.000000Z", writer.captured.CreatedAt,
		"created_at must come from the server clock, not the caller")
}

func TestHandlePut_InvalidJSON(t *testing.T) {
	t.Parallel()

	writer := &mockWriter{}
	router := newTestRouter(writer, &mockStore{})

	resp, err := router.Handle(context.Background(), proxyRequest(http.MethodPut, `{not json`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Nil(t, writer.captured)
}

func TestHandlePut_MissingFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{name: "missing application", body: `{"operation":"play"}`},
		{name: "missing operation", body: `{"application":"app1"}`},
		{name: "empty body", body: `{}`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			writer := &mockWriter{}
			router := newTestRouter(writer, &mockStore{})

			resp, err := router.Handle(context.Background(), proxyRequest(http.MethodPut, tc.body))

			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestHandlePut_WriterError(t *testing.T) {
	t.Parallel()

	writer := &mockWriter{
		putFunc: func(_ context.Context, _ *event.Event) error {
			return errors.New("ProvisionedThroughputExceededException")
		},
	}
	router := newTestRouter(writer, &mockStore{})

	resp, err := router.Handle(context.Background(), proxyRequest(http.MethodPut,
		`{"application":"app1","operation":"play"}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Fail", body["state"])
	assert.Equal(t, "Error, please contact the admin.", body["message"])
	assert.NotContains(t, resp.Body, "ProvisionedThroughput", "SDK detail must not leak to the caller")
}

// =============================================================================
// POST /applications
// =============================================================================

func TestHandlePost_Success(t *testing.T) {
	t.Parallel()

	store := &mockStore{
		queryFunc: func(_ context.Context, _, _, _ string) ([]event.Event, error) {
			return []event.Event{
				{Application: "app1", CreatedAt: "2023-01-01T09:00:00.000000Z"},
				{Application: "app1", CreatedAt: "2023-01-01T10:00:00.000000Z"},
				{Application: "app1", CreatedAt: "2023-01-02T09:00:00.000000Z"},
			}, nil
		},
	}
	router := newTestRouter(&mockWriter{}, store)

	resp, err := router.Handle(context.Background(), proxyRequest(http.MethodPost,
		`{"application":"app1","startDate":"2023-01-01","endDate":"2023-01-02"}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"counts":{"2023-01-01":2,"2023-01-02":1}}`, resp.Body)
}

func TestHandlePost_EmptyCounts(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&mockWriter{}, &mockStore{})

	resp, err := router.Handle(context.Background(), proxyRequest(http.MethodPost,
		`{"application":"app1","startDate":"2023-01-03","endDate":"2023-01-04"}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"counts":{}}`, resp.Body)
}

func TestHandlePost_ValidationError(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&mockWriter{}, &mockStore{})

	resp, err := router.Handle(context.Background(), proxyRequest(http.MethodPost,
		`{"application":"app1","startDate":"2023-02-01","endDate":"2023-01-01"}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Fail", body["state"])
	assert.Equal(t, "The start date is further in the future than the end date.", body["message"])
}

func TestHandlePost_StoreError(t *testing.T) {
	t.Parallel()

	store := &mockStore{
		queryFunc: func(_ context.Context, _, _, _ string) ([]event.Event, error) {
			return nil, errors.New("dynamodb endpoint unreachable")
		},
	}
	router := newTestRouter(&mockWriter{}, store)

	resp, err := router.Handle(context.Background(), proxyRequest(http.MethodPost,
		`{"application":"app1","startDate":"2023-01-01","endDate":"2023-01-02"}`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Fail", body["state"])
	assert.Equal(t, "Error, please contact the admin.", body["message"])
	assert.NotContains(t, resp.Body, "unreachable")
}

func TestHandlePost_InvalidJSON(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&mockWriter{}, &mockStore{})

	resp, err := router.Handle(context.Background(), proxyRequest(http.MethodPost, `[`))

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// Other methods
// =============================================================================

func TestHandleOptions_Preflight(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&mockWriter{}, &mockStore{})

	resp, err := router.Handle(context.Background(), proxyRequest(http.MethodOptions, ""))

	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])
	assert.Contains(t, resp.Headers["Access-Control-Allow-Methods"], "POST")
	assert.Contains(t, resp.Headers["Access-Control-Allow-Methods"], "PUT")
}

func TestHandle_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	router := newTestRouter(&mockWriter{}, &mockStore{})

	resp, err := router.Handle(context.Background(), proxyRequest(http.MethodDelete, ""))

	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
