package routes

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/survey-relay/app"
	"github.com/mbolis/survey-relay/config"
	"github.com/mbolis/survey-relay/fields"
	"github.com/mbolis/survey-relay/log"
	"github.com/mbolis/survey-relay/relay"
	"github.com/mbolis/survey-relay/sheet"
)

type fakeBackend struct {
	mu         sync.Mutex
	rows       map[int][]any
	connectErr error
	writeErr   error
	connects   int
}

func (b *fakeBackend) Connect(context.Context) (sheet.Sheet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connects++
	if b.connectErr != nil {
		return nil, b.connectErr
	}
	return b, nil
}

func (b *fakeBackend) Extent(context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rows), nil
}

func (b *fakeBackend) WriteRow(_ context.Context, row int, cells []any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.writeErr != nil {
		return b.writeErr
	}
	b.rows[row] = cells
	return nil
}

func (b *fakeBackend) Close() error { return nil }

func newTestServer(t *testing.T, backend *fakeBackend, mode string) *httptest.Server {
	t.Helper()
	if backend.rows == nil {
		backend.rows = map[int][]any{}
	}
	cfg := config.Config{Mode: mode, PublicDir: t.TempDir()}
	a := app.App{
		Relay:  relay.New(backend, t.Name()),
		Config: cfg,
	}
	srv := httptest.NewServer(Wire(a))
	t.Cleanup(srv.Close)
	return srv
}

type responseBody struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Error   *string `json:"error"`
}

func post(t *testing.T, srv *httptest.Server, body string) (int, responseBody) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/survey-submit", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out responseBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestSubmitSurvey_Saved(t *testing.T) {
	backend := &fakeBackend{rows: map[int][]any{1: {"header"}}}
	srv := newTestServer(t, backend, "development")

	label := fields.Current.Labels[12]
	status, body := post(t, srv, `{"`+label+`": "Москва", "Возраст респондента": 31, "unknown": "dropped"}`)

	require.Equal(t, http.StatusOK, status)
	require.True(t, body.Success)
	require.Equal(t, "saved", body.Message)

	row := backend.rows[2]
	require.Len(t, row, len(fields.Current.Labels)+1)
	require.Equal(t, "Москва", row[13])
	require.Equal(t, float64(31), row[14])
	require.Equal(t, "", row[1])
}

func TestSubmitSurvey_LogsSavedRowOnce(t *testing.T) {
	var out bytes.Buffer
	log.SetOutput(&out)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	srv := newTestServer(t, &fakeBackend{rows: map[int][]any{1: {"header"}}}, "development")
	status, _ := post(t, srv, `{"География": "Владимир"}`)
	require.Equal(t, http.StatusOK, status)
	// Close waits for the request logger to finish writing
	srv.Close()

	logged := out.String()
	require.Equal(t, 1, strings.Count(logged, "saved"), logged)
	require.Contains(t, logged, "row=2")
}

func TestSubmitSurvey_BadRequest(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{name: "empty body", body: "", message: "missing survey data"},
		{name: "blank body", body: "  \n", message: "missing survey data"},
		{name: "null", body: "null", message: "missing survey data"},
		{name: "empty object", body: "{}", message: "missing survey data"},
		{name: "array", body: `["a"]`, message: "malformed survey data"},
		{name: "broken json", body: `{"a":`, message: "malformed survey data"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			backend := &fakeBackend{}
			srv := newTestServer(t, backend, "development")

			status, body := post(t, srv, tc.body)
			require.Equal(t, http.StatusBadRequest, status)
			require.False(t, body.Success)
			require.Equal(t, tc.message, body.Message)
			require.Zero(t, backend.connects)
			require.Empty(t, backend.rows)
		})
	}
}

func TestSubmitSurvey_BackendFailure(t *testing.T) {
	tests := []struct {
		name      string
		mode      string
		backend   *fakeBackend
		wantError bool
	}{
		{
			name:      "auth failure in development",
			mode:      "development",
			backend:   &fakeBackend{connectErr: errors.New("invalid_grant")},
			wantError: true,
		},
		{
			name:      "auth failure in production",
			mode:      config.ModeProduction,
			backend:   &fakeBackend{connectErr: errors.New("invalid_grant")},
			wantError: false,
		},
		{
			name:      "write failure in development",
			mode:      "development",
			backend:   &fakeBackend{writeErr: errors.New("quota exceeded")},
			wantError: true,
		},
		{
			name:      "write failure in production",
			mode:      config.ModeProduction,
			backend:   &fakeBackend{writeErr: errors.New("quota exceeded")},
			wantError: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, tc.backend, tc.mode)

			status, body := post(t, srv, `{"География": "Казань"}`)
			require.Equal(t, http.StatusInternalServerError, status)
			require.False(t, body.Success)
			require.Equal(t, "processing error", body.Message)
			if tc.wantError {
				require.NotNil(t, body.Error)
				require.NotEmpty(t, *body.Error)
			} else {
				require.Nil(t, body.Error)
			}
		})
	}
}

func TestWire_ServesPublicFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<div id=\"surveyElement\"></div>"), 0o644))

	a := app.App{
		Relay:  relay.New(&fakeBackend{rows: map[int][]any{}}, t.Name()),
		Config: config.Config{PublicDir: dir},
	}
	srv := httptest.NewServer(Wire(a))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
