package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mbolis/survey-relay/client"
	"github.com/mbolis/survey-relay/model"
	"github.com/mbolis/survey-relay/queue"
)

func slowRelay(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_SubmitQueuesAfterDeadline(t *testing.T) {
	srv := slowRelay(t, 500*time.Millisecond)

	q, err := queue.Open(filepath.Join(t.TempDir(), "pending.sqlite"))
	require.NoError(t, err)
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	answers := model.Answers{"География": "Самара"}
	result, err := client.New(client.RelayURL(srv.URL), q).Submit(ctx, answers)
	require.NoError(t, err)
	require.Equal(t, "queued for replay", result.Message)
	require.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)

	entries, err := q.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, answers, entries[0].Answers)
}

func TestClient_SubmitCanceledUsesPlaceholder(t *testing.T) {
	srv := slowRelay(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := client.New(client.RelayURL(srv.URL), client.Placeholder{}).Submit(ctx, model.Answers{"География": "Уфа"})
	require.NoError(t, err)
	require.Equal(t, model.Result{Success: true, Message: "saved via fallback"}, result)
}

func TestTransportError_Permanent(t *testing.T) {
	tests := []struct {
		name string
		err  *client.TransportError
		want bool
	}{
		{name: "bad request", err: &client.TransportError{Status: http.StatusBadRequest}, want: true},
		{name: "too large", err: &client.TransportError{Status: http.StatusRequestEntityTooLarge}, want: true},
		{name: "server error", err: &client.TransportError{Status: http.StatusInternalServerError}, want: false},
		{name: "network", err: &client.TransportError{Err: context.DeadlineExceeded}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.err.Permanent())
		})
	}
}
