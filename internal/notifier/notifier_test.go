package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RandomWalkLab/internal/aggregator"
)

func newTestNotifier(t *testing.T, h http.HandlerFunc) *TelegramNotifier {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	n := NewTelegramNotifier("TOKEN", "42", "", zerolog.Nop())
	n.BaseURL = srv.URL
	n.Backoff = time.Millisecond
	return n
}

func TestSend_Payload(t *testing.T) {
	var got map[string]string
	var path string
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, n.Send(context.Background(), "hello"))
	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "hello", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSendWithRetry_RecoversAfterFailures(t *testing.T) {
	var calls atomic.Int32
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, n.SendWithRetry(context.Background(), "x", 3))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	var calls atomic.Int32
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	err := n.SendWithRetry(context.Background(), "x", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 retries exhausted")
	assert.Equal(t, int32(3), calls.Load())
}

func TestSend_ReportsAPIDescription(t *testing.T) {
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	})
	err := n.Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400: Bad Request: chat not found")
}

func TestPollOnce_DispatchesCommands(t *testing.T) {
	var replies []string
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			assert.Equal(t, "7", r.URL.Query().Get("offset"))
			_, _ = w.Write([]byte(`{"ok":true,"result":[
				{"update_id":7,"message":{"text":" /summary "}},
				{"update_id":8},
				{"update_id":9,"message":{"text":"/help"}}]}`))
		case "/botTOKEN/sendMessage":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			replies = append(replies, body["text"])
		}
	})

	var commands []string
	next, err := n.pollOnce(context.Background(), n.Client, 7, 0, func(_ context.Context, cmd string) string {
		commands = append(commands, cmd)
		if cmd == "/help" {
			return FormatHelp()
		}
		return ""
	})
	require.NoError(t, err)
	assert.Equal(t, 10, next)
	assert.Equal(t, []string{"/summary", "/help"}, commands)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "/run")
}

func TestFormatSummary(t *testing.T) {
	summaries := []aggregator.CategorySummary{
		{
			Category: "Tech & Co",
			Tickers:  4,
			LjungBox: &aggregator.VerdictCounts{Random: 3, NonRandom: 1},
			Runs:     &aggregator.VerdictCounts{Random: 2, NonRandom: 2},
		},
	}
	msg := FormatSummary(time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC), summaries, 2)
	assert.Contains(t, msg, "2024-05-06 09:30")
	assert.Contains(t, msg, "<b>Tech &amp; Co</b> (4 tickers)")
	assert.Contains(t, msg, "Ljung-Box non-random: 1/4 (25%)")
	assert.Contains(t, msg, "Runs non-random: 2/4 (50%)")
	assert.Contains(t, msg, "Skipped tickers: 2")

	assert.Contains(t, FormatSummary(time.Now(), nil, 0), "No categories were tested.")
}

func TestFormatFailure(t *testing.T) {
	msg := FormatFailure(time.Now(), errors.New("missing <Close>"))
	assert.Contains(t, msg, "missing &lt;Close&gt;")
}
