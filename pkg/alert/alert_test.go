package alert

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/clawbeat/pkg/dispatch"
)

func testNotification() *Notification {
	return NewSpotlightNotification("03-01-2026", []dispatch.Slot{
		{Slot: 1, Origin: dispatch.OriginOverride, URL: "https://a/lead", Title: "Lead story", Source: "Wired"},
		{Slot: 2, Origin: dispatch.OriginAlgorithmic, URL: "https://b/two", Title: "Second", Source: "The Verge"},
	})
}

type capture struct {
	body    []byte
	headers http.Header
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *capture) {
	t.Helper()
	c := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		c.body, _ = io.ReadAll(r.Body)
		c.headers = r.Header.Clone()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestNewSpotlightNotification(t *testing.T) {
	n := testNotification()
	assert.Equal(t, "03-01-2026", n.Date)
	assert.Equal(t, "https://a/lead", n.URL)
	assert.Contains(t, n.Title, "03-01-2026")
	assert.Len(t, n.Slots, 2)
}

func TestSlack_Send(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK)

	require.NoError(t, NewSlack(srv.URL).Send(context.Background(), testNotification()))

	var payload struct {
		Blocks []map[string]any `json:"blocks"`
	}
	require.NoError(t, json.Unmarshal(got.body, &payload))
	assert.Len(t, payload.Blocks, 3)
	assert.Equal(t, "application/json", got.headers.Get("Content-Type"))
}

func TestDiscord_Send(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusNoContent)

	require.NoError(t, NewDiscord(srv.URL).Send(context.Background(), testNotification()))

	var payload struct {
		Embeds []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"embeds"`
	}
	require.NoError(t, json.Unmarshal(got.body, &payload))
	require.Len(t, payload.Embeds, 1)
	assert.Equal(t, "https://a/lead", payload.Embeds[0].URL)
	assert.Contains(t, payload.Embeds[0].Description, "1. [Lead story](https://a/lead) [Wired]")
}

func TestWebhook_SendSigned(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusAccepted)

	require.NoError(t, NewWebhook(srv.URL, "s3cret").Send(context.Background(), testNotification()))

	assert.Equal(t, "sha256="+Sign("s3cret", got.body), got.headers.Get(SignatureHeader))

	var n Notification
	require.NoError(t, json.Unmarshal(got.body, &n))
	assert.Equal(t, "03-01-2026", n.Date)
	assert.Len(t, n.Slots, 2)
}

func TestWebhook_Unsigned(t *testing.T) {
	srv, got := newCaptureServer(t, http.StatusOK)

	require.NoError(t, NewWebhook(srv.URL, "").Send(context.Background(), testNotification()))
	assert.Empty(t, got.headers.Get(SignatureHeader))
}

func TestManager_BroadcastJoinsErrors(t *testing.T) {
	ok, _ := newCaptureServer(t, http.StatusOK)
	bad, _ := newCaptureServer(t, http.StatusInternalServerError)

	m := NewManager([]Notifier{NewSlack(ok.URL), NewDiscord(bad.URL)})
	assert.True(t, m.HasNotifiers())

	err := m.Broadcast(context.Background(), testNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord")
	assert.NotContains(t, err.Error(), "slack")

	assert.False(t, NewManager(nil).HasNotifiers())
}
