package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/clawbeat/pkg/dispatch"
)

const publisherFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>The Verge</title>
  <item>
    <title>OpenClaw hits one million installs</title>
    <link>https://www.theverge.com/openclaw-million</link>
    <description><![CDATA[<p>The <b>open source</b> agent keeps growing.</p>]]></description>
    <category>agents</category>
  </item>
  <item>
    <title>A new phone is out</title>
    <link>https://www.theverge.com/phone</link>
    <description>Nothing about the beat.</description>
  </item>
  <item>
    <title>Steinberger sponsors crypto token</title>
    <link>https://www.theverge.com/crypto</link>
    <description>Token launch.</description>
  </item>
</channel>
</rss>`

const aggregatorFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Flipboard AI</title>
  <item>
    <title>Wired: Inside the moltbook community</title>
    <link>https://www.wired.com/story/moltbook</link>
    <description>Profile.</description>
  </item>
  <item>
    <title>Engadget: Clawdbot gets a rename</title>
    <link>https://www.engadget.com/clawdbot-rename</link>
    <description>Rename.</description>
  </item>
</channel>
</rss>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/verge.xml", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "clawbeat/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte(publisherFeed))
	})
	mux.HandleFunc("/flipboard.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(aggregatorFeed))
	})
	mux.HandleFunc("/broken.xml", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRSS_Collect(t *testing.T) {
	srv := newFeedServer(t)
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	now := time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)

	rss := NewRSS([]dispatch.WhitelistEntry{
		{SourceName: "The Verge", RSSURL: srv.URL + "/verge.xml", SourceType: dispatch.SourcePriority},
		{SourceName: "Flipboard AI", RSSURL: srv.URL + "/flipboard.xml"},
		{SourceName: "Broken", RSSURL: srv.URL + "/broken.xml"},
		{SourceName: "No feed", RSSURL: "N/A"},
		{SourceName: "Also no feed"},
	}, NewFilter(nil, []string{"crypto"}), 20, la).WithClock(func() time.Time { return now })

	assert.Equal(t, "rss", rss.Name())
	assert.Len(t, rss.feeds, 3)

	items, err := rss.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	verge := items[0]
	assert.Equal(t, "https://www.theverge.com/openclaw-million", verge.URL)
	assert.Equal(t, "OpenClaw hits one million installs", verge.Title)
	assert.Equal(t, "The Verge", verge.Source)
	assert.Equal(t, "03-01-2026", verge.Date, "dated in the civil zone")
	assert.True(t, now.Equal(verge.InsertedAt))
	assert.Equal(t, dispatch.SourcePriority, verge.SourceType)
	assert.Equal(t, []string{"agents"}, verge.Tags)
	assert.Contains(t, verge.Summary, "agent keeps growing")
	assert.NotContains(t, verge.Summary, "<b>")

	wired := items[1]
	assert.Equal(t, "Wired", wired.Source)
	assert.Equal(t, "Inside the moltbook community", wired.Title)
	assert.Equal(t, dispatch.SourceStandard, wired.SourceType)

	assert.Equal(t, "Engadget", items[2].Source)
	assert.Equal(t, "Clawdbot gets a rename", items[2].Title)
}

func TestRSS_LimitPerFeed(t *testing.T) {
	srv := newFeedServer(t)

	rss := NewRSS([]dispatch.WhitelistEntry{
		{SourceName: "Flipboard AI", RSSURL: srv.URL + "/flipboard.xml"},
	}, nil, 1, time.UTC)

	items, err := rss.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Wired", items[0].Source)
}

func TestRSS_AllFeedsFailed(t *testing.T) {
	srv := newFeedServer(t)

	rss := NewRSS([]dispatch.WhitelistEntry{
		{SourceName: "Broken", RSSURL: srv.URL + "/broken.xml"},
	}, nil, 0, nil)

	_, err := rss.Collect(context.Background())
	assert.Error(t, err)
}

func TestRSS_NoFeeds(t *testing.T) {
	items, err := NewRSS(nil, nil, 0, nil).Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}
