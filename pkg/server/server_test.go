package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/clawbeat/internal/ingest"
	"github.com/elonfeng/clawbeat/internal/store"
	"github.com/elonfeng/clawbeat/pkg/dispatch"
)

type fakeStore struct {
	snap      dispatch.Snapshot
	items     []dispatch.NewsItem
	overrides []dispatch.Override
	counts    map[string]int
	listOpts  store.ListOpts
	window    int
	err       error
}

func (f *fakeStore) Snapshot(ctx context.Context, window int) (dispatch.Snapshot, error) {
	f.window = window
	return f.snap, f.err
}

func (f *fakeStore) ListNewsItems(ctx context.Context, opts store.ListOpts) ([]dispatch.NewsItem, error) {
	f.listOpts = opts
	return f.items, f.err
}

func (f *fakeStore) ListOverrides(ctx context.Context, date string) ([]dispatch.Override, error) {
	return f.overrides, f.err
}

func (f *fakeStore) CountItemsBySource(ctx context.Context) (map[string]int, error) {
	return f.counts, f.err
}

type fakeCollector struct {
	res ingest.Result
	err error
}

func (f *fakeCollector) Run(ctx context.Context) (ingest.Result, error) {
	return f.res, f.err
}

var testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func newTestServer(repo Repository, collector Collector) http.Handler {
	gin.SetMode(gin.TestMode)
	curator := dispatch.NewCurator(dispatch.DefaultWeights(), time.UTC, 20).WithClock(func() time.Time { return testNow })
	return New(repo, curator, collector, Options{PageSize: 2, MaxPageSize: 3, Window: 50}).Handler()
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func testSnapshot() dispatch.Snapshot {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return dispatch.Snapshot{
		Items: []dispatch.NewsItem{
			{URL: "https://a/1", Title: "One", Source: "techcrunch", Date: "03-02-2026", InsertedAt: base.Add(3 * time.Hour)},
			{URL: "https://a/2", Title: "Two", Source: "Wired", Date: "03-02-2026", InsertedAt: base.Add(2 * time.Hour)},
			{URL: "https://a/3", Title: "Three", Source: "Wired", Date: "03-01-2026", InsertedAt: base.Add(time.Hour)},
			{URL: "https://a/4", Title: "Tomorrow", Source: "Wired", Date: "03-03-2026", InsertedAt: base},
		},
		Overrides: []dispatch.Override{
			{DispatchDate: "03-01-2026", Slot: 1, URL: "https://pinned", Title: "Pinned", Source: "nytimes"},
		},
	}
}

func TestHealth(t *testing.T) {
	h := newTestServer(&fakeStore{counts: map[string]int{}}, nil)
	w := do(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)

	h = newTestServer(&fakeStore{err: errors.New("down")}, nil)
	w = do(t, h, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDispatch_Pages(t *testing.T) {
	repo := &fakeStore{snap: testSnapshot()}
	h := newTestServer(repo, nil)

	w := do(t, h, http.MethodGet, "/api/v1/dispatch")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 50, repo.window)

	var view dispatch.PageView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, 1, view.CurrentPage)
	assert.Equal(t, 2, view.PageSize)
	assert.Equal(t, 3, view.TotalItems, "tomorrow's story is cut off")
	assert.Equal(t, 2, view.TotalPages)
	require.Len(t, view.Days, 1)
	assert.Equal(t, "03-02-2026", view.Days[0].Day)
	assert.Equal(t, "TechCrunch", view.Days[0].River[0].Source, "display names are applied")
	assert.Equal(t, "TechCrunch", view.Days[0].Spotlight[0].Source)

	w = do(t, h, http.MethodGet, "/api/v1/dispatch?page=2")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.Len(t, view.Days, 1)
	assert.Equal(t, "03-01-2026", view.Days[0].Day)
	assert.Equal(t, 2, view.Days[0].River[0].Position)
	assert.Equal(t, "NY Times", view.Days[0].Spotlight[0].Source)
}

func TestDispatch_PageSizeClamped(t *testing.T) {
	h := newTestServer(&fakeStore{snap: testSnapshot()}, nil)

	tests := []struct {
		query string
		want  int
	}{
		{"page_size=100", 3},
		{"page_size=0", 2},
		{"page_size=abc", 2},
		{"page_size=1", 1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(t, h, http.MethodGet, "/api/v1/dispatch?"+tt.query)
			var view dispatch.PageView
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
			assert.Equal(t, tt.want, view.PageSize)
		})
	}
}

func TestDispatch_PageOutOfRange(t *testing.T) {
	h := newTestServer(&fakeStore{snap: testSnapshot()}, nil)

	tests := []struct {
		query    string
		wantPage int
		wantDays int
	}{
		{"page=3", 3, 0},
		{"page=4611686018427387905", 4611686018427387905, 0},
		{"page=9223372036854775807", 9223372036854775807, 0},
		{"page=-5", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(t, h, http.MethodGet, "/api/v1/dispatch?"+tt.query)
			require.Equal(t, http.StatusOK, w.Code)

			var view dispatch.PageView
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
			assert.Equal(t, tt.wantPage, view.CurrentPage)
			assert.Equal(t, 2, view.TotalPages)
			assert.Len(t, view.Days, tt.wantDays)
		})
	}
}

func TestDispatch_StoreError(t *testing.T) {
	h := newTestServer(&fakeStore{err: errors.New("boom")}, nil)
	w := do(t, h, http.MethodGet, "/api/v1/dispatch")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSpotlight(t *testing.T) {
	h := newTestServer(&fakeStore{snap: testSnapshot()}, nil)

	w := do(t, h, http.MethodGet, "/api/v1/dispatch/3-1-2026/spotlight")
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Date  string          `json:"date"`
		Slots []dispatch.Slot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "03-01-2026", res.Date)
	require.Len(t, res.Slots, 2)
	assert.Equal(t, dispatch.OriginOverride, res.Slots[0].Origin)
	assert.Equal(t, "https://pinned", res.Slots[0].URL)
	assert.Equal(t, "https://a/3", res.Slots[1].URL)

	w = do(t, h, http.MethodGet, "/api/v1/dispatch/03-03-2026/spotlight")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Empty(t, res.Slots, "future days have no spotlight")

	w = do(t, h, http.MethodGet, "/api/v1/dispatch/someday/spotlight")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestItems(t *testing.T) {
	repo := &fakeStore{items: []dispatch.NewsItem{
		{URL: "https://a/1", Source: "github", MoreCoverage: []dispatch.Coverage{{Source: "youtube", URL: "https://y"}}},
	}}
	h := newTestServer(repo, nil)

	w := do(t, h, http.MethodGet, "/api/v1/items?date=03-01-2026&limit=9999")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.ListOpts{Date: "03-01-2026", Limit: 500}, repo.listOpts)

	var res struct {
		Data  []dispatch.NewsItem `json:"data"`
		Count int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "GitHub", res.Data[0].Source)
	assert.Equal(t, "YouTube", res.Data[0].MoreCoverage[0].Source)
	assert.Equal(t, "youtube", repo.items[0].MoreCoverage[0].Source, "stored items are not modified")
}

func TestOverrides(t *testing.T) {
	h := newTestServer(&fakeStore{}, nil)
	w := do(t, h, http.MethodGet, "/api/v1/overrides?date=03-01-2026")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[],"count":0}`, w.Body.String())
}

func TestSources(t *testing.T) {
	h := newTestServer(&fakeStore{counts: map[string]int{"wired": 2, "techcrunch": 5}}, nil)
	w := do(t, h, http.MethodGet, "/api/v1/sources")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[{"name":"TechCrunch","items":5},{"name":"wired","items":2}],"count":2}`, w.Body.String())
}

func TestCollect(t *testing.T) {
	h := newTestServer(&fakeStore{}, nil)
	w := do(t, h, http.MethodPost, "/api/v1/collect")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	h = newTestServer(&fakeStore{}, &fakeCollector{res: ingest.Result{Collected: 4, Added: 3, Updated: 1}})
	w = do(t, h, http.MethodPost, "/api/v1/collect")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"collected":4,"added":3,"updated":1}`, w.Body.String())

	h = newTestServer(&fakeStore{}, &fakeCollector{err: errors.New("db down")})
	w = do(t, h, http.MethodPost, "/api/v1/collect")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = do(t, h, http.MethodGet, "/api/v1/collect")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
