package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/samber/lo"
	_ "modernc.org/sqlite"

	"github.com/elonfeng/clawbeat/pkg/dispatch"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ListOpts controls item listing.
type ListOpts struct {
	Source string
	Date   string // dispatch date, any accepted spelling
	Since  time.Time
	Limit  int
}

// Store is the persistence interface.
type Store interface {
	UpsertNewsItem(ctx context.Context, item *dispatch.NewsItem) error
	UpsertNewsItems(ctx context.Context, items []dispatch.NewsItem) error
	GetNewsItem(ctx context.Context, url string) (*dispatch.NewsItem, error)
	ListNewsItems(ctx context.Context, opts ListOpts) ([]dispatch.NewsItem, error)
	KnownURLs(ctx context.Context, urls []string) (map[string]bool, error)
	CountItemsBySource(ctx context.Context) (map[string]int, error)

	UpsertOverride(ctx context.Context, o dispatch.Override) error
	ListOverrides(ctx context.Context, date string) ([]dispatch.Override, error)
	DeleteOverride(ctx context.Context, date string, slot int) error

	ReplaceWhitelist(ctx context.Context, entries []dispatch.WhitelistEntry) error
	ListWhitelist(ctx context.Context) ([]dispatch.WhitelistEntry, error)

	AddEditionDate(ctx context.Context, isoDate string) error
	ListEditionDates(ctx context.Context) ([]string, error)

	MarkDispatchAlerted(ctx context.Context, date string) (bool, error)

	Snapshot(ctx context.Context, window int) (dispatch.Snapshot, error)

	Close() error
}

// SQLStore implements Store on SQLite or PostgreSQL.
type SQLStore struct {
	db     *sqlx.DB
	driver string
}

var _ Store = (*SQLStore)(nil)

// newsRow is the on-disk shape of a news item. List fields are JSON text.
type newsRow struct {
	URL          string    `db:"url"`
	Title        string    `db:"title"`
	Source       string    `db:"source"`
	Date         string    `db:"date"`
	InsertedAt   time.Time `db:"inserted_at"`
	Summary      string    `db:"summary"`
	SourceType   string    `db:"source_type"`
	MoreCoverage string    `db:"more_coverage"`
	Tags         string    `db:"tags"`
}

func (r newsRow) item() dispatch.NewsItem {
	item := dispatch.NewsItem{
		URL:        r.URL,
		Title:      r.Title,
		Source:     r.Source,
		Date:       r.Date,
		InsertedAt: r.InsertedAt.UTC(),
		Summary:    r.Summary,
		SourceType: dispatch.SourceType(r.SourceType).Normalize(),
	}
	if err := json.Unmarshal([]byte(r.MoreCoverage), &item.MoreCoverage); err != nil {
		slog.Warn("corrupt more_coverage", "url", r.URL, "err", err)
	}
	if err := json.Unmarshal([]byte(r.Tags), &item.Tags); err != nil {
		slog.Warn("corrupt tags", "url", r.URL, "err", err)
	}
	return item
}

type overrideRow struct {
	DispatchDate string `db:"dispatch_date"`
	Slot         int    `db:"slot"`
	URL          string `db:"url"`
	Title        string `db:"title"`
	Source       string `db:"source"`
	Summary      string `db:"summary"`
	Tags         string `db:"tags"`
}

type whitelistRow struct {
	SourceName string `db:"source_name"`
	WebsiteURL string `db:"website_url"`
	RSSURL     string `db:"rss_url"`
	SourceType string `db:"source_type"`
}

// New opens a SQLite database at path and runs migrations.
func New(path string) (*SQLStore, error) {
	return Open(DriverSQLite, path)
}

// Open connects to the given driver and runs migrations.
func Open(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schemaFor(driver)); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLStore{db: db, driver: driver}, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "_pragma") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) UpsertNewsItem(ctx context.Context, item *dispatch.NewsItem) error {
	return s.upsertNewsItem(ctx, s.db, item)
}

// UpsertNewsItems writes items in one transaction. Date and inserted_at of
// an existing row never change.
func (s *SQLStore) UpsertNewsItems(ctx context.Context, items []dispatch.NewsItem) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	for i := range items {
		if err := s.upsertNewsItem(ctx, tx, &items[i]); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

func (s *SQLStore) upsertNewsItem(ctx context.Context, ext sqlx.ExtContext, item *dispatch.NewsItem) error {
	if item.URL == "" {
		return errors.New("upsert news item: empty url")
	}
	if item.InsertedAt.IsZero() {
		item.InsertedAt = time.Now().UTC()
	}
	coverageJSON, _ := json.Marshal(lo.Ternary(item.MoreCoverage == nil, []dispatch.Coverage{}, item.MoreCoverage))
	tagsJSON, _ := json.Marshal(lo.Ternary(item.Tags == nil, []string{}, item.Tags))

	_, err := ext.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO news_items (url, title, source, date, inserted_at, summary, source_type, more_coverage, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			source = excluded.source,
			summary = excluded.summary,
			source_type = excluded.source_type,
			more_coverage = excluded.more_coverage,
			tags = excluded.tags
	`), item.URL, item.Title, item.Source, item.Date, item.InsertedAt.UTC(), item.Summary,
		string(item.SourceType.Normalize()), string(coverageJSON), string(tagsJSON))
	if err != nil {
		return fmt.Errorf("upsert news item %s: %w", item.URL, err)
	}
	return nil
}

func (s *SQLStore) GetNewsItem(ctx context.Context, url string) (*dispatch.NewsItem, error) {
	var row newsRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind("SELECT * FROM news_items WHERE url = ?"), url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get news item %s: %w", url, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get news item %s: %w", url, err)
	}
	item := row.item()
	return &item, nil
}

func (s *SQLStore) ListNewsItems(ctx context.Context, opts ListOpts) ([]dispatch.NewsItem, error) {
	query := "SELECT * FROM news_items WHERE 1=1"
	var args []any

	if opts.Source != "" {
		query += " AND source = ?"
		args = append(args, opts.Source)
	}
	if opts.Date != "" {
		query += " AND date = ?"
		args = append(args, dispatch.DayKey(opts.Date))
	}
	if !opts.Since.IsZero() {
		query += " AND inserted_at >= ?"
		args = append(args, opts.Since.UTC())
	}

	query += " ORDER BY inserted_at DESC, url ASC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var rows []newsRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list news items: %w", err)
	}
	return lo.Map(rows, func(r newsRow, _ int) dispatch.NewsItem { return r.item() }), nil
}

// knownURLsChunk keeps IN lists under the SQLite variable limit.
const knownURLsChunk = 500

// KnownURLs reports which of urls are already stored as news items.
func (s *SQLStore) KnownURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	known := make(map[string]bool)
	for _, chunk := range lo.Chunk(lo.Uniq(urls), knownURLsChunk) {
		query, args, err := sqlx.In("SELECT url FROM news_items WHERE url IN (?)", chunk)
		if err != nil {
			return nil, fmt.Errorf("known urls: %w", err)
		}
		var found []string
		if err := s.db.SelectContext(ctx, &found, s.db.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("known urls: %w", err)
		}
		for _, u := range found {
			known[u] = true
		}
	}
	return known, nil
}

func (s *SQLStore) CountItemsBySource(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Source string `db:"source"`
		Count  int    `db:"cnt"`
	}
	if err := s.db.SelectContext(ctx, &rows, "SELECT source, COUNT(*) AS cnt FROM news_items GROUP BY source"); err != nil {
		return nil, fmt.Errorf("count items by source: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Source] = r.Count
	}
	return counts, nil
}

// UpsertOverride pins o to its slot, replacing whatever held it.
func (s *SQLStore) UpsertOverride(ctx context.Context, o dispatch.Override) error {
	ord := dispatch.ParseDispatchDate(o.DispatchDate)
	if ord == 0 {
		return fmt.Errorf("upsert override: invalid dispatch date %q", o.DispatchDate)
	}
	if o.Slot < 1 || o.Slot > dispatch.SlotCount {
		return fmt.Errorf("upsert override: slot %d out of range 1..%d", o.Slot, dispatch.SlotCount)
	}
	if o.URL == "" {
		return errors.New("upsert override: empty url")
	}
	tagsJSON, _ := json.Marshal(lo.Ternary(o.Tags == nil, []string{}, o.Tags))

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO spotlight_overrides (dispatch_date, slot, url, title, source, summary, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dispatch_date, slot) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			source = excluded.source,
			summary = excluded.summary,
			tags = excluded.tags
	`), ord.Key(), o.Slot, o.URL, o.Title, o.Source, o.Summary, string(tagsJSON))
	if err != nil {
		return fmt.Errorf("upsert override %s/%d: %w", ord.Key(), o.Slot, err)
	}
	return nil
}

// ListOverrides returns overrides for one dispatch date, or all of them when
// date is empty.
func (s *SQLStore) ListOverrides(ctx context.Context, date string) ([]dispatch.Override, error) {
	query := "SELECT * FROM spotlight_overrides"
	var args []any
	if date != "" {
		query += " WHERE dispatch_date = ?"
		args = append(args, dispatch.DayKey(date))
	}
	query += " ORDER BY dispatch_date, slot"

	var rows []overrideRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	return lo.Map(rows, func(r overrideRow, _ int) dispatch.Override {
		o := dispatch.Override{
			DispatchDate: r.DispatchDate,
			Slot:         r.Slot,
			URL:          r.URL,
			Title:        r.Title,
			Source:       r.Source,
			Summary:      r.Summary,
		}
		if err := json.Unmarshal([]byte(r.Tags), &o.Tags); err != nil {
			slog.Warn("corrupt override tags", "date", r.DispatchDate, "slot", r.Slot, "err", err)
		}
		return o
	}), nil
}

func (s *SQLStore) DeleteOverride(ctx context.Context, date string, slot int) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM spotlight_overrides WHERE dispatch_date = ? AND slot = ?"),
		dispatch.DayKey(date), slot)
	if err != nil {
		return fmt.Errorf("delete override %s/%d: %w", date, slot, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete override %s/%d: %w", date, slot, ErrNotFound)
	}
	return nil
}

// ReplaceWhitelist swaps the whole whitelist atomically.
func (s *SQLStore) ReplaceWhitelist(ctx context.Context, entries []dispatch.WhitelistEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin whitelist: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM whitelist"); err != nil {
		return fmt.Errorf("clear whitelist: %w", err)
	}
	insert := tx.Rebind(`
		INSERT INTO whitelist (source_name, website_url, rss_url, source_type)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_name) DO UPDATE SET
			website_url = excluded.website_url,
			rss_url = excluded.rss_url,
			source_type = excluded.source_type
	`)
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, insert, e.SourceName, e.WebsiteURL, e.RSSURL, string(e.SourceType.Normalize())); err != nil {
			return fmt.Errorf("insert whitelist %s: %w", e.SourceName, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit whitelist: %w", err)
	}
	return nil
}

func (s *SQLStore) ListWhitelist(ctx context.Context) ([]dispatch.WhitelistEntry, error) {
	var rows []whitelistRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM whitelist ORDER BY source_name"); err != nil {
		return nil, fmt.Errorf("list whitelist: %w", err)
	}
	return lo.Map(rows, func(r whitelistRow, _ int) dispatch.WhitelistEntry {
		return dispatch.WhitelistEntry{
			SourceName: r.SourceName,
			WebsiteURL: r.WebsiteURL,
			RSSURL:     r.RSSURL,
			SourceType: dispatch.SourceType(r.SourceType).Normalize(),
		}
	}), nil
}

// AddEditionDate records a published daily edition for a YYYY-MM-DD date.
func (s *SQLStore) AddEditionDate(ctx context.Context, isoDate string) error {
	if _, err := time.Parse(time.DateOnly, isoDate); err != nil {
		return fmt.Errorf("add edition date: %w", err)
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind("INSERT INTO daily_editions (edition_date) VALUES (?) ON CONFLICT(edition_date) DO NOTHING"), isoDate)
	if err != nil {
		return fmt.Errorf("add edition date %s: %w", isoDate, err)
	}
	return nil
}

func (s *SQLStore) ListEditionDates(ctx context.Context) ([]string, error) {
	var dates []string
	if err := s.db.SelectContext(ctx, &dates, "SELECT edition_date FROM daily_editions ORDER BY edition_date DESC"); err != nil {
		return nil, fmt.Errorf("list edition dates: %w", err)
	}
	return dates, nil
}

// MarkDispatchAlerted records that date's spotlight was announced. It reports
// true only for the first call per date.
func (s *SQLStore) MarkDispatchAlerted(ctx context.Context, date string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("INSERT INTO dispatch_alerts (dispatch_date, alerted_at) VALUES (?, ?) ON CONFLICT(dispatch_date) DO NOTHING"),
		dispatch.DayKey(date), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("mark dispatch alerted %s: %w", date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark dispatch alerted %s: %w", date, err)
	}
	return n == 1, nil
}

// Snapshot loads the most recent window items plus every override, whitelist
// entry and edition date.
func (s *SQLStore) Snapshot(ctx context.Context, window int) (dispatch.Snapshot, error) {
	items, err := s.ListNewsItems(ctx, ListOpts{Limit: window})
	if err != nil {
		return dispatch.Snapshot{}, err
	}
	overrides, err := s.ListOverrides(ctx, "")
	if err != nil {
		return dispatch.Snapshot{}, err
	}
	whitelist, err := s.ListWhitelist(ctx)
	if err != nil {
		return dispatch.Snapshot{}, err
	}
	editions, err := s.ListEditionDates(ctx)
	if err != nil {
		return dispatch.Snapshot{}, err
	}
	return dispatch.Snapshot{
		Items:        items,
		Overrides:    overrides,
		Whitelist:    whitelist,
		EditionDates: editions,
	}, nil
}
