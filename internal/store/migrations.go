package store

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS news_items (
    url           TEXT PRIMARY KEY,
    title         TEXT NOT NULL,
    source        TEXT NOT NULL DEFAULT '',
    date          TEXT NOT NULL DEFAULT '',
    inserted_at   DATETIME NOT NULL,
    summary       TEXT NOT NULL DEFAULT '',
    source_type   TEXT NOT NULL DEFAULT 'standard',
    more_coverage TEXT NOT NULL DEFAULT '[]',
    tags          TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_news_items_inserted_at ON news_items(inserted_at);
CREATE INDEX IF NOT EXISTS idx_news_items_date ON news_items(date);
CREATE INDEX IF NOT EXISTS idx_news_items_source ON news_items(source);

CREATE TABLE IF NOT EXISTS spotlight_overrides (
    dispatch_date TEXT NOT NULL,
    slot          INTEGER NOT NULL CHECK (slot BETWEEN 1 AND 4),
    url           TEXT NOT NULL,
    title         TEXT NOT NULL DEFAULT '',
    source        TEXT NOT NULL DEFAULT '',
    summary       TEXT NOT NULL DEFAULT '',
    tags          TEXT NOT NULL DEFAULT '[]',
    PRIMARY KEY (dispatch_date, slot)
);

CREATE TABLE IF NOT EXISTS whitelist (
    source_name TEXT PRIMARY KEY,
    website_url TEXT NOT NULL DEFAULT '',
    rss_url     TEXT NOT NULL DEFAULT '',
    source_type TEXT NOT NULL DEFAULT 'standard'
);

CREATE TABLE IF NOT EXISTS daily_editions (
    edition_date TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS dispatch_alerts (
    dispatch_date TEXT PRIMARY KEY,
    alerted_at    DATETIME NOT NULL
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS news_items (
    url           TEXT PRIMARY KEY,
    title         TEXT NOT NULL,
    source        TEXT NOT NULL DEFAULT '',
    date          TEXT NOT NULL DEFAULT '',
    inserted_at   TIMESTAMPTZ NOT NULL,
    summary       TEXT NOT NULL DEFAULT '',
    source_type   TEXT NOT NULL DEFAULT 'standard',
    more_coverage TEXT NOT NULL DEFAULT '[]',
    tags          TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_news_items_inserted_at ON news_items(inserted_at);
CREATE INDEX IF NOT EXISTS idx_news_items_date ON news_items(date);
CREATE INDEX IF NOT EXISTS idx_news_items_source ON news_items(source);

CREATE TABLE IF NOT EXISTS spotlight_overrides (
    dispatch_date TEXT NOT NULL,
    slot          INTEGER NOT NULL CHECK (slot BETWEEN 1 AND 4),
    url           TEXT NOT NULL,
    title         TEXT NOT NULL DEFAULT '',
    source        TEXT NOT NULL DEFAULT '',
    summary       TEXT NOT NULL DEFAULT '',
    tags          TEXT NOT NULL DEFAULT '[]',
    PRIMARY KEY (dispatch_date, slot)
);

CREATE TABLE IF NOT EXISTS whitelist (
    source_name TEXT PRIMARY KEY,
    website_url TEXT NOT NULL DEFAULT '',
    rss_url     TEXT NOT NULL DEFAULT '',
    source_type TEXT NOT NULL DEFAULT 'standard'
);

CREATE TABLE IF NOT EXISTS daily_editions (
    edition_date TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS dispatch_alerts (
    dispatch_date TEXT PRIMARY KEY,
    alerted_at    TIMESTAMPTZ NOT NULL
);
`

func schemaFor(driver string) string {
	if driver == DriverPostgres {
		return postgresSchema
	}
	return sqliteSchema
}
