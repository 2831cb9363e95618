package history

// Schema is the history table with its lookup indexes. Timestamps are
// Unix milliseconds. normalized_url is the dedup key and therefore UNIQUE.
const Schema = `
CREATE TABLE IF NOT EXISTS history (
    id              TEXT PRIMARY KEY,
    url             TEXT NOT NULL,
    normalized_url  TEXT NOT NULL UNIQUE,
    title           TEXT NOT NULL,
    source          TEXT NOT NULL DEFAULT '',
    first_seen_at   INTEGER NOT NULL,
    last_seen_at    INTEGER NOT NULL,
    published_at    INTEGER,
    date_confidence TEXT NOT NULL DEFAULT 'unknown',
    title_hash      TEXT NOT NULL DEFAULT '',
    content_hash    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_history_first_seen ON history(first_seen_at);
CREATE INDEX IF NOT EXISTS idx_history_published ON history(published_at);
CREATE INDEX IF NOT EXISTS idx_history_source ON history(source);
CREATE INDEX IF NOT EXISTS idx_history_title_hash ON history(title_hash);
`
