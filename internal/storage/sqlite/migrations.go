package sqlite

// schema contains the database schema DDL.
const schema = `
-- Latest CGM reading (single row)
CREATE TABLE IF NOT EXISTS reading_cache (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    glucose INTEGER NOT NULL,
    trend TEXT NOT NULL,
    raw_trend TEXT,
    taken_at DATETIME NOT NULL,
    cached_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Configuration
CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
