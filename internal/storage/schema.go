package storage

const Schema = `
-- One row per killmail, in output order within each character
CREATE TABLE IF NOT EXISTS distances (
    character_id INTEGER NOT NULL,
    position INTEGER NOT NULL,        -- 0-based position inside the character's sequence
    killmail_id INTEGER NOT NULL,
    cos_dist_st REAL,                 -- NULL for the first killmail of a character
    cos_dist_lt REAL,
    PRIMARY KEY (character_id, position)
);
CREATE INDEX IF NOT EXISTS idx_distances_killmail ON distances(killmail_id);

-- Run metadata: what produced the current contents
CREATE TABLE IF NOT EXISTS run_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

INSERT OR IGNORE INTO run_metadata (key, value) VALUES
    ('total_rows', '0'),
    ('total_characters', '0'),
    ('schema_version', '1');
`
