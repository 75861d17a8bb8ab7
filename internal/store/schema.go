package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS user_stats (
    user                 TEXT PRIMARY KEY,
    link_count           INTEGER NOT NULL DEFAULT 0,
    code_count           INTEGER NOT NULL DEFAULT 0,
    todo_count           INTEGER NOT NULL DEFAULT 0,
    undo_count           INTEGER NOT NULL DEFAULT 0,
    pinned_count         INTEGER NOT NULL DEFAULT 0,
    total_memos          INTEGER NOT NULL DEFAULT 0,
    fetched_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS activity_days (
    user                 TEXT NOT NULL REFERENCES user_stats(user) ON DELETE CASCADE,
    day                  TEXT NOT NULL,
    count                INTEGER NOT NULL,
    PRIMARY KEY (user, day)
);

CREATE TABLE IF NOT EXISTS tag_counts (
    user                 TEXT NOT NULL REFERENCES user_stats(user) ON DELETE CASCADE,
    tag                  TEXT NOT NULL,
    count                INTEGER NOT NULL,
    PRIMARY KEY (user, tag)
);

CREATE TABLE IF NOT EXISTS filters (
    position             INTEGER PRIMARY KEY,
    factor               TEXT NOT NULL,
    value                TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_activity_day ON activity_days(day);
`
