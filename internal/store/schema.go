package store

// Schema is applied on every Open; statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    ts         TEXT    NOT NULL,
    kind       TEXT    NOT NULL,
    request_id TEXT    NOT NULL,
    agent_id   TEXT    NOT NULL,
    clearance  TEXT    NOT NULL,
    origin     TEXT    NOT NULL,
    target     TEXT    NOT NULL,
    elevator   TEXT    NOT NULL,
    reason     TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_events_agent ON events(agent_id);
CREATE INDEX IF NOT EXISTS idx_events_request ON events(request_id);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
`
