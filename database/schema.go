package database

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	is_admin BOOLEAN DEFAULT 0,
	major TEXT DEFAULT '',
	created DATETIME
);
CREATE TABLE IF NOT EXISTS threads (
	id TEXT PRIMARY KEY,
	author TEXT NOT NULL,
	category_id TEXT DEFAULT 'general',
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	is_violation BOOLEAN DEFAULT 0,
	violation_reason TEXT,
	created DATETIME
);
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME
);
CREATE TABLE IF NOT EXISTS replies (
	id TEXT PRIMARY KEY,
	thread_id TEXT NOT NULL,
	author TEXT NOT NULL,
	content TEXT NOT NULL,
	is_violation BOOLEAN DEFAULT 0,
	created DATETIME,
	FOREIGN KEY (thread_id) REFERENCES threads(id) ON DELETE CASCADE
);

-- --- INDEXES ---
CREATE INDEX IF NOT EXISTS idx_threads_created ON threads(created DESC);
CREATE INDEX IF NOT EXISTS idx_threads_category ON threads(category_id);
CREATE INDEX IF NOT EXISTS idx_replies_thread ON replies(thread_id);
CREATE INDEX IF NOT EXISTS idx_users_created ON users(created);
`
