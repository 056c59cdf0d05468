package sqlite

// Schema DDL for the cookie store.
const (
	createCookies = `CREATE TABLE IF NOT EXISTS cookies (
    origin TEXT NOT NULL,
    domain TEXT NOT NULL,
    path TEXT NOT NULL,
    name TEXT NOT NULL,
    value TEXT NOT NULL,
    expires INTEGER,
    secure INTEGER NOT NULL DEFAULT 0,
    http_only INTEGER NOT NULL DEFAULT 0,
    same_site INTEGER NOT NULL DEFAULT 0,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (origin, domain, path, name)
);`

	createCookiesExpiresIndex = `CREATE INDEX IF NOT EXISTS idx_cookies_expires ON cookies(expires);`
)

var schemaStatements = []string{
	createCookies,
	createCookiesExpiresIndex,
}
