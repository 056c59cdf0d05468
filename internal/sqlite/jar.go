// Package sqlite persists the client's session cookies in a SQLite database
// so that a CSRF token and session survive between CLI invocations.
package sqlite

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
	_ "modernc.org/sqlite"
)

// DatabaseFile is the name of the cookie database inside the data dir.
const DatabaseFile = "cookies.db"

// CookieJar is an http.CookieJar backed by an in-memory cookiejar.Jar for
// matching and a SQLite table for persistence. Every cookie set on the jar
// is written through; opening the jar replays the stored cookies that have
// not expired.
type CookieJar struct {
	mu     sync.Mutex
	db     *sql.DB
	mem    *cookiejar.Jar
	path   string
	log    *logrus.Entry
	closed bool
}

// OpenCookieJar opens (creating if needed) the cookie database in dataDir.
// log may be nil.
func OpenCookieJar(dataDir string, log *logrus.Entry) (*CookieJar, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	mem, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		db.Close()
		return nil, err
	}

	j := &CookieJar{db: db, mem: mem, path: dbPath, log: log.WithField("db", dbPath)}
	if err := j.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load cookies: %w", err)
	}
	return j, nil
}

// Path returns the database file path.
func (j *CookieJar) Path() string { return j.path }

// Cookies implements http.CookieJar.
func (j *CookieJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	mem := j.mem
	j.mu.Unlock()
	return mem.Cookies(u)
}

// SetCookies implements http.CookieJar. Storage errors are logged; the
// in-memory jar is updated regardless.
func (j *CookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.mem.SetCookies(u, cookies)
	if j.closed {
		return
	}

	now := time.Now()
	origin := originOf(u)
	for _, c := range cookies {
		if err := j.store(origin, u, c, now); err != nil {
			j.log.WithError(err).WithField("cookie", c.Name).Warn("persist cookie failed")
		}
	}
}

// Clear removes every cookie, stored and in memory.
func (j *CookieJar) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if _, err := j.db.Exec(`DELETE FROM cookies`); err != nil {
		return err
	}
	mem, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return err
	}
	j.mem = mem
	return nil
}

// Count returns the number of stored cookies, expired ones included.
func (j *CookieJar) Count() (int, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return 0, ErrClosed
	}
	var n int
	err := j.db.QueryRow(`SELECT COUNT(*) FROM cookies`).Scan(&n)
	return n, err
}

// Close releases the database. Close is idempotent.
func (j *CookieJar) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

func (j *CookieJar) store(origin string, u *url.URL, c *http.Cookie, now time.Time) error {
	path := c.Path
	if path == "" || path[0] != '/' {
		path = defaultPath(u.Path)
	}

	var expires sql.NullInt64
	switch {
	case c.MaxAge < 0:
		return j.remove(origin, c.Domain, path, c.Name)
	case c.MaxAge > 0:
		expires = sql.NullInt64{Int64: now.Add(time.Duration(c.MaxAge) * time.Second).Unix(), Valid: true}
	case !c.Expires.IsZero():
		if !c.Expires.After(now) {
			return j.remove(origin, c.Domain, path, c.Name)
		}
		expires = sql.NullInt64{Int64: c.Expires.Unix(), Valid: true}
	}

	_, err := j.db.Exec(`INSERT INTO cookies
		(origin, domain, path, name, value, expires, secure, http_only, same_site, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (origin, domain, path, name) DO UPDATE SET
			value = excluded.value,
			expires = excluded.expires,
			secure = excluded.secure,
			http_only = excluded.http_only,
			same_site = excluded.same_site,
			updated_at = excluded.updated_at`,
		origin, c.Domain, path, c.Name, c.Value, expires,
		c.Secure, c.HttpOnly, int(c.SameSite), now.UTC().Format(time.RFC3339))
	return err
}

func (j *CookieJar) remove(origin, domain, path, name string) error {
	_, err := j.db.Exec(`DELETE FROM cookies WHERE origin = ? AND domain = ? AND path = ? AND name = ?`,
		origin, domain, path, name)
	return err
}

// load drops expired rows and replays the rest into the memory jar.
func (j *CookieJar) load() error {
	now := time.Now()
	if _, err := j.db.Exec(`DELETE FROM cookies WHERE expires IS NOT NULL AND expires <= ?`, now.Unix()); err != nil {
		return err
	}

	rows, err := j.db.Query(`SELECT origin, domain, path, name, value, expires, secure, http_only, same_site FROM cookies`)
	if err != nil {
		return err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var (
			origin, domain, path, name, value string
			expires                           sql.NullInt64
			secure, httpOnly                  bool
			sameSite                          int
		)
		if err := rows.Scan(&origin, &domain, &path, &name, &value, &expires, &secure, &httpOnly, &sameSite); err != nil {
			return err
		}
		u, err := url.Parse(origin)
		if err != nil {
			j.log.WithError(err).WithField("origin", origin).Warn("skipping cookie with bad origin")
			continue
		}
		c := &http.Cookie{
			Name:     name,
			Value:    value,
			Domain:   domain,
			Path:     path,
			Secure:   secure,
			HttpOnly: httpOnly,
			SameSite: http.SameSite(sameSite),
		}
		if expires.Valid {
			c.Expires = time.Unix(expires.Int64, 0)
		}
		j.mem.SetCookies(u, []*http.Cookie{c})
		count++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	j.log.WithField("count", count).Debug("loaded cookies")
	return nil
}

func originOf(u *url.URL) string {
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}).String()
}

// defaultPath is the RFC 6265 section 5.1.4 default cookie path.
func defaultPath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(p, "/")
	if i == 0 {
		return "/"
	}
	return p[:i]
}
