package transfer

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"pansave/internal"
)

// quarkSessionCookies are the cookies that carry the Quark login session.
// At least one must be present for authenticated calls to succeed.
var quarkSessionCookies = []string{"__puus", "__pus"}

// Session is an authenticated provider account session reconstructed from
// exported browser cookies
type Session struct {
	Cookies   map[string]*http.Cookie
	ExpiresAt time.Time
	UserAgent string
}

// Expired reports whether the session is past its expiry. A zero expiry
// means the cookie file carried only session cookies and never expires on
// our side.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// CookieHeader renders the session cookies as a Cookie request header
// value, in stable name order
func (s *Session) CookieHeader() string {
	names := make([]string, 0, len(s.Cookies))
	for name := range s.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+s.Cookies[name].Value)
	}
	return strings.Join(pairs, "; ")
}

// CookieSessionSource loads sessions from a Netscape-format cookie file
// exported from a logged-in browser
type CookieSessionSource struct {
	path        string
	required    []string
	cookieStore map[string]*http.Cookie
	mutex       sync.Mutex
}

// NewCookieSessionSource creates a session source backed by the cookie
// file at path, requiring the Quark session cookies
func NewCookieSessionSource(path string) *CookieSessionSource {
	return &CookieSessionSource{
		path:     path,
		required: quarkSessionCookies,
	}
}

// Acquire loads the cookie file and builds a session from it. A missing
// file, missing session cookies, or an already-expired session cookie all
// surface as authentication errors so callers can prompt for fresh
// cookies instead of burning queue items.
func (c *CookieSessionSource) Acquire() (*Session, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	file, err := os.Open(c.path)
	if err != nil {
		return nil, internal.NewAuthError(fmt.Sprintf("cannot open cookie file %s: %v", c.path, err))
	}
	defer file.Close()

	c.clearCookies()
	c.cookieStore = make(map[string]*http.Cookie)

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cookie, err := parseNetscapeCookieLine(line)
		if err != nil {
			return nil, internal.NewAuthError(fmt.Sprintf("invalid cookie format at line %d: %v", lineNum, err))
		}

		c.cookieStore[cookie.Name] = cookie
	}

	if err := scanner.Err(); err != nil {
		return nil, internal.NewAuthError(fmt.Sprintf("error reading cookie file: %v", err))
	}

	session := &Session{
		Cookies: make(map[string]*http.Cookie, len(c.cookieStore)),
	}
	for name, cookie := range c.cookieStore {
		session.Cookies[name] = cookie
	}

	if err := c.validate(session); err != nil {
		return nil, err
	}

	session.ExpiresAt = sessionExpiry(session.Cookies, c.required)
	if session.Expired() {
		return nil, internal.NewAuthError(fmt.Sprintf("session cookies expired at %v", session.ExpiresAt)).
			WithSuggestion("Export fresh cookies from a logged-in browser session")
	}

	return session, nil
}

// validate checks that at least one required session cookie is present
// and non-empty
func (c *CookieSessionSource) validate(session *Session) error {
	for _, name := range c.required {
		if cookie, ok := session.Cookies[name]; ok && cookie.Value != "" {
			return nil
		}
	}
	return internal.NewAuthError(fmt.Sprintf("cookie file is missing session cookies (need one of %s)",
		strings.Join(c.required, ", "))).
		WithSuggestion("Log in to the provider in a browser and re-export cookies")
}

// Cleanup clears all cookie values from memory
func (c *CookieSessionSource) Cleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.clearCookies()
}

func (c *CookieSessionSource) clearCookies() {
	for name := range c.cookieStore {
		if cookie := c.cookieStore[name]; cookie != nil {
			cookie.Value = ""
		}
		delete(c.cookieStore, name)
	}
}

// sessionExpiry picks the earliest explicit expiry among the required
// session cookies. Cookies without an expiry contribute nothing.
func sessionExpiry(cookies map[string]*http.Cookie, required []string) time.Time {
	var earliest time.Time
	for _, name := range required {
		cookie, ok := cookies[name]
		if !ok || cookie.Expires.IsZero() {
			continue
		}
		if earliest.IsZero() || cookie.Expires.Before(earliest) {
			earliest = cookie.Expires
		}
	}
	return earliest
}

// parseNetscapeCookieLine parses a single line from Netscape cookie format
// Format: domain	flag	path	secure	expiration	name	value
func parseNetscapeCookieLine(line string) (*http.Cookie, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 7 {
		return nil, fmt.Errorf("expected 7 fields, got %d", len(fields))
	}

	domain := fields[0]
	path := fields[2]
	secureStr := fields[3]
	expirationStr := fields[4]
	name := fields[5]
	value := fields[6]

	secure := secureStr == "TRUE"

	// Zero expiration marks a session cookie
	var expires time.Time
	if expirationStr != "0" {
		timestamp, err := strconv.ParseInt(expirationStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid expiration timestamp: %w", err)
		}
		expires = time.Unix(timestamp, 0)
	}

	return &http.Cookie{
		Name:     name,
		Value:    value,
		Domain:   domain,
		Path:     path,
		Expires:  expires,
		Secure:   secure,
		HttpOnly: true,
	}, nil
}
