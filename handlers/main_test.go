// engforum/handlers/main_test.go
package handlers

import (
	"engforum/database"
	"engforum/email"
	"engforum/models"
	"engforum/session"
	"engforum/utils"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// MockMailer records welcome email calls and returns a configurable
// result, standing in for the SMTP-backed service.
type MockMailer struct {
	mu           sync.Mutex
	Result       bool
	WelcomeCalls []string
}

func (m *MockMailer) SendWelcomeEmail(toEmail, username, major string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WelcomeCalls = append(m.WelcomeCalls, toEmail)
	return m.Result
}

func (m *MockMailer) SendEmail(toEmail, subject, bodyHTML string) bool {
	return m.Result
}

var _ models.MailService = (*MockMailer)(nil)
var _ models.MailService = (*email.Service)(nil)

// MockApplication holds dependencies for handler tests.
type MockApplication struct {
	db          *database.DatabaseService
	rateLimiter *models.RateLimiter
	logger      *slog.Logger
	mailer      *MockMailer
	sessions    *session.Manager
}

func (a *MockApplication) DB() *database.DatabaseService    { return a.db }
func (a *MockApplication) RateLimiter() *models.RateLimiter { return a.rateLimiter }
func (a *MockApplication) Logger() *slog.Logger             { return a.logger }
func (a *MockApplication) Mailer() models.MailService       { return a.mailer }
func (a *MockApplication) Sessions() *session.Manager       { return a.sessions }

// setupTestApp creates a full application stack with a test database
// for integration testing.
func setupTestApp(t *testing.T) *MockApplication {
	if err := os.Chdir(".."); err != nil {
		t.Fatalf("Failed to change directory to project root: %v", err)
	}
	if err := LoadTemplates(); err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}
	if err := os.Chdir("handlers"); err != nil {
		t.Fatalf("Failed to change back to handlers directory: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	dbDir, err := os.MkdirTemp("", "engforum_test_db_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir for test DB: %v", err)
	}
	dbPath := filepath.Join(dbDir, "test.db?_journal_mode=WAL&_foreign_keys=on")
	dbService, err := database.InitDB(dbPath, logger)
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	app := &MockApplication{
		db:          dbService,
		rateLimiter: models.NewRateLimiter(time.Millisecond, 1000, time.Hour, 24*time.Hour),
		logger:      logger,
		mailer:      &MockMailer{Result: true},
		sessions:    session.NewManager("test-secret", logger),
	}

	t.Cleanup(func() {
		app.db.DB.Close()
		os.RemoveAll(dbDir)
	})

	return app
}

// setupServer starts a test server with the full middleware chain and
// returns a cookie-carrying client.
func setupServer(t *testing.T, app *MockApplication) (*httptest.Server, *http.Client) {
	finalHandler := CSRFMiddleware(SecurityHeadersMiddleware(SetupRouter(app)))
	ts := httptest.NewServer(finalHandler)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("Failed to create cookie jar: %v", err)
	}
	return ts, &http.Client{Jar: jar}
}

// noRedirect returns a client sharing the same cookie jar that stops
// at the first response instead of following redirects.
func noRedirect(client *http.Client) *http.Client {
	return &http.Client{
		Jar: client.Jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// csrfToken primes the client's cookie jar with a GET and returns the
// CSRF token the server issued.
func csrfToken(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	resp, err := client.Get(baseURL + "/")
	if err != nil {
		t.Fatalf("Failed to prime CSRF cookie: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	u, _ := url.Parse(baseURL)
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == "csrf_token" {
			return c.Value
		}
	}
	t.Fatal("No csrf_token cookie issued")
	return ""
}

// createUser inserts an account directly, bypassing the registration
// flow. MinCost keeps the bcrypt work factor out of the test runtime.
func createUser(t *testing.T, app *MockApplication, username, password string, isAdmin bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash test password: %v", err)
	}
	u := &models.User{
		ID:           "user-" + username,
		Username:     username,
		Email:        username + "@example.edu",
		PasswordHash: string(hash),
		IsAdmin:      isAdmin,
		Major:        "Electrical Engineering",
		Created:      utils.GetSQLTime(),
	}
	if err := app.db.CreateUser(u); err != nil {
		t.Fatalf("Failed to create test user %q: %v", username, err)
	}
	return u
}

// loginAs authenticates the client's session through the login form.
func loginAs(t *testing.T, client *http.Client, baseURL, username, password string) {
	t.Helper()
	token := csrfToken(t, client, baseURL)
	resp, err := client.PostForm(baseURL+"/login", url.Values{
		"csrf_token": {token},
		"username":   {username},
		"password":   {password},
	})
	if err != nil {
		t.Fatalf("Login request failed: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Login as %q did not land on a page, status %d", username, resp.StatusCode)
	}
}

// readBody drains and returns the response body.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return string(body)
}

// createThread inserts a thread directly for moderation tests.
func createThread(t *testing.T, app *MockApplication, id, author string) *models.Thread {
	t.Helper()
	th := &models.Thread{
		ID:         id,
		Author:     author,
		CategoryID: "programming",
		Title:      "Thread " + id,
		Content:    "Content of " + id,
		Created:    utils.GetSQLTime(),
	}
	if err := app.db.CreateThread(th); err != nil {
		t.Fatalf("Failed to create test thread %q: %v", id, err)
	}
	return th
}
