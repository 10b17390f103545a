package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mbolis/quick-form/config"
	"github.com/mbolis/quick-form/database"
	"github.com/sirupsen/logrus"
)

// NewLogger returns a logger that discards its output.
func NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Out = io.Discard
	logger.Level = logrus.DebugLevel
	return logger
}

// TestConfig returns a configuration pointing at a fresh SQLite file.
func TestConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Addr:        "127.0.0.1:0",
		DBDriver:    config.DriverSQLite,
		DBUrl:       filepath.Join(t.TempDir(), "forms.sqlite"),
		CORSOrigins: []string{"*"},
		LogFormat:   config.FormatText,
	}
}

// SetupTestDB opens a migrated SQLite database private to the test.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(TestConfig(t), NewLogger())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

// SetupPostgresDB opens the PostgreSQL database named by DATABASE_URL,
// migrates it and empties every table. The test is skipped when the
// variable is unset.
func SetupPostgresDB(t *testing.T) *sql.DB {
	t.Helper()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := database.Open(config.Config{DBDriver: config.DriverPostgres, DBUrl: url}, NewLogger())
	if err != nil {
		t.Fatalf("Failed to open postgres database: %v", err)
	}

	truncate := func() {
		_, err := db.Exec(`TRUNCATE forms, form_fields, form_responses, response_data RESTART IDENTITY CASCADE`)
		if err != nil {
			t.Fatalf("Failed to truncate tables: %v", err)
		}
	}
	truncate()
	t.Cleanup(func() {
		truncate()
		db.Close()
	})

	return db
}

// CountRows returns the number of rows in table.
func CountRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("Failed to count %s: %v", table, err)
	}
	return n
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body any) *http.Request {
	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, path, nil)
	case string:
		req = httptest.NewRequest(method, path, bytes.NewReader([]byte(b)))
		req.Header.Set("Content-Type", "application/json")
	default:
		jsonBody, _ := json.Marshal(b)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided value
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
