package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	FormatText = "text"
	FormatJSON = "json"
)

type Config struct {
	Addr        string
	DBDriver    string
	DBUrl       string
	StaticDir   string
	CORSOrigins []string
	LogFormat   string
	Debug       bool
}

// Load reads an optional .env file from the working directory, then parses args.
// Variables already set in the environment are never overridden by .env.
func Load(args []string) (Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return ParseFlags(args)
}

// ParseFlags parses command line flags, falling back to environment
// variables for anything not given on the command line.
func ParseFlags(args []string) (cfg Config, err error) {
	fs := flag.NewFlagSet("quick-form", flag.ContinueOnError)

	host := fs.String("host", envOr("HOST", "0.0.0.0"), "listen host name")
	port := fs.Uint("port", 0, "listen port number (default 5000)")
	fs.StringVar(&cfg.DBDriver, "db-driver", envOr("DB_DRIVER", DriverPostgres), "database driver (postgres or sqlite3)")
	fs.StringVar(&cfg.DBUrl, "db-url", os.Getenv("DATABASE_URL"), "database connection string or SQLite3 file path")
	fs.StringVar(&cfg.StaticDir, "static-dir", os.Getenv("STATIC_DIR"), "directory holding the built client UI (optional)")
	origins := fs.String("cors-origins", envOr("CORS_ORIGINS", "*"), "comma-separated list of allowed CORS origins")
	fs.StringVar(&cfg.LogFormat, "log-format", envOr("LOG_FORMAT", FormatText), "log output format (text or json)")
	fs.BoolVar(&cfg.Debug, "debug", envBool("DEBUG"), "log at DEBUG level")

	if err = fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *port == 0 {
		*port = 5000
		if v := os.Getenv("PORT"); v != "" {
			p, perr := strconv.ParseUint(v, 10, 16)
			if perr != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			*port = uint(p)
		}
	}
	if *port > 65535 {
		return Config{}, fmt.Errorf("port out of range: %d", *port)
	}

	cfg.Addr = net.JoinHostPort(*host, strconv.Itoa(int(*port)))
	cfg.CORSOrigins = splitCSV(*origins)

	switch cfg.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
	if cfg.DBUrl == "" {
		return Config{}, errors.New("missing parameter -db-url (or DATABASE_URL env)")
	}
	switch cfg.LogFormat {
	case FormatText, FormatJSON:
	default:
		return Config{}, fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}

	return cfg, nil
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
