//nolint:mnd //no magic number
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xdoubleu/essentia/v2/pkg/config"
	str2duration "github.com/xhit/go-str2duration/v2"
)

type Config struct {
	Env        string
	Port       int
	WebURL     string
	SentryDsn  string
	SampleRate float64
	Release    string
	DBDsn      string

	GithubToken      string
	GistID           string
	GistFilename     string
	GistFreeFilename string
	GistBusyFilename string

	TimeMode           string
	Timezone           string
	TransparencyPolicy string
	AllDayThreshold    time.Duration
}

func New(logger *slog.Logger) Config {
	var cfg Config

	parser := config.New(logger)

	cfg.Env = parser.EnvStr("ENV", config.ProdEnv)
	cfg.Port = parser.EnvInt("PORT", 8000)
	cfg.WebURL = parser.EnvStr("WEB_URL", "http://localhost:8000")
	cfg.SentryDsn = parser.EnvStr("SENTRY_DSN", "")
	cfg.SampleRate = parser.EnvFloat("SAMPLE_RATE", 1.0)
	cfg.Release = parser.EnvStr("RELEASE", config.DevEnv)
	cfg.DBDsn = parser.EnvStr("DB_DSN", "postgres://postgres@localhost/postgres")

	cfg.GithubToken = parser.EnvStr("GITHUB_TOKEN", "")
	cfg.GistID = parser.EnvStr("GIST_ID", "")
	cfg.GistFilename = parser.EnvStr("GIST_FILENAME", "events.ics")
	cfg.GistFreeFilename = parser.EnvStr("GIST_FREE_FILENAME", "events-free.ics")
	cfg.GistBusyFilename = parser.EnvStr("GIST_BUSY_FILENAME", "events-busy.ics")

	cfg.TimeMode = parser.EnvStr("TIME_MODE", "naive")
	cfg.Timezone = parser.EnvStr("TIMEZONE", "America/Chicago")
	cfg.TransparencyPolicy = parser.EnvStr("TRANSPARENCY_POLICY", "")

	threshold, err := str2duration.ParseDuration(
		parser.EnvStr("ALL_DAY_THRESHOLD", "23h"),
	)
	if err != nil {
		panic(err)
	}
	cfg.AllDayThreshold = threshold

	return cfg
}

// Validate fails fast on startup when the credentials the publish
// collaborator needs are missing.
func (cfg Config) Validate() error {
	if cfg.GithubToken == "" || cfg.GistID == "" {
		return fmt.Errorf("GITHUB_TOKEN and GIST_ID must be configured")
	}
	return nil
}
