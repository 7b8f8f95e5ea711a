// Package cmdutil wires the components from the resolved configuration.
package cmdutil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mpapenbr/racedash/log"
	"github.com/mpapenbr/racedash/pkg/config"
	"github.com/mpapenbr/racedash/pkg/dashboard"
	"github.com/mpapenbr/racedash/pkg/db/migrate"
	"github.com/mpapenbr/racedash/pkg/db/postgres"
	"github.com/mpapenbr/racedash/pkg/model"
	"github.com/mpapenbr/racedash/pkg/provider"
	"github.com/mpapenbr/racedash/pkg/provider/archive"
	"github.com/mpapenbr/racedash/pkg/provider/cached"
	"github.com/mpapenbr/racedash/pkg/provider/openf1"
	"github.com/mpapenbr/racedash/pkg/session"
	"github.com/mpapenbr/racedash/pkg/store"
	storepg "github.com/mpapenbr/racedash/pkg/store/postgres"
	"github.com/mpapenbr/racedash/pkg/store/sqlite"
	"github.com/mpapenbr/racedash/pkg/story"
	"github.com/mpapenbr/racedash/pkg/utils"
)

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger creates the process logger from LogFormat, LogLevel and
// LogFilter and installs it as default.
func SetupLogger() (*log.Logger, error) {
	logger, err := newLogger(config.LogLevel)
	if err != nil {
		return nil, err
	}
	log.ResetDefault(logger)
	return logger, nil
}

func newLogger(level string) (*log.Logger, error) {
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	if config.LogFilter != "" {
		filter, err := log.WithFilter(config.LogFilter)
		if err != nil {
			return nil, fmt.Errorf("invalid log filter: %w", err)
		}
		opts = append(opts, filter)
	}
	switch config.LogFormat {
	case "json":
		return log.New(os.Stderr, parseLogLevel(level, log.InfoLevel), opts...), nil
	default:
		return log.DevLogger(os.Stderr, parseLogLevel(level, log.DebugLevel), opts...), nil
	}
}

// SetupTelemetry starts the exporters if telemetry is enabled.
// The result is nil otherwise or if the setup failed.
func SetupTelemetry(ctx context.Context) *config.Telemetry {
	if !config.EnableTelemetry {
		return nil
	}
	log.Info("Enabling telemetry", log.String("endpoint", config.TelemetryEndpoint))
	t, err := config.SetupTelemetry(ctx)
	if err != nil {
		log.Warn("Could not setup telemetry", log.ErrorField(err))
		return nil
	}
	return t
}

// LoadStory reads StoryFile (the embedded story if empty) and applies the
// session overrides.
func LoadStory() (*story.Story, error) {
	var s *story.Story
	if config.StoryFile == "" {
		s = story.Default()
	} else {
		var err error
		if s, err = story.LoadFile(config.StoryFile); err != nil {
			return nil, err
		}
	}
	if config.Year != 0 {
		s.Session.Year = config.Year
	}
	if config.Event != "" {
		s.Session.Event = config.Event
	}
	if config.SessionType != "" {
		s.Session.Type = config.SessionType
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewUpstream creates the provider selected by Source.
func NewUpstream() (provider.Provider, error) {
	switch config.Source {
	case config.SourceArchive:
		return archive.New(config.ArchiveDir), nil
	case config.SourceOpenF1:
		return openf1.New(config.OpenF1URL), nil
	default:
		return nil, fmt.Errorf("unknown source %q", config.Source)
	}
}

// OpenStore opens the postgres store if DB is set, the sqlite store in
// CacheDir otherwise.
func OpenStore(ctx context.Context) (store.Store, error) {
	if config.DB == "" {
		return sqlite.Open(config.CacheDir, config.Source)
	}
	if err := WaitForDB(ctx); err != nil {
		return nil, err
	}
	if err := migrate.MigrateDb(config.DB); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	opts := []postgres.PoolConfigOption{}
	if config.EnableTelemetry {
		opts = append(opts, postgres.WithOtel())
	} else if config.SQLLogLevel != "" {
		sqlLogger, err := newLogger(config.SQLLogLevel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, postgres.WithTracer(sqlLogger.Named("sql")))
	}
	pool, err := postgres.InitWithUrl(ctx, config.DB, opts...)
	if err != nil {
		return nil, err
	}
	return storepg.New(pool, config.Source), nil
}

// WaitForDB waits until the postgres server of DB accepts connections.
func WaitForDB(ctx context.Context) error {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	addr := utils.ExtractFromDBURL(config.DB)
	if addr == "" {
		return fmt.Errorf("not a postgres url: %q", config.DB)
	}
	if err := utils.WaitForTCP(ctx, addr, timeout); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	return nil
}

// App holds the components shared by the commands.
type App struct {
	Story      *story.Story
	Key        model.SessionKey
	Store      store.Store
	Provider   provider.Provider
	Sessions   *session.Cache
	Dispatcher *dashboard.Dispatcher
}

// NewApp wires story, store, providers, session cache and dispatcher.
func NewApp(ctx context.Context) (*App, error) {
	s, err := LoadStory()
	if err != nil {
		return nil, err
	}
	key, err := s.Key()
	if err != nil {
		return nil, err
	}
	upstream, err := NewUpstream()
	if err != nil {
		return nil, err
	}
	st, err := OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	p := cached.New(upstream, st)
	sessions := session.NewCache(p)
	d, err := dashboard.NewDispatcher(sessions, s)
	if err != nil {
		return nil, errors.Join(err, st.Close())
	}
	log.Debug("app initialized",
		log.String("session", key.String()),
		log.String("source", config.Source),
		log.Bool("postgres", config.DB != ""))
	return &App{
		Story:      s,
		Key:        key,
		Store:      st,
		Provider:   p,
		Sessions:   sessions,
		Dispatcher: d,
	}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}
