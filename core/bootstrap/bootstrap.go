package bootstrap

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/officebot/core/config"
	coredatabase "github.com/m3rciful/officebot/core/database"
	"github.com/m3rciful/officebot/core/logger"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config *coreconfig.Config
	// Database is optional; nil skips the connect and migrate steps.
	Database *coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, *sqlx.DB, coredatabase.Config) error

	Modules Modules
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	// DB is nil when no database was configured.
	DB *sqlx.DB
	// Services holds whatever Modules.Services provided.
	Services any
}

// Close releases the database, if any.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger, connects to the database when configured,
// applies migrations, then provides services and runs seeders in order.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.Init
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	res := &Result{}
	if opts.Database != nil {
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		db, err := connect(ctx, *opts.Database)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}

		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(ctx, db, *opts.Database); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
		res.DB = db
	}

	if opts.Modules.Services != nil {
		svc, err := opts.Modules.Services.Provide(ctx, opts.Config, res.DB)
		if err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: services: %w", err)
		}
		res.Services = svc
	}
	for i, s := range opts.Modules.Seeders {
		if err := s.Seed(ctx, res.Services); err != nil {
			_ = res.Close()
			return nil, fmt.Errorf("bootstrap: seeder %d: %w", i, err)
		}
	}
	return res, nil
}
