package bootstrap

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Seeder loads reference data into the provided services.
type Seeder interface {
	Seed(ctx context.Context, services any) error
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc func(ctx context.Context, services any) error

// Seed executes the underlying function.
func (f SeederFunc) Seed(ctx context.Context, services any) error {
	return f(ctx, services)
}

// ServiceProvider wires application services from configuration and the
// optional database handle.
type ServiceProvider interface {
	Provide(ctx context.Context, cfg any, db *sqlx.DB) (any, error)
}

// ServiceProviderFunc adapts a function to the ServiceProvider interface.
type ServiceProviderFunc func(ctx context.Context, cfg any, db *sqlx.DB) (any, error)

// Provide executes the underlying function.
func (f ServiceProviderFunc) Provide(ctx context.Context, cfg any, db *sqlx.DB) (any, error) {
	return f(ctx, cfg, db)
}

// Modules groups optional bootstrapping hooks for seeding and service initialization.
type Modules struct {
	Seeders  []Seeder
	Services ServiceProvider
}
