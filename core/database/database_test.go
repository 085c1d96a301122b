package database

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigNormalize(t *testing.T) {
	pg := Config{Host: "db", Name: "office"}
	if err := pg.Normalize(); err != nil {
		t.Fatalf("normalize postgres: %v", err)
	}
	if pg.Driver != DriverPostgres || pg.Port != "5432" || pg.SSLMode != "disable" || pg.MaxConnections != 5 {
		t.Fatalf("postgres defaults not applied: %+v", pg)
	}
	if dsn := pg.DSN(); !strings.HasPrefix(dsn, "postgres://") || !strings.Contains(dsn, "sslmode=disable") {
		t.Fatalf("unexpected dsn %q", dsn)
	}

	lite := Config{Driver: "SQLite3", Path: "office.db"}
	if err := lite.Normalize(); err != nil {
		t.Fatalf("normalize sqlite: %v", err)
	}
	if lite.Driver != DriverSQLite || !strings.HasPrefix(lite.DSN(), "file:office.db?") {
		t.Fatalf("unexpected sqlite config %+v dsn %q", lite, lite.DSN())
	}

	for _, bad := range []Config{
		{Driver: "mysql"},
		{Driver: DriverSQLite},
		{Driver: DriverPostgres, Host: "db"},
	} {
		if err := bad.Normalize(); err == nil {
			t.Fatalf("expected error for %+v", bad)
		}
	}
}

func TestSQLiteMigrationsApplyOnce(t *testing.T) {
	cfg := Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "office.db")}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	ctx := context.Background()
	db, err := Connect(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := RunMigrations(ctx, db, cfg); err != nil {
		t.Fatalf("first migration run: %v", err)
	}
	if err := RunMigrations(ctx, db, cfg); err != nil {
		t.Fatalf("second migration run: %v", err)
	}

	var tables []string
	if err := db.SelectContext(ctx, &tables, `SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE 'roster_%' ORDER BY name`); err != nil {
		t.Fatalf("list tables: %v", err)
	}
	if strings.Join(tables, ",") != "roster_groups,roster_members" {
		t.Fatalf("tables = %v", tables)
	}
}

func TestMigrationFilesAreEmbedded(t *testing.T) {
	for _, driver := range []string{DriverPostgres, DriverSQLite} {
		files := listMigrationFiles("migrations/" + driver)
		if len(files) == 0 || files[0] != "0001_roster.up.sql" {
			t.Fatalf("%s migrations = %v", driver, files)
		}
	}
	if n := countApplied([]string{"0001_a.up.sql", "0002_b.up.sql", "0003_c.up.sql"}, 1, 3); n != 2 {
		t.Fatalf("countApplied = %d", n)
	}
}
