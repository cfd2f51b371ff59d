package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/photogeo/core/logger"
)

// RunMigrations applies all up migrations found under the driver's directory
// of src (for example "postgres/000001_init.up.sql"). The migrator opens and
// closes its own connection.
func RunMigrations(ctx context.Context, cfg Config, src fs.FS) error {
	driver := cfg.DriverName()
	fail := func(event string, err error, attrs ...slog.Attr) {
		attrs = append([]slog.Attr{slog.String("status", "fail"), slog.String("err", err.Error())}, attrs...)
		logger.Error(ctx, "db.migrate", event, attrs...)
	}

	if driver == DriverPostgres {
		if err := WaitForPostgres(ctx, cfg.DSN(), 30*time.Second); err != nil {
			fail("db.migrate", err)
			return fmt.Errorf("database not ready: %w", err)
		}
	}

	files := listMigrationFiles(src, driver)
	logger.Debug(ctx, "db.migrate", "db.migrate.resolve",
		append([]slog.Attr{slog.String("driver", driver)}, fileAttrs(files)...)...)

	m, err := newMigrator(cfg, src)
	if err != nil {
		fail("db.migrate", err)
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() {
		if err := errors.Join(m.Close()); err != nil {
			logger.Warn(ctx, "db.migrate", "db.migrate.close",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}()

	from, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := logger.RoundMS(time.Since(start))

	status := "ok"
	switch {
	case errors.Is(upErr, migrate.ErrNoChange):
		status = "skip"
	case upErr != nil:
		fail("db.migrate.apply", upErr, slog.Duration("duration", took))
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	to, _, _ := m.Version()
	applied := selectApplied(files, uint64(from), uint64(to))
	if len(applied) > 0 {
		logger.Debug(ctx, "db.migrate", "db.migrate.apply", fileAttrs(applied)...)
	}
	logger.Info(ctx, "db.migrate", "db.migrate.summary",
		slog.String("status", status),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", took),
	)
	return nil
}

// fileAttrs summarizes a list of migration files for a log line.
func fileAttrs(files []string) []slog.Attr {
	attrs := []slog.Attr{slog.Int("files_total", len(files))}
	preview, truncated := logger.SummarizeStrings(files, 6)
	if preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview))
	}
	if truncated {
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	return attrs
}

func newMigrator(cfg Config, src fs.FS) (*migrate.Migrate, error) {
	source, err := iofs.New(src, cfg.DriverName())
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	return migrate.NewWithSourceInstance("iofs", source, cfg.MigrateURL())
}

func listMigrationFiles(src fs.FS, dir string) []string {
	entries, err := fs.ReadDir(src, dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name := e.Name(); strings.HasSuffix(name, ".up.sql") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

func selectApplied(files []string, from, to uint64) []string {
	if to <= from {
		return nil
	}
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
