package backend

import (
	"context"

	"finanzas/internal/log"
	"finanzas/internal/storage"
	"finanzas/internal/store/memory"
)

func openSQLite(ctx context.Context, opts Options, logger *log.Logger) (*Opened, error) {
	repo, err := storage.NewSQLiteRepository(opts.SQLitePath, logger.WithComponent(log.ComponentStorage))
	if err != nil {
		return nil, err
	}
	logger.DebugContext(ctx, "SQLite schema ready", "db_path", opts.SQLitePath)
	return &Opened{Store: repo, Close: repo.Close}, nil
}

func openMemory(ctx context.Context, opts Options, logger *log.Logger) (*Opened, error) {
	st, err := memory.NewFromFile(opts.SeedFile)
	if err != nil {
		return nil, err
	}
	if opts.SeedFile != "" {
		logger.DebugContext(ctx, "Loaded seed snapshot", "seed_file", opts.SeedFile)
	}
	return &Opened{Store: st, Close: st.Close}, nil
}
