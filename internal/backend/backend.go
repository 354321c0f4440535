// Package backend opens the record store selected by DATA_BACKEND.
package backend

import (
	"context"
	"fmt"
	"strings"

	"finanzas/internal/config"
	"finanzas/internal/log"
	"finanzas/internal/store"
)

// Kind names a store implementation.
type Kind string

const (
	Memory Kind = "memory"
	SQLite Kind = "sqlite"
)

// Kinds lists the selectable stores.
func Kinds() []Kind { return []Kind{Memory, SQLite} }

func (k Kind) String() string { return string(k) }

func (k Kind) IsValid() bool {
	switch k {
	case Memory, SQLite:
		return true
	}
	return false
}

// KindNames returns Kinds as strings, for flag help and error messages.
func KindNames() []string {
	kinds := Kinds()
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = k.String()
	}
	return out
}

// Options locate the store to open.
type Options struct {
	Kind       Kind
	SQLitePath string
	SeedFile   string // optional YAML snapshot for the memory store
}

// OptionsFrom reads store options from the application config.
func OptionsFrom(cfg *config.Config) (Options, error) {
	if cfg == nil {
		return Options{}, fmt.Errorf("app config is nil")
	}
	opts := Options{
		Kind:       Kind(strings.ToLower(strings.TrimSpace(cfg.DataBackend))),
		SQLitePath: cfg.SQLiteDBPath,
		SeedFile:   cfg.SeedFile,
	}
	return opts, opts.Validate()
}

func (o Options) Validate() error {
	if !o.Kind.IsValid() {
		return fmt.Errorf("invalid data backend %q: must be one of %v", o.Kind, KindNames())
	}
	if o.Kind == SQLite && strings.TrimSpace(o.SQLitePath) == "" {
		return fmt.Errorf("sqlite backend requires SQLITE_DB_PATH")
	}
	return nil
}

// Opened is an open store and the func that releases it.
type Opened struct {
	Store store.Store
	Close func() error
}

// Factory opens stores.
type Factory interface {
	Open(ctx context.Context, opts Options) (*Opened, error)
}

type opener func(ctx context.Context, opts Options, logger *log.Logger) (*Opened, error)

// DefaultFactory dispatches on Options.Kind.
type DefaultFactory struct {
	logger  *log.Logger
	openers map[Kind]opener
}

func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Default(log.ComponentBackend)
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		openers: map[Kind]opener{
			Memory: openMemory,
			SQLite: openSQLite,
		},
	}
}

var _ Factory = (*DefaultFactory)(nil)

func (f *DefaultFactory) Open(ctx context.Context, opts Options) (*Opened, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	open, ok := f.openers[opts.Kind]
	if !ok {
		return nil, fmt.Errorf("no opener for backend %s", opts.Kind)
	}
	opened, err := open(ctx, opts, f.logger)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", opts.Kind, err)
	}
	f.logger.InfoContext(ctx, "Opened record store", log.FieldBackend, opts.Kind.String())
	return opened, nil
}
