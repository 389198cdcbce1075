package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"example.com/routines/internal/bootstrap"
	"example.com/routines/internal/config"
	"example.com/routines/internal/migration"
)

// RuntimeOpener builds the process dependencies from configuration.
type RuntimeOpener func(ctx context.Context, cfg config.Config, logger *log.Logger) (*bootstrap.Runtime, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Backend  string
	Throttle time.Duration

	open RuntimeOpener
	cfg  config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the routinectl command using the configured store.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(bootstrap.Open)
}

// NewRootCommandWith creates the routinectl command with a custom runtime opener.
func NewRootCommandWith(open RuntimeOpener) *cobra.Command {
	opts := &RootOptions{open: open, cfg: config.Load()}

	cmd := &cobra.Command{
		Use:   "routinectl",
		Short: "Maintenance tasks for the routine store",
		Long:  "Migrates the embedded exercise layout to catalog entries and routine links, removes the legacy documents, and seeds sample routines.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", opts.cfg.StoreBackend, "document store backend (memory|postgres|redis)")
	cmd.PersistentFlags().DurationVar(&opts.Throttle, "throttle", opts.cfg.MigrationThrottle, "pause between writes")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewCleanupCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewResolveCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// requirePersistentBackend rejects commands whose effect would vanish with an
// in-memory store.
func requirePersistentBackend(opts *RootOptions, command string) error {
	if strings.EqualFold(opts.Backend, config.BackendMemory) {
		return fmt.Errorf("%s needs a persistent backend: pass --backend postgres|redis or set STORE_BACKEND", command)
	}
	return nil
}

// withMigrator opens the runtime, runs fn and closes the runtime again.
func withMigrator(cmd *cobra.Command, opts *RootOptions, fn func(*bootstrap.Runtime, *migration.Migrator) error) error {
	logger := log.New(io.Discard, "", 0)
	if opts.Verbose {
		logger = log.New(cmd.ErrOrStderr(), "routinectl: ", log.LstdFlags)
	}
	cfg := opts.cfg
	cfg.StoreBackend = opts.Backend

	rt, err := opts.open(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			logger.Printf("close: %v", cerr)
		}
	}()

	m := migration.New(rt.Store, rt.Service, migration.WithLogger(logger), migration.WithThrottle(opts.Throttle))
	return fn(rt, m)
}

func printResult(cmd *cobra.Command, opts *RootOptions, v any, text func(io.Writer)) error {
	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(cmd.OutOrStdout())
	return nil
}
