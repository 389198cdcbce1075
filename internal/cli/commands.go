package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"example.com/routines/internal/bootstrap"
	"example.com/routines/internal/migration"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Convert embedded routine exercises into catalog entries and links",
		Long: `Reads every routine, de-duplicates its embedded exercises by exact name into
the catalog and writes one routine link per exercise. Safe to run again: names
already in the catalog are reused and links are rewritten at the same ids.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePersistentBackend(rootOpts, "migrate"); err != nil {
				return err
			}
			return withMigrator(cmd, rootOpts, func(_ *bootstrap.Runtime, m *migration.Migrator) error {
				report, runErr := m.Run(cmd.Context())
				if err := printResult(cmd, rootOpts, report, func(w io.Writer) {
					fmt.Fprintf(w, "routines:        %d\n", report.Routines)
					fmt.Fprintf(w, "legacy rows:     %d\n", report.LegacyRows)
					fmt.Fprintf(w, "catalog created: %d\n", report.CatalogCreated)
					fmt.Fprintf(w, "catalog reused:  %d\n", report.CatalogReused)
					fmt.Fprintf(w, "links written:   %d\n", report.LinksWritten)
					fmt.Fprintf(w, "failed:          %d\n", report.Failed)
				}); err != nil {
					return err
				}
				return runErr
			})
		},
	}
}

// NewCleanupCommand creates the cleanup command.
func NewCleanupCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete the legacy embedded exercise documents",
		Long: `Deletes exercises documents that still carry a routine_id. Catalog entries
are never touched. Run only after verifying the migration; requires --yes.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePersistentBackend(rootOpts, "cleanup"); err != nil {
				return err
			}
			if !yes {
				return errors.New("refusing to delete legacy exercises without --yes")
			}
			return withMigrator(cmd, rootOpts, func(_ *bootstrap.Runtime, m *migration.Migrator) error {
				deleted, err := m.Cleanup(cmd.Context(), yes)
				if err != nil {
					return err
				}
				return printResult(cmd, rootOpts, map[string]int{"deleted": deleted}, func(w io.Writer) {
					fmt.Fprintf(w, "deleted %d legacy exercise documents\n", deleted)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "seed",
		Short:        "Create the Push, Pull and Legs sample routines",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, rootOpts, func(_ *bootstrap.Runtime, m *migration.Migrator) error {
				report, err := m.Seed(cmd.Context())
				if err != nil {
					return err
				}
				return printResult(cmd, rootOpts, report, func(w io.Writer) {
					fmt.Fprintf(w, "seeded %d routines, %d catalog entries (%d reused), %d links\n",
						report.Routines, report.CatalogCreated, report.CatalogReused, report.Links)
				})
			})
		},
	}
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "resolve <routine-id>",
		Short:        "Print a routine's exercises as clients see them",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, rootOpts, func(rt *bootstrap.Runtime, _ *migration.Migrator) error {
				summary, err := rt.Service.Resolver.RoutineSummary(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printResult(cmd, rootOpts, summary, func(w io.Writer) {
					fmt.Fprintf(w, "%s (~%d min)\n", summary.Name, summary.DurationMin)
					for _, ex := range summary.Exercises {
						fmt.Fprintf(w, "%3d. %-24s %dx%d  rep %ds  rest %ds\n",
							ex.Order, ex.Name, ex.Sets, ex.Reps, ex.RepTime, ex.RestTime)
					}
				})
			})
		},
	}
}
