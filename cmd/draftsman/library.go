package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/l1jgo/draftsman/internal/persist"
)

func libraryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Store and retrieve exchange strings in PostgreSQL",
	}
	cmd.AddCommand(
		libraryMigrateCmd(a),
		librarySaveCmd(a),
		libraryLoadCmd(a),
		libraryListCmd(a),
		libraryDeleteCmd(a),
		libraryImportCmd(a),
	)
	return cmd
}

// openLibrary connects, migrates and hands back a repo plus its closer.
func (a *app) openLibrary(ctx context.Context) (*persist.LibraryRepo, func(), error) {
	db, err := persist.NewDB(ctx, a.cfg.Database, a.log)
	if err != nil {
		return nil, nil, err
	}
	if _, err := persist.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return persist.NewLibraryRepo(db), db.Close, nil
}

func libraryMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the library schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := persist.NewDB(cmd.Context(), a.cfg.Database, a.log)
			if err != nil {
				return err
			}
			defer db.Close()
			v, err := persist.RunMigrations(cmd.Context(), db)
			if err != nil {
				return err
			}
			printOK(cmd.OutOrStdout(), "schema version "+strconv.FormatInt(v, 10))
			return nil
		},
	}
}

// newRow decodes s so only valid strings reach the library.
func (a *app) newRow(s string) (*persist.BlueprintRow, error) {
	doc, err := a.codec.Decode(s)
	if err != nil {
		return nil, err
	}
	return persist.NewRow(doc, s)
}

func librarySaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save [file|-]",
		Short: "Store an exchange string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			row, err := a.newRow(s)
			if err != nil {
				return err
			}
			repo, closeDB, err := a.openLibrary(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			id, created, err := repo.Save(cmd.Context(), row)
			if err != nil {
				return err
			}
			if created {
				printOK(cmd.OutOrStdout(), "saved "+id.String())
			} else {
				printOK(cmd.OutOrStdout(), "already stored as "+id.String())
			}
			return nil
		},
	}
}

func libraryLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load <id>",
		Short: "Print a stored exchange string",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("bad id %q: %w", args[0], err)
			}
			repo, closeDB, err := a.openLibrary(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			row, err := repo.Load(cmd.Context(), id)
			if err != nil {
				return err
			}
			if row == nil {
				return fmt.Errorf("no blueprint %s", id)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), row.Exchange)
			return err
		},
	}
}

func libraryListCmd(a *app) *cobra.Command {
	var (
		limit int
		label string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored blueprints, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, closeDB, err := a.openLibrary(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			var rows []persist.BlueprintRow
			if cmd.Flags().Changed("label") {
				rows, err = repo.FindByLabel(cmd.Context(), label)
			} else {
				rows, err = repo.List(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, r := range rows {
				fmt.Fprintf(w, "%s  %016x  %4d entities  %4d tiles  %s\n",
					r.ID, r.Fingerprint, r.EntityCount, r.TileCount, r.Label)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum rows to list (0 for all)")
	cmd.Flags().StringVar(&label, "label", "", "only list blueprints with this exact label")
	return cmd
}

func libraryDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a stored blueprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("bad id %q: %w", args[0], err)
			}
			repo, closeDB, err := a.openLibrary(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			ok, err := repo.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no blueprint %s", id)
			}
			printOK(cmd.OutOrStdout(), "deleted "+id.String())
			return nil
		},
	}
}

func libraryImportCmd(a *app) *cobra.Command {
	var jobs int

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Store many exchange strings concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, closeDB, err := a.openLibrary(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			var created, existing, failed atomic.Int64
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(jobs, 1))
			for _, path := range args {
				g.Go(func() error {
					raw, err := os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("read %s: %w", path, err)
					}
					row, err := a.newRow(string(raw))
					if err != nil {
						failed.Add(1)
						a.log.Warn("import skipped", zap.String("file", filepath.Base(path)), zap.Error(err))
						return nil
					}
					_, isNew, err := repo.Save(ctx, row)
					if err != nil {
						return fmt.Errorf("save %s: %w", path, err)
					}
					if isNew {
						created.Add(1)
					} else {
						existing.Add(1)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printSection(w, "Import")
			printStat(w, "saved", strconv.FormatInt(created.Load(), 10))
			printStat(w, "already stored", strconv.FormatInt(existing.Load(), 10))
			printStat(w, "skipped", strconv.FormatInt(failed.Load(), 10))
			return nil
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "files imported in parallel")
	return cmd
}
