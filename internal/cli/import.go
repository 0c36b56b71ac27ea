package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagerenn/dictd/internal/dict"
	"github.com/sagerenn/dictd/internal/dict/loader"
	"github.com/sagerenn/dictd/internal/dict/sqlitedict"
	"github.com/sagerenn/dictd/internal/observability"
)

// enumerable dictionaries can hand over every entry they hold.
type enumerable interface {
	Entries() []dict.Entry
}

func newImportCmd() *cobra.Command {
	var dbPath, dictID string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy a configured file dictionary into a SQLite word store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			log := observability.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

			dc, ok := cfg.Dictionary(dictID)
			if !ok {
				return fmt.Errorf("dictionary %q is not configured", dictID)
			}
			src, err := loader.Load(cmd.Context(), dc)
			if err != nil {
				return err
			}
			entries, ok := src.(enumerable)
			if !ok {
				return errors.New("only tsv, json and dsl dictionaries can be imported")
			}

			db, err := sqlitedict.Open(cmd.Context(), dictID, dc.Name, dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.Import(cmd.Context(), entries.Entries())
			if err != nil {
				return err
			}
			total, err := db.Count(cmd.Context())
			if err != nil {
				return err
			}
			log.Info("import finished",
				slog.String("dict", dictID),
				slog.String("db", dbPath),
				slog.Int("imported", n),
				slog.Int("total", total),
			)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries into %s (%d total)\n", n, dbPath, total)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to write")
	cmd.Flags().StringVar(&dictID, "dict", "", "id of the configured dictionary to copy")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("dict")
	return cmd
}
