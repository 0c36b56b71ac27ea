package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sagerenn/dictd/internal/present"
	"github.com/sagerenn/dictd/internal/session"
)

func newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup TERM...",
		Short: "Look up terms in one session and print each result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			s := session.New("cli", a.svc, a.log.Logger)
			defer s.Close()

			for _, term := range args {
				ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Search.WaitTimeout)
				v, err := s.Query(ctx, term)
				cancel()
				if err != nil {
					return fmt.Errorf("lookup %q: %w", term, err)
				}
				printView(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
}

func printView(w io.Writer, v present.View) {
	_, _ = fmt.Fprintln(w, v.Message)
	for i, r := range v.Rows {
		_, _ = fmt.Fprintf(w, "%3d. %s [%s]\n     %s\n", i, r.Word, r.ID, r.Definition)
	}
}
