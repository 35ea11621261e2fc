package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/pvnet/internal/adapters/artifacts"
	"github.com/okian/pvnet/internal/domain/split"
)

var errCheckFailed = errors.New("artifact check failed")

func newCheckCmd(_ *rootOptions) *cobra.Command {
	var dashboard bool
	cmd := &cobra.Command{
		Use:   "check <dir>",
		Short: "Verify dataset artifacts exist and carry the expected columns",
		Long: `Check that every split file and the manifest exist under <dir> and that
each split file has all dataset columns. With --dashboard the split files are
checked against the dashboard column contract instead, which also needs the
columns added by the scoring step.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			w := cmd.OutOrStdout()

			if missing := artifacts.MissingArtifacts(dir, artifacts.Files()); len(missing) > 0 {
				return fmt.Errorf("%w: missing in %s: %s", errCheckFailed, dir, strings.Join(missing, ", "))
			}
			m, err := artifacts.ReadManifest(dir)
			if err != nil {
				return fmt.Errorf("%w: %w", errCheckFailed, err)
			}

			required := artifacts.RowColumns()
			if dashboard {
				required = artifacts.DashboardColumns
			}
			var failed []string
			for _, s := range split.Names {
				path := filepath.Join(dir, artifacts.SplitFile(s))
				if err := artifacts.CheckColumns(path, required); err != nil {
					failed = append(failed, err.Error())
					continue
				}
				fmt.Fprintf(w, "ok  %s (%d rows)\n", artifacts.SplitFile(s), m.Summary.Splits[s].Rows)
			}
			if len(failed) > 0 {
				return fmt.Errorf("%w: %s", errCheckFailed, strings.Join(failed, "; "))
			}
			fmt.Fprintf(w, "ok  %s (k=%d, seed=%d)\n", artifacts.ManifestFile, m.K, m.Seed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dashboard, "dashboard", false, "check the dashboard column contract")
	return cmd
}
