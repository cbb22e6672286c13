package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/craftplan/internal/bootstrap"
	"github.com/cory-johannsen/craftplan/internal/config"
	"github.com/cory-johannsen/craftplan/internal/planning/catalog"
)

func newBatchCmd(opts *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "batch [ID...]",
		Short: "Plan every catalog in a directory (or only the named ones)",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := opts.planning(cmd, func(cfg config.Config, logger *zap.Logger) ([]*catalog.Catalog, error) {
				if dir == "" {
					dir = cfg.Content.CatalogDir
				}
				return bootstrap.LoadCatalogs(dir, logger)
			})
			if err != nil {
				return err
			}
			defer p.Close()

			reps, err := p.Service.PlanAll(cmd.Context(), args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for _, rep := range reps {
				fmt.Fprintf(out, "== %s\n", rep.CatalogID)
				if err := rep.Write(out); err != nil {
					return err
				}
				if !rep.Found() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d catalogs have no plan", failed, len(reps))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "catalog directory (default content.catalog_dir)")
	return cmd
}
