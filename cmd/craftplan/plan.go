package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/craftplan/internal/config"
	"github.com/cory-johannsen/craftplan/internal/planning/catalog"
	"github.com/cory-johannsen/craftplan/internal/planning/planner"
)

func newPlanCmd(opts *rootOptions) *cobra.Command {
	var (
		catalogPath string
		start       map[string]int
		goal        map[string]int
	)
	cmd := &cobra.Command{
		Use:   "plan --catalog FILE",
		Short: "Plan one catalog file and print the steps",
		Example: `  craftplan plan --catalog content/catalogs/crafting.yaml
  craftplan plan --catalog Crafting.json --start wood=1 --goal rail=20 --limit 10s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var c *catalog.Catalog
			p, _, err := opts.planning(cmd, func(_ config.Config, _ *zap.Logger) ([]*catalog.Catalog, error) {
				var err error
				c, err = catalog.LoadFile(catalogPath)
				if err != nil {
					return nil, err
				}
				return []*catalog.Catalog{c}, nil
			})
			if err != nil {
				return err
			}
			defer p.Close()

			rep, err := p.Service.Plan(cmd.Context(), planner.Request{
				CatalogID: c.ID,
				Initial:   start,
				Goal:      goal,
			})
			if err != nil {
				return err
			}
			if err := rep.Write(cmd.OutOrStdout()); err != nil {
				return err
			}
			if !rep.Found() {
				return fmt.Errorf("no plan for %s: %s", rep.CatalogID, rep.Outcome)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&catalogPath, "catalog", "", "catalog file (YAML or JSON)")
	f.StringToIntVar(&start, "start", nil, "override start quantities, e.g. wood=2,plank=4")
	f.StringToIntVar(&goal, "goal", nil, "replace the goal, e.g. bench=1")
	_ = cmd.MarkFlagRequired("catalog")
	return cmd
}
