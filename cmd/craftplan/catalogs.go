package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/craftplan/internal/bootstrap"
	"github.com/cory-johannsen/craftplan/internal/planning/planner"
)

func newCatalogsCmd(opts *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "catalogs",
		Short: "List catalogs with their item and recipe counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Content.CatalogDir
			}
			reg := planner.NewRegistry()
			cs, err := bootstrap.LoadCatalogs(dir, logger)
			if err != nil {
				return err
			}
			if err := reg.Replace(cs); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tITEMS\tRECIPES\tGOAL")
			for _, id := range reg.IDs() {
				p, _ := reg.ProblemFor(id)
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", p.ID, p.Vocab.Len(), p.Rules.Len(), formatCounts(p.Required))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "catalog directory (default content.catalog_dir)")
	return cmd
}

func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, ",")
}
