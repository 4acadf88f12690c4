// Package sitemap implements the sitemap command: it renders the semantic
// site map derived from a finished exploration job.
package sitemap

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/siteatlas/cmd/common"
)

// Command returns the sitemap command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "sitemap [job-id]",
		Short: "Print the semantic site map of an explored job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
			deps, err := common.New(cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			siteMap, err := deps.Sitemaps.Semantic(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("generate site map: %w", err)
			}
			if len(siteMap.Topics) == 0 {
				fmt.Println("No pages stored for this job.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Topic", "URL", "Depth", "Title"})
			for _, topic := range siteMap.Topics {
				for _, page := range siteMap.Hierarchy[topic] {
					t.AppendRow(table.Row{topic, page.URL, page.Depth, page.Title})
				}
				t.AppendSeparator()
			}
			t.Render()
			return nil
		},
	}
}
