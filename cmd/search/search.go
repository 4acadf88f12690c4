// Package search implements the search command: semantic search over
// stored page embeddings.
package search

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/siteatlas/cmd/common"
)

// Command returns the search command.
func Command() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search explored pages by semantic similarity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
			deps, err := common.New(cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			if topK <= 0 {
				topK = deps.Config.Vector.SearchTopK
			}

			query := strings.Join(args, " ")
			embedding := deps.Analyzer.GenerateEmbedding(query)
			matches, err := deps.Vectors.SearchSimilar(cmd.Context(), embedding, topK)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if len(matches) == 0 {
				fmt.Println("No results.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"#", "Score", "URL", "Title"})
			for i, match := range matches {
				url, _ := match.Metadata["url"].(string)
				title, _ := match.Metadata["title"].(string)
				t.AppendRow(table.Row{i + 1, fmt.Sprintf("%.4f", match.Score), url, title})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "top", 0, "number of results to return")
	return cmd
}
