// Package explore implements the explore command: it runs one exploration
// job to completion and prints a summary of what was learned.
package explore

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/siteatlas/cmd/common"
	"github.com/jonesrussell/siteatlas/internal/domain"
)

const maxErrorsShown = 5

// Command returns the explore command.
func Command() *cobra.Command {
	var (
		maxDepth          int
		maxPages          int
		strategy          string
		includeSubdomains bool
	)

	cmd := &cobra.Command{
		Use:   "explore [seed-url]",
		Short: "Explore a site and build its knowledge map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
			deps, err := common.New(cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			cfg := domain.JobConfig{
				SeedURL:           args[0],
				MaxDepth:          maxDepth,
				MaxPages:          maxPages,
				Strategy:          domain.Strategy(strategy),
				IncludeSubdomains: includeSubdomains,
			}
			if !cmd.Flags().Changed("depth") {
				cfg.MaxDepth = deps.Config.Explorer.MaxDepth
			}
			if !cmd.Flags().Changed("pages") {
				cfg.MaxPages = deps.Config.Explorer.MaxPages
			}

			return run(cmd.Context(), deps, cfg)
		},
	}

	cmd.Flags().IntVar(&maxDepth, "depth", 0, "maximum link depth from the seed")
	cmd.Flags().IntVar(&maxPages, "pages", 0, "maximum number of pages to process")
	cmd.Flags().StringVar(&strategy, "strategy", string(domain.StrategyBFS), "traversal strategy (bfs or dfs)")
	cmd.Flags().BoolVar(&includeSubdomains, "subdomains", false, "treat subdomains of the seed host as internal")

	return cmd
}

func run(ctx context.Context, deps *common.Deps, cfg domain.JobConfig) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobID, err := deps.Manager.Start(ctx, cfg)
	if err != nil {
		return err
	}

	job, err := deps.Manager.Job(jobID)
	if err != nil {
		return err
	}

	select {
	case <-job.Done():
	case <-ctx.Done():
		if cancelErr := deps.Manager.Cancel(jobID); cancelErr == nil {
			<-job.Done()
		}
	}

	snapshot, err := deps.Manager.Status(jobID)
	if err != nil {
		return err
	}
	printSummary(deps, jobID, snapshot)
	return nil
}

func printSummary(deps *common.Deps, jobID string, snapshot domain.ExplorationJob) {
	fmt.Printf("\nJob %s finished with status %s\n\n", jobID, snapshot.Status)

	pages, err := deps.Store.ListPages(context.Background(), jobID)
	if err != nil {
		deps.Logger.Error("Failed to list pages", "job_id", jobID, "error", err)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "URL", "Depth", "Title", "Category"})
	for i, page := range pages {
		t.AppendRow(table.Row{i + 1, page.URL, page.Depth, page.Summary.Title, page.PrimaryCategory()})
	}
	t.AppendFooter(table.Row{"", "pages", len(pages), "errors", len(snapshot.Errors)})
	t.Render()

	if len(snapshot.Errors) > 0 {
		fmt.Println("\nErrors:")
		for i, jobErr := range snapshot.Errors {
			if i >= maxErrorsShown {
				fmt.Printf("  ... and %d more\n", len(snapshot.Errors)-maxErrorsShown)
				break
			}
			fmt.Printf("  %s: %s\n", jobErr.URL, jobErr.Message)
		}
	}
}
