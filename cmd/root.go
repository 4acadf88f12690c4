// Package cmd implements the command-line interface for siteatlas. It
// provides the root command and subcommands for running explorations,
// serving the HTTP API, and querying accumulated knowledge.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/siteatlas/cmd/explore"
	"github.com/jonesrussell/siteatlas/cmd/httpd"
	"github.com/jonesrussell/siteatlas/cmd/search"
	cmdsitemap "github.com/jonesrussell/siteatlas/cmd/sitemap"
)

var rootCmd = &cobra.Command{
	Use:   "siteatlas",
	Short: "A site exploration and knowledge mapping service",
	Long: `siteatlas explores websites within configurable bounds, extracts
semantic knowledge from each page, and derives searchable site maps.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	// load .env early so SITEATLAS_* variables are visible to viper
	_ = godotenv.Load()

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default is ./siteatlas.yaml or ~/.siteatlas/siteatlas.yaml)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("siteatlas version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(explore.Command())
	rootCmd.AddCommand(httpd.Command())
	rootCmd.AddCommand(search.Command())
	rootCmd.AddCommand(cmdsitemap.Command())
}
