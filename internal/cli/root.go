// Package cli wires the lemon command tree.
package cli

import (
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "lemon",
	Short: "Lemon financial analytics backend",
	Long: `Lemon computes budget health, subscription audits, transaction
suggestions and spending-risk insights over a user's ledger, and serves
them over Connect RPC.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a TOML config file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ─── version ────────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("lemon %s\n", Version)
	},
}
