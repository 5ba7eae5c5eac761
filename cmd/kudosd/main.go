// Command kudosd runs the kudos round registry as a block application
// behind a gRPC endpoint.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/blockberries/kudos/config"
)

var flagEnvFile string

var rootCmd = &cobra.Command{
	Use:   "kudosd",
	Short: "Kudos contributor reputation and reward rounds",
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return config.LoadDotEnv(flagEnvFile)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env",
		"file of KEY=value pairs loaded into the environment when present")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(genesisCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("kudosd failed")
		os.Exit(1)
	}
}
