package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sebastiankruger/steelmill-kpi/internal/config"
	"github.com/sebastiankruger/steelmill-kpi/internal/logging"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Steel-mill KPI dashboard service",
	Long: `Simulates steel-production KPIs (coils/hour, tonnage, shipped units, yield,
efficiency, quality, energy) as an ordered card collection, refreshed on a
timer, persisted to a card store with local fallback, and published over
HTTP JSON and OPC UA.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var err error
		cfg, err = config.Load()
		if err != nil {
			// Logger not up yet
			fmt.Println("Failed to load configuration:", err)
			return
		}

		logging.Init(verbose, cfg.LogDir)

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("Steel-mill KPI dashboard starting")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dashboard %s (%s, built %s)\n", Version, Commit, BuildDate)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
