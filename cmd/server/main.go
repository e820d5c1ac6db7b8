package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"foodDelivery/internal/config"
	"foodDelivery/internal/logging"
)

var (
	cfgFile string
	devMode bool
)

var rootCmd = &cobra.Command{
	Use:   "fooddelivery",
	Short: "Food delivery order ledger, rider dispatch and feedback service",
	Long: `fooddelivery runs the order lifecycle gRPC service and the operator tools around it:
schema migrations, rider settlement reports, demo data seeding and token issuance.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml); environment variables override it")
	rootCmd.PersistentFlags().BoolVar(&devMode, "dev", false, "use development defaults (insecure JWT secret)")
}

// loadConfig reads .env when present, then the config file and environment.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if cfgFile != "" {
		return config.LoadFile(cfgFile, devMode)
	}
	if devMode {
		return config.LoadWithDefaults()
	}
	return config.Load()
}

func newLogger(cfg *config.Config) (*logrus.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
