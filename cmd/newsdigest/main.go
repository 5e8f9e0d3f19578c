package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"newsdigest/internal/config"
)

var (
	configDir string
	cfg       config.Config
	log       = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "newsdigest",
	Short: "Hourly news flashes and a daily deep-dive, delivered to Telegram",
	Long: `newsdigest harvests a fixed set of feeds, drops duplicate and near-duplicate
stories, summarizes them and posts the result to a Telegram channel.
Every run is keyed on a time window, so repeated triggers never post twice.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// --- Configuration Loading ---
		var err error
		cfg, err = config.LoadConfig(configDir)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}

		// --- Logger Setup ---
		log.SetFormatter(&logrus.JSONFormatter{})
		log.SetOutput(os.Stdout)
		level, err := logrus.ParseLevel(cfg.Log.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
		}
		log.SetLevel(level)

		log.WithFields(logrus.Fields{
			"store":    cfg.Store.Driver,
			"feeds":    len(cfg.Feeds),
			"timezone": cfg.Timezone,
		}).Info("Configuration loaded successfully")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "./configs", "directory containing config.yaml")
	rootCmd.AddCommand(tickCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
