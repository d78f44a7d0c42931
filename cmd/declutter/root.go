package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/declutter-ai/declutter"
	"github.com/declutter-ai/declutter/internal/config"
	"github.com/declutter-ai/declutter/internal/utils"
)

var (
	cfg      *config.Config
	cfgPath  string
	envFile  string
	dbURL    string
	detector string
	vision   string
	model    string
	backend  string
)

var rootCmd = &cobra.Command{
	Use:     "declutter",
	Short:   "Turn photos of clutter into marketplace listings",
	Version: declutter.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env file is fine; explicit paths are not.
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return fmt.Errorf("failed to load env file: %w", err)
			}
		} else {
			_ = godotenv.Load()
		}

		path := cfgPath
		if path == "" {
			path = config.GetConfigPath()
		}
		if utils.FileExists(path) {
			loaded, err := config.LoadFromFile(path)
			if err != nil {
				return err
			}
			cfg = loaded
			log.Printf("Loaded config from %s", path)
		} else if cfgPath != "" {
			return fmt.Errorf("config file not found: %s", cfgPath)
		} else {
			cfg = config.Default()
		}

		cfg.ApplyEnv()
		applyFlags(cmd)
		return cfg.Validate()
	},
}

// applyFlags lets command-line flags override file and environment values.
func applyFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("db") {
		cfg.Database.URL = dbURL
	}
	if cmd.Flags().Changed("detector-url") {
		cfg.Detector.URL = detector
	}
	if cmd.Flags().Changed("vision-url") {
		cfg.Vision.URL = vision
	}
	if cmd.Flags().Changed("model") {
		cfg.Vision.Model = model
	}
	if cmd.Flags().Changed("backend") {
		cfg.Vision.Backend = backend
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: ~/.config/declutter/config.json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to .env file (default: ./.env if present)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string (empty disables persistence)")
	rootCmd.PersistentFlags().StringVar(&detector, "detector-url", "", "object detection service URL")
	rootCmd.PersistentFlags().StringVar(&vision, "vision-url", "", "vision model server URL")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "vision model name")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "vision backend: ollama or llamacpp")
}
