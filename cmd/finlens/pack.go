package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/finlens/finlens/internal/app"
	"github.com/finlens/finlens/internal/config"
	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/logger"
)

var packClass string

var packCmd = &cobra.Command{
	Use:   "pack SYMBOL",
	Short: "Build a fact pack for a symbol and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runPack,
}

func init() {
	packCmd.Flags().StringVar(&packClass, "class", "", "asset class (stock|crypto, inferred when empty)")
	rootCmd.AddCommand(packCmd)
}

func runPack(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	a, err := newApp(log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pack, err := a.BuildFactPack(ctx, args[0], core.AssetClass(packClass))
	if err != nil {
		return fmt.Errorf("building fact pack: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(pack)
}

// newApp loads configuration (falling back to defaults) and assembles
// the application.
func newApp(log *zap.Logger) (*app.App, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	if debug {
		cfg.Analysis.Debug = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return app.New(cfg, log)
}
