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

	"github.com/finlens/finlens/internal/core"
	"github.com/finlens/finlens/internal/logger"
)

var (
	analyzeClass   string
	analyzeHorizon string
	analyzeRisk    string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze SYMBOL",
	Short: "Build a fact pack and run LLM analysis over it",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeClass, "class", "", "asset class (stock|crypto, inferred when empty)")
	analyzeCmd.Flags().StringVar(&analyzeHorizon, "horizon", "swing", "analysis horizon (e.g. intraday, swing, position)")
	analyzeCmd.Flags().StringVar(&analyzeRisk, "risk", "moderate", "risk appetite (e.g. conservative, moderate, aggressive)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	a, err := newApp(log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	symbol := args[0]
	pack, err := a.BuildFactPack(ctx, symbol, core.AssetClass(analyzeClass))
	if err != nil {
		return fmt.Errorf("building fact pack: %w", err)
	}

	log.Info("fact pack built",
		zap.String("symbol", pack.Symbol),
		zap.String("asset_class", string(pack.AssetClass)))

	result, err := a.Analyze(ctx, pack, analyzeHorizon, analyzeRisk)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
