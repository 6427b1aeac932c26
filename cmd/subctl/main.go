package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/fatflowers/dukabill/internal/app"
	"github.com/fatflowers/dukabill/internal/app/service/statistics"
	"github.com/fatflowers/dukabill/internal/app/service/subscription"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "subctl",
	Short:         "Operate the subscription engine from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		if cfgFile != "" {
			return os.Setenv("APP_CONFIG_FILE", cfgFile)
		}
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire every active subscription whose end date has passed, once",
	RunE: func(cmd *cobra.Command, args []string) error {
		var subs *subscription.Service
		return withApp(cmd.Context(), fx.Populate(&subs), func(ctx context.Context) error {
			n, err := subs.SweepExpired(ctx, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d subscriptions\n", n)
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print revenue and status counts as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		var stats *statistics.Service
		return withApp(cmd.Context(), fx.Populate(&stats), func(ctx context.Context) error {
			s, err := stats.ComputeStats(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		})
	},
}

// withApp starts the core services, runs fn and stops them so pending
// entitlement updates are flushed before exit.
func withApp(ctx context.Context, populate fx.Option, fn func(context.Context) error) error {
	a := fx.New(app.CoreModule, populate, fx.NopLogger)
	startCtx, cancel := context.WithTimeout(ctx, app.DefaultStartTimeout)
	defer cancel()
	if err := a.Start(startCtx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	runErr := fn(ctx)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.DefaultStopTimeout)
	defer cancelStop()
	if err := a.Stop(stopCtx); err != nil && runErr == nil {
		return fmt.Errorf("stop: %w", err)
	}
	return runErr
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.AddCommand(sweepCmd, statsCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
