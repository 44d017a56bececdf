package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bobmcallan/putscan/internal/app"
	"github.com/bobmcallan/putscan/internal/common"
	"github.com/bobmcallan/putscan/internal/models"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "putscan",
		Short:        "Scan and rank weekly cash-secured puts",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "path to putscan.toml")

	root.AddCommand(newScanCmd(), newVersionCmd())
	return root
}

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the ticker universe and print the ranked puts",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := scanRequestFromFlags(cmd)
			if err != nil {
				return err
			}
			req.Tickers = append(req.Tickers, args...)

			configPath, _ := cmd.Flags().GetString("config")
			a, err := app.NewApp(configPath)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := a.ScanService.Scan(ctx, req)
			if err != nil {
				return err
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			renderReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringSlice("tickers", nil, "additional tickers to scan (comma separated)")
	flags.String("custom", "", "custom ticker to scan and focus on")
	flags.Float64("target", 0, "weekly return target in percent (default from config)")
	flags.String("focus", "", "ticker to build the shortlist and narrative for")
	flags.Bool("skip-defaults", false, "scan only the tickers given on the command line")
	flags.Bool("json", false, "print the report as JSON")

	return cmd
}

func scanRequestFromFlags(cmd *cobra.Command) (models.ScanRequest, error) {
	flags := cmd.Flags()
	var req models.ScanRequest
	var err error

	if req.Tickers, err = flags.GetStringSlice("tickers"); err != nil {
		return req, err
	}
	if req.CustomTicker, err = flags.GetString("custom"); err != nil {
		return req, err
	}
	if req.FocusSymbol, err = flags.GetString("focus"); err != nil {
		return req, err
	}
	if req.SkipDefaults, err = flags.GetBool("skip-defaults"); err != nil {
		return req, err
	}
	if flags.Changed("target") {
		target, err := flags.GetFloat64("target")
		if err != nil {
			return req, err
		}
		if target < 0 {
			return req, fmt.Errorf("--target must not be negative")
		}
		req.TargetReturnPercent = &target
	}
	return req, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), common.GetFullVersion())
		},
	}
}
