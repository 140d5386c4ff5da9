package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yourusername/medkit-bot/config"
	"github.com/yourusername/medkit-bot/internal/app"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "medbot",
	Short: "Home medicine cabinet Telegram bot",
	Long: `medbot keeps a per-user list of medicines with quantities, notes and
expiry dates, answers inline searches and sends daily reminders about
medicines that expire soon or already expired.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot with the reminder scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, log, err := setup()
		if err != nil {
			return err
		}

		a, err := app.New(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Run(ctx)
	},
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send expiry reminders once and exit",
	Long:  `Runs a single reminder sweep, for use from an external scheduler such as cron.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}

		a, err := app.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Remind(cmd.Context())
	},
}

var (
	exportOwner int64
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump a user's medicines to an xlsx file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportOwner == 0 {
			return fmt.Errorf("--owner is required")
		}
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		return app.Export(cmd.Context(), cfg, log, exportOwner, exportOut)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(app.BuildVersion())
	},
}

func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, app.NewLogger(cfg.Log), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default: environment and .env)")

	exportCmd.Flags().Int64Var(&exportOwner, "owner", 0, "Telegram user id whose medicines are exported")
	exportCmd.Flags().StringVar(&exportOut, "out", "apteka.xlsx", "output file")

	rootCmd.AddCommand(serveCmd, remindCmd, exportCmd, versionCmd)
}
