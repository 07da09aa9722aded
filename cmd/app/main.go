package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"caseflow/config"
	"caseflow/internal/replay"
	"caseflow/internal/store"
	"caseflow/internal/timeutil"
	"caseflow/internal/tui"
	"caseflow/version"
)

var (
	flagConfig string
	flagDB     string
)

var rootCmd = &cobra.Command{
	Use:   "caseflow <transcript.json>",
	Short: "Tool-call execution and confirmation engine for case-management agents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, cfg, err := setup()
		if err != nil {
			return err
		}

		transcript, err := replay.Load(args[0])
		if err != nil {
			return err
		}

		recorder, cleanup, err := openRecorder(cfg.Current())
		if err != nil {
			return err
		}
		defer cleanup()

		cfgPath, _ := configPath()
		stop := make(chan struct{})
		defer close(stop)
		go config.Watch(cfgPath, logger, stop, cfg.Replace)

		m := tui.New(transcript, cfg, replay.EchoInvoker, recorder, logger)
		return tui.Run(m)
	},
}

var (
	flagApproveAll bool
	flagDenyAll    bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <transcript.json>",
	Short: "Run a transcript headless and report what the engine did",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, cfg, err := setup()
		if err != nil {
			return err
		}
		if flagApproveAll && flagDenyAll {
			return fmt.Errorf("--approve-all and --deny-all are mutually exclusive")
		}

		transcript, err := replay.Load(args[0])
		if err != nil {
			return err
		}

		recorder, cleanup, err := openRecorder(cfg.Current())
		if err != nil {
			return err
		}
		defer cleanup()

		opts := replay.Options{AutoApprove: cfg.Current().AutoApprove}
		switch {
		case flagApproveAll:
			opts.Policy = replay.PolicyApproveAll
		case flagDenyAll:
			opts.Policy = replay.PolicyDenyAll
		}

		session := replay.NewSession(opts, replay.EchoInvoker, recorder, logger)
		summary := session.Run(context.Background(), transcript)

		fmt.Printf("steps: %d\n", summary.Steps)
		fmt.Printf("actions executed: %d (failed: %d)\n", summary.ActionsExecuted, summary.ActionsFailed)
		fmt.Printf("confirmations approved: %d, denied: %d, still pending: %d\n",
			summary.Approved, summary.Denied, summary.PendingLeft)
		for _, c := range summary.Continuations {
			fmt.Printf("  ↩ %s\n", c)
		}
		return nil
	},
}

var flagLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded tool outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, err := setup()
		if err != nil {
			return err
		}
		dbPath, err := databasePath(cfg.Current())
		if err != nil {
			return err
		}

		st, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()

		outcomes, err := st.List(context.Background(), flagLimit)
		if err != nil {
			return err
		}
		if len(outcomes) == 0 {
			fmt.Println("no recorded outcomes")
			return nil
		}
		now := time.Now()
		for _, o := range outcomes {
			line := fmt.Sprintf("%-12s %-20s %-10s %s", timeutil.Ago(o.CreatedAt, now), o.ToolName, o.Status, o.ToolCallID)
			if o.Error != "" {
				line += "  (" + o.Error + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the caseflow version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Get())
	},
}

func configPath() (string, error) {
	if flagConfig != "" {
		return flagConfig, nil
	}
	return config.GetConfigFile()
}

func databasePath(cfg *config.Config) (string, error) {
	if flagDB != "" {
		return flagDB, nil
	}
	if cfg.DatabasePath != "" {
		return cfg.DatabasePath, nil
	}
	return config.GetDatabasePath()
}

func setup() (*log.Logger, *config.Store, error) {
	path, err := configPath()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}
	return logger, config.NewStore(cfg), nil
}

func openRecorder(cfg *config.Config) (*store.Store, func(), error) {
	dbPath, err := databasePath(cfg)
	if err != nil {
		return nil, nil, err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return st, func() { st.Close() }, nil
}

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "path to outcome database")
	replayCmd.Flags().BoolVar(&flagApproveAll, "approve-all", false, "approve every pending confirmation")
	replayCmd.Flags().BoolVar(&flagDenyAll, "deny-all", false, "deny every pending confirmation")
	historyCmd.Flags().IntVar(&flagLimit, "limit", 50, "maximum outcomes to list")

	rootCmd.AddCommand(replayCmd, historyCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
