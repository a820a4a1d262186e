package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pbaille/decklist/internal/api"
	"github.com/pbaille/decklist/internal/classifier"
	"github.com/pbaille/decklist/internal/config"
	"github.com/pbaille/decklist/internal/decklist"
	"github.com/pbaille/decklist/internal/domain"
	"github.com/pbaille/decklist/internal/export"
	"github.com/pbaille/decklist/internal/fetcher"
	"github.com/pbaille/decklist/internal/logging"
	"github.com/pbaille/decklist/internal/pipeline"
	"github.com/pbaille/decklist/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	dbPath     string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "decklist",
		Short:         "Convert a decklist into a card table with roles",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Archive.Path = dbPath
			}

			level := cfg.Logging.Level
			if verbose {
				level = "debug"
			}
			logger, err = logging.New(level, cfg.Logging.Format)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "decklist.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "run archive database path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(showCmd())

	return rootCmd
}

func getStore() (*store.Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(cfg.Archive.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(cfg.Archive.Path)
}

func newPipeline() (*pipeline.Pipeline, error) {
	delay, err := cfg.LookupDelay()
	if err != nil {
		return nil, err
	}
	f := fetcher.New(fetcher.Config{
		BaseURL:   cfg.Scryfall.BaseURL,
		Delay:     delay,
		UserAgent: cfg.Scryfall.UserAgent,
	}, logger)
	return pipeline.New(f, logger), nil
}

func inputPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.Batch.Input
}

func convertCmd() *cobra.Command {
	var output string
	var save bool

	cmd := &cobra.Command{
		Use:   "convert [decklist]",
		Short: "Convert a decklist file to CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := inputPath(args)
			if output == "" {
				output = cfg.Batch.Output
			}

			lines, err := decklist.LoadFile(input)
			if err != nil {
				return err
			}

			p, err := newPipeline()
			if err != nil {
				return err
			}
			table := p.Convert(lines)

			if err := (&export.CSVWriter{}).WriteToFile(output, table); err != nil {
				return err
			}

			if save {
				s, err := getStore()
				if err != nil {
					return err
				}
				defer s.Close()

				run, err := s.SaveRun(filepath.Base(input), table)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved run: %s\n", run.ID[:8])
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deck analysis saved as '%s'\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV path")
	cmd.Flags().BoolVar(&save, "save", false, "also store the result in the run archive")
	return cmd
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [decklist]",
		Short: "Print card counts per role",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := decklist.LoadFile(inputPath(args))
			if err != nil {
				return err
			}

			p, err := newPipeline()
			if err != nil {
				return err
			}
			table := p.Convert(lines)

			out := cmd.OutOrStdout()
			printSummary(out, table.Rows)
			if table.Skipped > 0 {
				fmt.Fprintf(out, "(%d cards could not be looked up)\n", table.Skipped)
			}
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string
	var noArchive bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the upload page and REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.Server.Addr
			}

			p, err := newPipeline()
			if err != nil {
				return err
			}

			var archive api.RunArchive
			if !noArchive {
				s, err := getStore()
				if err != nil {
					return err
				}
				defer s.Close()
				archive = s
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return api.New(p, archive, addr, logger).Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "disable the run archive")
	return cmd
}

func runsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(limit, 0)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs yet. Use 'decklist convert --save' to archive one.")
				return nil
			}

			for _, r := range runs {
				fmt.Fprintf(out, "%s  %s  %s\n", r.ID[:8], r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Source)
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

func showCmd() *cobra.Command {
	var summary bool

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print an archived run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			run, err := s.FindRun(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if summary {
				printSummary(out, run.Rows)
				return nil
			}

			return (&export.CSVWriter{}).Write(out, &domain.Table{Rows: run.Rows, Skipped: run.Skipped})
		},
	}

	cmd.Flags().BoolVar(&summary, "summary", false, "print role counts instead of CSV")
	return cmd
}

func printSummary(out io.Writer, rows []domain.OutputRow) {
	counts := classifier.Summarize(rows)
	for _, role := range classifier.Roles() {
		if counts[role] > 0 {
			fmt.Fprintf(out, "%-18s %d\n", role, counts[role])
		}
	}
}
