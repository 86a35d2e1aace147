package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"salesetl/pkg/config"
	"salesetl/pkg/pipeline"
)

var (
	// Global flags
	configPath string
	verbose    bool

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "salesetl",
	Short: "Extract, clean and merge sales, products and transactions",
	Long: `salesetl runs two sequential batch flows:

  extract    reads the products and transactions tables from the source
             database and writes db_products.csv and db_transactions.csv
  transform  cleans sales_data.csv and the two extracts, left-joins them on
             product_id and replaces the sink table with the result

Connection parameters come from the YAML file given by --config.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = buildLogger(cfg.Logging, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Export the source products and transactions tables to CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(ctx context.Context, s *pipeline.Session) error {
			_, err := s.Extract(ctx)
			return err
		})
	},
}

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Clean and merge the CSV files and replace the sink table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(ctx context.Context, s *pipeline.Session) error {
			_, err := s.Transform(ctx)
			return err
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run extract, then transform if extraction succeeded",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), func(ctx context.Context, s *pipeline.Session) error {
			return s.Run(ctx)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "salesetl.yaml", "Path to the YAML connection descriptor")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(extractCmd, transformCmd, runCmd)
}

func buildLogger(lc config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if lc.Level != "" {
		level, err := zapcore.ParseLevel(lc.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}

func withSession(ctx context.Context, fn func(context.Context, *pipeline.Session) error) error {
	s, err := pipeline.NewSession(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			logger.Warn("Failed to close session", zap.Error(cerr))
		}
	}()
	return fn(ctx, s)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
