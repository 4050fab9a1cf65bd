package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/gotoinstr/instrument"
)

const defaultTimeout = 5 * time.Minute

var (
	cfgFile string
	timeout time.Duration
	verbose bool

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "gotoinstr",
	Short: "gotoinstr - coverage blocks and function pointer restrictions for goto-programs",
	Long: `gotoinstr loads goto-program models, partitions their functions into basic
blocks for coverage instrumentation and replaces calls through restricted
function pointers by explicit branches over the allowed targets.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to the configuration file (default "+instrument.DefaultConfigPath+")")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "Timeout for processing models")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable development logging")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(blocksCmd)
	rootCmd.AddCommand(labelCmd)
	rootCmd.AddCommand(restrictCmd)
	rootCmd.AddCommand(dotCmd)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadConfig reads the configuration named by path. When path is empty the
// default configuration file is used if present.
func loadConfig(path string) (instrument.Config, error) {
	if path == "" {
		if _, err := os.Stat(instrument.DefaultConfigPath); errors.Is(err, os.ErrNotExist) {
			return instrument.DefaultConfig(), nil
		}
		path = instrument.DefaultConfigPath
	}
	return instrument.LoadConfig(path)
}
