package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/gotoinstr/formatter"
	"github.com/gnolang/gotoinstr/instrument"
	tt "github.com/gnolang/gotoinstr/internal/types"
)

var errIssuesFound = errors.New("error-level issues found")

var (
	blocksVariant  string
	blocksJSON     bool
	blocksOutput   string
	blocksWatch    bool
	blocksCacheDir string
)

var blocksCmd = &cobra.Command{
	Use:   "blocks [paths...]",
	Short: "Partition the functions of models into basic blocks",
	Long: `Partitions every function of the given models into basic blocks and prints
each block with its representative instruction and source lines, followed by
warnings about blocks that cannot be instrumented.

Directories are searched for *.goto.yaml, *.goto.yml and *.goto.json files.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cfgFile)
		if err != nil {
			return err
		}
		if blocksVariant != "" {
			config.Blocks.Variant = blocksVariant
		}

		engine := instrument.New(config, logger)
		if blocksCacheDir != "" {
			cache, err := instrument.NewCache(blocksCacheDir)
			if err != nil {
				return err
			}
			engine.WithCache(cache)
		}

		if blocksWatch {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			return watchBlocks(ctx, cmd.OutOrStdout(), engine, args)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return runBlocks(ctx, cmd.OutOrStdout(), engine, args, blocksJSON, blocksOutput)
	},
}

func init() {
	blocksCmd.Flags().StringVar(&blocksVariant, "variant", "", "Partitioning strategy: basic or bytecode (overrides the configuration)")
	blocksCmd.Flags().BoolVar(&blocksJSON, "json", false, "Output issues in JSON format")
	blocksCmd.Flags().StringVarP(&blocksOutput, "output", "o", "", "Output path (when using JSON)")
	blocksCmd.Flags().BoolVar(&blocksWatch, "watch", false, "Reprocess models whenever they change")
	blocksCmd.Flags().StringVar(&blocksCacheDir, "cache-dir", "", "Directory caching results of unchanged models")
}

func runBlocks(ctx context.Context, w io.Writer, engine instrument.Runner, paths []string, isJSON bool, jsonOutput string) error {
	issues, processErr := instrument.ProcessPaths(ctx, logger, engine, paths, instrument.ProcessFile)
	if err := printIssues(w, issues, isJSON, jsonOutput); err != nil {
		return err
	}
	if processErr != nil {
		return processErr
	}
	for _, issue := range issues {
		if issue.Severity == tt.SeverityError {
			return errIssuesFound
		}
	}
	return nil
}

func watchBlocks(ctx context.Context, w io.Writer, engine instrument.Runner, paths []string) error {
	if err := runBlocks(ctx, w, engine, paths, false, ""); err != nil && !errors.Is(err, errIssuesFound) {
		return err
	}

	watcher, err := instrument.NewWatcher(engine, logger, paths, func(path string, issues []tt.Issue) {
		if err := printIssues(w, issues, false, ""); err != nil {
			logger.Error("Error printing issues", zap.String("model", path), zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	logger.Info("watching models", zap.Strings("paths", paths))
	return watcher.Run(ctx)
}

func printIssues(w io.Writer, issues []tt.Issue, isJSON bool, jsonOutput string) error {
	issuesByModel := make(map[string][]tt.Issue)
	for _, issue := range issues {
		issuesByModel[issue.Model] = append(issuesByModel[issue.Model], issue)
	}

	if isJSON {
		d, err := json.MarshalIndent(issuesByModel, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshalling issues to JSON: %w", err)
		}
		if jsonOutput == "" {
			_, err = fmt.Fprintln(w, string(d))
			return err
		}
		return os.WriteFile(jsonOutput, d, 0o644)
	}

	models := make([]string, 0, len(issuesByModel))
	for model := range issuesByModel {
		models = append(models, model)
	}
	sort.Strings(models)

	for _, model := range models {
		modelIssues := issuesByModel[model]
		output := formatter.GenerateFormattedIssue(modelIssues, formatter.LoadSources(modelIssues))
		if _, err := fmt.Fprint(w, output); err != nil {
			return err
		}
	}
	return nil
}
