package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnolang/gotoinstr/internal/program"
	"github.com/gnolang/gotoinstr/internal/restrict"
	tt "github.com/gnolang/gotoinstr/internal/types"
)

var (
	restrictFlags     restrict.Options
	restrictOutput    string
	restrictionsWrite string
)

var restrictCmd = &cobra.Command{
	Use:   "restrict <model>",
	Short: "Replace calls through restricted function pointers by branches over their targets",
	Long: `Labels the function pointer call sites of a model if needed, merges the
restrictions given in the configuration, on the command line and in
restriction files, checks them against the model and rewrites every
restricted call site.

Restrictions have the form <pointer_name>/<target>[,<target>]*. Pointer names
given with --restrict-function-pointer are labelled call sites such as
main.function_pointer_call.1; names given with
--restrict-function-pointer-by-name are source names of pointer variables.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(cfgFile)
		if err != nil {
			return err
		}
		opts := config.RestrictOptions(restrictFlags)
		_, err = runRestrict(cmd.OutOrStdout(), logger, args[0], restrictOutput, opts, restrictionsWrite)
		return err
	},
}

func init() {
	restrictCmd.Flags().StringArrayVar(&restrictFlags.Inline, restrict.OptionInline, nil, "Restrict a labelled call site: <pointer_name>/<target>[,<target>]*")
	restrictCmd.Flags().StringArrayVar(&restrictFlags.ByName, restrict.OptionByName, nil, "Restrict a pointer by source name: <pointer_name>/<target>[,<target>]*")
	restrictCmd.Flags().StringArrayVar(&restrictFlags.Files, restrict.OptionFile, nil, "JSON file of restrictions")
	restrictCmd.Flags().StringVarP(&restrictOutput, "output", "o", "", "Path of the rewritten model")
	restrictCmd.Flags().StringVar(&restrictionsWrite, "write-restrictions", "", "Write the merged restrictions to this JSON file")
	_ = restrictCmd.MarkFlagRequired("output")
}

func runRestrict(w io.Writer, logger *zap.Logger, input, output string, opts restrict.Options, restrictionsPath string) (*restrict.Report, error) {
	model, err := program.Load(input)
	if err != nil {
		return nil, err
	}

	r, report, err := restrict.Restrict(model, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", input, err)
	}

	if restrictionsPath != "" {
		if err := restrict.WriteFile(restrictionsPath, r); err != nil {
			return nil, err
		}
	}
	if err := program.Save(output, model); err != nil {
		return nil, err
	}

	var results tt.Collector
	report.Output(&results)
	for _, issue := range results.Issues() {
		fmt.Fprintln(w, issue.Message)
	}
	return report, nil
}
