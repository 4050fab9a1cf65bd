package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gnolang/gotoinstr/internal/label"
	"github.com/gnolang/gotoinstr/internal/program"
	tt "github.com/gnolang/gotoinstr/internal/types"
)

var labelOutput string

var labelCmd = &cobra.Command{
	Use:   "label <model>",
	Short: "Give every call through a function pointer its own call-site symbol",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLabel(cmd.OutOrStdout(), args[0], labelOutput)
	},
}

func init() {
	labelCmd.Flags().StringVarP(&labelOutput, "output", "o", "", "Path of the labelled model")
	_ = labelCmd.MarkFlagRequired("output")
}

func runLabel(w io.Writer, input, output string) error {
	model, err := program.Load(input)
	if err != nil {
		return err
	}
	var sites tt.Collector
	if err := label.CallSites(model, &sites); err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}
	if err := program.Save(output, model); err != nil {
		return err
	}
	fmt.Fprintf(w, "labelled %d call sites: %s\n", len(sites.Issues()), output)
	return nil
}
