package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gnolang/gotoinstr/internal/analysis/cfg"
	"github.com/gnolang/gotoinstr/internal/cover"
	"github.com/gnolang/gotoinstr/internal/program"
)

// variable for flags
var (
	funcName   string
	dotOutput  string
	dotVariant string
)

var dotCmd = &cobra.Command{
	Use:   "dot <model>",
	Short: "Print the block graph of a function in GraphViz format",
	Long: `Outputs the block-level control flow graph of the specified function or
renders it with GraphViz.
Example) gotoinstr dot --func main -o main.svg model.goto.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDot(cmd.OutOrStdout(), args[0], funcName, dotVariant, dotOutput)
	},
}

func init() {
	dotCmd.Flags().StringVar(&funcName, "func", "", "Function to print")
	dotCmd.Flags().StringVarP(&dotOutput, "output", "o", "", "Output path for rendered GraphViz file")
	dotCmd.Flags().StringVar(&dotVariant, "variant", cover.VariantBasic, "Partitioning strategy: basic or bytecode")
	_ = dotCmd.MarkFlagRequired("func")
}

func runDot(w io.Writer, input, function, variant, output string) error {
	model, err := program.Load(input)
	if err != nil {
		return err
	}
	body, ok := model.Functions[function]
	if !ok || body == nil {
		return fmt.Errorf("function not found: %s", function)
	}
	part, err := cover.ForVariant(variant, body)
	if err != nil {
		return err
	}

	var buf strings.Builder
	cfg.FromProgram(body, part).PrintDot(&buf)

	if output == "" {
		_, err := fmt.Fprint(w, buf.String())
		return err
	}
	if err := cfg.RenderToGraphVizFile([]byte(buf.String()), output); err != nil {
		return fmt.Errorf("failed to render block graph: %w", err)
	}
	fmt.Fprintf(w, "GraphViz file created: %s\n", output)
	return nil
}
