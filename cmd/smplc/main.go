// Command smplc is the SMPL compiler's CLI entry point: it drives the
// lexer, parser, IR builder, optimizer, and graph serializer, and writes
// the serialized CFG description for an external graph-rendering tool to
// pick up.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"smplc/internal/diag"
	"smplc/internal/graph"
	"smplc/internal/lexer"
	"smplc/internal/parser"
	"smplc/token"
)

var (
	lexOnly     bool
	noConstElim bool
	noView      bool
	outputPNG   bool
)

func main() {
	root := &cobra.Command{
		Use:   "smplc <input>",
		Short: "A SMPL IR generator",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
	root.Flags().BoolVarP(&lexOnly, "lex", "l", false, "dump the token stream and exit")
	root.Flags().BoolVarP(&noConstElim, "no-ce", "n", false, "disable the constant-folding pass")
	root.Flags().BoolVar(&noView, "no-view", false, "do not print the closing hint naming the .dot file (no viewer is opened either way)")
	root.Flags().BoolVarP(&outputPNG, "output-png", "p", false, "name PNG instead of PDF as the render format in the closing hint (only the .dot file is written)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	path := args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		color.Red("failed to read %s: %s", path, err)
		os.Exit(1)
	}
	source := strings.TrimSpace(string(raw))

	if lexOnly {
		rule := strings.Repeat("=", 26)
		fmt.Println(rule)
		fmt.Printf("%-5s|%-11s|%-10s\n", "Pos", "Type", "Token")
		fmt.Println(rule)
		for _, tok := range lexer.New(source).Tokens() {
			if tok.Kind == token.EOF {
				break
			}
			fmt.Printf("%-5d|%-11s|%-10s\n", tok.Offset, tok.Kind, tok.Literal)
		}
		fmt.Println(rule)
		return nil
	}

	p, err := parser.New(path, source)
	if err != nil {
		reportFatal(err)
		os.Exit(1)
	}
	computation, err := p.Parse()
	if err != nil {
		reportFatal(err)
		os.Exit(1)
	}

	program, err := computation.Compile()
	if err != nil {
		reportFatal(fmt.Errorf("%s: %w", diag.Semantic, err))
		os.Exit(1)
	}

	if !noConstElim {
		program.Optimize()
	}
	program.Renumber()

	output := graph.Render(program)
	fmt.Println(output)

	format := "pdf"
	if outputPNG {
		format = "png"
	}
	outDir := "output"
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	base := filepath.Base(path)
	outPath := filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".dot")
	if err := os.WriteFile(outPath, []byte(output), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}

	if !noView {
		color.Green("wrote %s (render to %s with the external graph tool)", outPath, format)
	}
	return nil
}

func reportFatal(err error) {
	if de, ok := err.(*diag.Error); ok {
		fmt.Fprint(os.Stderr, de.Error())
		return
	}
	color.Red("%s", err.Error())
}
