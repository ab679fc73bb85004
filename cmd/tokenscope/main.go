package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Process exit codes.
const (
	exitOK      = 0
	exitError   = 1
	exitNothing = 2
)

// errNothingToReport ends a run that found no eligible content. It is a
// distinct outcome, not a failure, and maps to its own exit code.
var errNothingToReport = errors.New("nothing to report")

var rootCmd = &cobra.Command{
	Use:   "tokenscope <repository>",
	Short: "Estimate a repository's token count and rank LLMs by context coverage",
	Long: "tokenscope fetches a repository, counts the tokens of its text files and ranks " +
		"language models by how much of the repository fits in their context window.\n\n" +
		"Counts use the cl100k_base encoding for every model, so figures for models with " +
		"other tokenizers are approximate.",
	Args:          cobra.ExactArgs(1),
	RunE:          runAnalyze,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("tokenscope v" + version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
}

// exitCode maps the error returned by a command to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errNothingToReport):
		return exitNothing
	default:
		return exitError
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	code := exitCode(err)
	if code == exitError {
		fmt.Fprintln(os.Stderr, styleError.Render("An error occurred: "+err.Error()))
	}
	os.Exit(code)
}
