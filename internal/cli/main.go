package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "clipcore <input>",
		Short:        "Find highlight windows and transcript grounded chapters in a video or transcript",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	// Visible flags
	root.Flags().String("out", "out", "Output directory")
	root.Flags().String("config", "", "TOML tuning file")
	root.Flags().Bool("no-chapters", false, "Only generate candidate windows")
	root.Flags().BoolP("verbose", "v", false, "Print progress and debug logs")

	// Hidden tuning flags (internal); they override the tuning file.
	root.Flags().Float64("min", 0, "Min window duration seconds")
	root.Flags().Float64("max", 0, "Max window duration seconds")
	root.Flags().Float64("step", 0, "Window step seconds")
	root.Flags().Int("concurrency", 0, "Parallel chunk requests to the oracle")
	root.Flags().String("cache-dir", ".cache", "Directory for extracted audio and transcripts")
	for _, name := range []string{"min", "max", "step", "concurrency", "cache-dir"} {
		_ = root.Flags().MarkHidden(name)
	}

	return root
}
