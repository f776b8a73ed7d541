package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dabinuss/clipcore/internal/config"
	"github.com/dabinuss/clipcore/internal/pipeline"
)

func run(cmd *cobra.Command, input string) error {
	outDir, _ := cmd.Flags().GetString("out")
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	tuningPath, _ := cmd.Flags().GetString("config")
	noChapters, _ := cmd.Flags().GetBool("no-chapters")
	verbose, _ := cmd.Flags().GetBool("verbose")

	env := config.LoadEnv()
	if verbose {
		env.LogLevel = "debug"
	}
	logger := setupLogging(env.LogLevel)

	tuning, err := config.LoadTuning(tuningPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	applyFlagOverrides(cmd, &tuning)

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Hour)
	defer cancel()

	cfg := pipeline.Config{
		Input:        absIn,
		OutDir:       outDir,
		CacheDir:     cacheDir,
		Env:          env,
		Tuning:       tuning,
		SkipChapters: noChapters,
		Logger:       logger,
	}
	if verbose {
		cfg.Logf = func(format string, args ...any) {
			fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	sum, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d candidate windows, %d chapters", sum.Windows, sum.Chapters)
	if sum.ChapterSource != "" {
		fmt.Fprintf(cmd.OutOrStdout(), " (%s)", sum.ChapterSource)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", sum.OutDir)
	return nil
}

func applyFlagOverrides(cmd *cobra.Command, t *config.Tuning) {
	flags := cmd.Flags()
	if flags.Changed("min") {
		v, _ := flags.GetFloat64("min")
		t.Windows.Min = seconds(v)
	}
	if flags.Changed("max") {
		v, _ := flags.GetFloat64("max")
		t.Windows.Max = seconds(v)
	}
	if flags.Changed("step") {
		v, _ := flags.GetFloat64("step")
		t.Windows.Step = seconds(v)
	}
	if flags.Changed("concurrency") {
		t.Chapters.Concurrency, _ = flags.GetInt("concurrency")
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func setupLogging(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
