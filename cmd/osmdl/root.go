package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cognusion/go-osmdl"
	"github.com/cognusion/go-osmdl/internal/diag"
)

var (
	flagForce      bool
	flagNoClobber  bool
	flagDryRun     bool
	flagVerbose    bool
	flagConfigPath string
)

var rootCmd = &cobra.Command{
	Use:   "osmdl <source> [output]",
	Short: "Fetch OpenStreetMap planet and regional extracts",
	Long: "osmdl resolves a short source identifier (\"planet\", a continent, or " +
		"\"continent/region\") to its origin, probes for size and byte-range " +
		"support, and downloads it with bounded concurrency and automatic resume.",
	Args: cobra.RangeArgs(1, 2),
	RunE: runGet,
}

func init() {
	rootCmd.Flags().BoolVar(&flagForce, "force", false, "overwrite an existing destination without asking")
	rootCmd.Flags().BoolVar(&flagNoClobber, "no-clobber", false, "never overwrite an existing destination")
	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "resolve the source and print what would happen, without transferring")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "log debug and timing information")
	rootCmd.Flags().StringVar(&flagConfigPath, "config", defaultConfigPath(), "path to the TOML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "osmdl: %s\n", renderError(err))
		os.Exit(1)
	}
}

// renderError surfaces a SourceNotFound's fuzzy suggestion alongside the
// rejected input, per spec §7's "user-visible failure" requirement for a
// single actionable message.
func renderError(err error) string {
	xerr, ok := osmdl.AsError(err)
	if !ok || xerr.Code != osmdl.CodeSourceNotFound {
		return err.Error()
	}
	if xerr.Suggestion == "" {
		return err.Error()
	}
	return fmt.Sprintf("%s (try %q)", err.Error(), xerr.Suggestion)
}

func runGet(cmd *cobra.Command, args []string) error {
	if flagForce && flagNoClobber {
		return fmt.Errorf("--force and --no-clobber are mutually exclusive")
	}

	source := args[0]
	dest := ""
	if len(args) == 2 {
		dest = args[1]
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	if flagVerbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	fileCfg, err := loadFileConfig(flagConfigPath)
	if err != nil {
		return err
	}
	opts := optionsFromConfig(fileCfg)

	switch {
	case flagForce:
		opts.Overwrite = osmdl.Force
	case flagNoClobber:
		opts.Overwrite = osmdl.NeverOverwrite
	}
	opts.OnPrompt = promptOverwrite

	debugWriter := logger.WriterLevel(logrus.DebugLevel)
	defer debugWriter.Close()
	timingsWriter := logger.WriterLevel(logrus.DebugLevel)
	defer timingsWriter.Close()
	opts.Loggers = diag.Loggers{
		Debug:   stdlog.New(debugWriter, "", 0),
		Timings: stdlog.New(timingsWriter, "", 0),
	}

	url, filename, err := osmdl.Resolve(source)
	if err != nil {
		return err
	}

	if flagDryRun {
		out := dest
		if out == "" {
			out = filename
		}
		fmt.Printf("%s -> %s (destination %s)\n", source, url, out)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go interruptOn(ctx, cancel)

	var bar *pb.ProgressBar
	progress := func(done, total int64) {
		if bar == nil {
			t := total
			if t < 0 {
				t = 0
			}
			bar = pb.Full.Start64(t)
		}
		bar.SetCurrent(done)
	}

	start := time.Now()
	err = osmdl.GetWithProgress(ctx, source, dest, progress)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	logger.Debugf("completed in %s", time.Since(start))
	return nil
}

// interruptOn cancels ctx's cancel func on SIGINT/SIGTERM, so a
// Ctrl-C mid-transfer surfaces as a clean Cancelled error rather than an
// abrupt process kill leaving a half-written file with no sync.
func interruptOn(ctx context.Context, cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		cancel()
	case <-ctx.Done():
	}
}

// promptOverwrite is the CLI's implementation of osmdl.PromptFunc: the only
// place in this program that asks an interactive question, per spec §9's
// "the core must never prompt directly".
func promptOverwrite(path string) (bool, error) {
	fmt.Fprintf(os.Stderr, "%s already exists. Overwrite? [y/N] ", path)
	var answer string
	if _, err := fmt.Scanln(&answer); err != nil {
		return false, nil
	}
	return answer == "y" || answer == "Y" || answer == "yes", nil
}

func optionsFromConfig(cfg *fileConfig) osmdl.Options {
	opts := osmdl.DefaultOptions()

	switch cfg.Overwrite {
	case "force":
		opts.Overwrite = osmdl.Force
	case "never", "no-clobber":
		opts.Overwrite = osmdl.NeverOverwrite
	case "prompt", "":
		// keep default
	}
	if cfg.MaxConcurrentChunks > 0 {
		opts.MaxConcurrentChunks = cfg.MaxConcurrentChunks
	}
	if cfg.ChunkSizeMB > 0 {
		opts.ChunkSize = int64(cfg.ChunkSizeMB) << 20
	}
	if cfg.RetryBudget > 0 {
		opts.RetryBudget = cfg.RetryBudget
	}
	if cfg.ConnectTimeoutMS > 0 {
		opts.ConnectTimeout = time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond
	}
	if cfg.RequestTimeoutMS > 0 {
		opts.RequestTimeout = time.Duration(cfg.RequestTimeoutMS) * time.Millisecond
	}
	return opts
}
