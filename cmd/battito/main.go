// Package main is the entry point for the battito CLI
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/james-see/battito/pkg/api"
	"github.com/james-see/battito/pkg/export"
	"github.com/james-see/battito/pkg/pattern"
	"github.com/james-see/battito/pkg/tui"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	verbose      bool
	subdivision  int
	format       string
	importFormat string
	defaultValue uint32
	exportFile   string
	tuiFile      string
	tempo        float64
	bars         int
	channel      uint8
	serverPort   int

	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{log: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "battito",
		Short: "Compile step notation into probabilistic event patterns",
		Long: `battito compiles a compact step notation into fixed-length patterns
of events, each carrying a value and a trigger probability.

Notation:
  x          hit with the default value
  x60        hit with value 60
  x60:50     hit with value 60 firing 50% of the time
  . - ~      rest
  x!4 x*4    lay a step out four times in a row
  x(3,8,2)   euclidean rhythm: 3 hits over 8 steps rotated by 2
  {a b c}%5  cycle the elements over 5 steps

Examples:
  battito compile "x . x60:50 ." -s 16
  battito compile "x(3,8)" -f grid
  battito compile "x36(3,8)!2 {x42 x46:50}%16" -s 32
  battito export "x36 . x38 . x36 x36 x38 ." -o beat.mid
  battito import beat.mid -s 8
  battito tui
  battito serve --port 8080`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.verbose {
				return nil
			}
			logger, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			opts.log = logger
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().IntVarP(&opts.subdivision, "subdivision", "s", pattern.DefaultSubdivision, "Number of steps in the pattern")

	compileCmd := &cobra.Command{
		Use:   "compile <pattern...>",
		Short: "Compile a pattern and print it",
		Long:  `Compiles the pattern and prints it. Multiple arguments are joined with spaces.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, opts, args)
		},
	}
	compileCmd.Flags().StringVarP(&opts.format, "format", "f", string(pattern.FormatMax), "Output format ("+formatNames()+")")
	compileCmd.Flags().Uint32Var(&opts.defaultValue, "default-value", 0, "Value for hits written without one")

	exportCmd := &cobra.Command{
		Use:   "export <pattern...>",
		Short: "Compile a pattern to a MIDI file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts, args)
		},
	}
	exportCmd.Flags().StringVarP(&opts.exportFile, "output", "o", "pattern.mid", "Output .mid file path")
	exportCmd.Flags().Float64Var(&opts.tempo, "tempo", 120, "Tempo in BPM")
	exportCmd.Flags().IntVar(&opts.bars, "bars", 1, "Number of bars to repeat the pattern")
	exportCmd.Flags().Uint8Var(&opts.channel, "channel", 9, "MIDI channel (0-15)")
	exportCmd.Flags().Uint32Var(&opts.defaultValue, "default-value", 0, "Value for hits written without one")

	importCmd := &cobra.Command{
		Use:   "import <input.mid>",
		Short: "Quantize a MIDI file into pattern notation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args)
		},
	}
	importCmd.Flags().StringVarP(&opts.importFormat, "format", "f", string(pattern.FormatText), "Output format ("+formatNames()+")")

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Launch interactive pattern editor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(opts.subdivision, opts.tuiFile)
		},
	}
	tuiCmd.Flags().StringVarP(&opts.tuiFile, "output", "o", "pattern.mid", "File written on ctrl+s")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	serveCmd.Flags().IntVarP(&opts.serverPort, "port", "p", 8080, "Server port")

	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)

	return rootCmd
}

func formatList() []string {
	formats := pattern.Formats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names
}

func formatNames() string {
	return strings.Join(formatList(), ", ")
}

// parseFormat wraps pattern.ParseFormat with a suggestion for near misses
func parseFormat(name string) (pattern.Format, error) {
	f, err := pattern.ParseFormat(name)
	if err == nil {
		return f, nil
	}
	ranks := fuzzy.RankFindFold(name, formatList())
	if len(ranks) == 0 {
		return "", err
	}
	sort.Sort(ranks)
	return "", fmt.Errorf("%w, did you mean %q?", err, ranks[0].Target)
}

func runCompile(cmd *cobra.Command, opts *options, args []string) error {
	format, err := parseFormat(opts.format)
	if err != nil {
		return err
	}

	text := strings.Join(args, " ")
	p, sum := pattern.Compile(text, opts.subdivision, pattern.Options{DefaultValue: opts.defaultValue})
	opts.log.Debug("compiled",
		zap.String("pattern", text),
		zap.Int("subdivision", opts.subdivision),
		zap.Int("steps", sum.Steps),
		zap.Int("padded", sum.Padded),
		zap.Bool("truncated", sum.Truncated),
	)

	out, err := p.Render(format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func runExport(cmd *cobra.Command, opts *options, args []string) error {
	text := strings.Join(args, " ")
	p := pattern.TransformWith(text, opts.subdivision, pattern.Options{DefaultValue: opts.defaultValue})

	exp := export.NewMIDIExporter()
	exp.Tempo = opts.tempo
	exp.Bars = opts.bars
	exp.Channel = opts.channel

	opts.log.Debug("exporting",
		zap.String("output", opts.exportFile),
		zap.Float64("tempo", exp.Tempo),
		zap.Int("bars", exp.Bars),
	)
	if err := exp.WriteMIDIFile(p, opts.exportFile); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d steps -> %s\n", p.Length, opts.exportFile)
	return nil
}

func runImport(cmd *cobra.Command, opts *options, args []string) error {
	format, err := parseFormat(opts.importFormat)
	if err != nil {
		return err
	}

	p, err := export.ParseMIDIFile(args[0], opts.subdivision)
	if err != nil {
		return err
	}
	opts.log.Debug("imported",
		zap.String("input", args[0]),
		zap.Int("hits", len(p.Steps())),
	)

	out, err := p.Render(format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func runServe(cmd *cobra.Command, opts *options) error {
	fmt.Fprintf(cmd.OutOrStdout(), "Starting API server on port %d...\n", opts.serverPort)

	cfg := api.DefaultConfig()
	cfg.Port = opts.serverPort
	if opts.subdivision > 0 {
		cfg.DefaultSubdivision = opts.subdivision
	}
	if opts.verbose {
		cfg.Logger = opts.log
	} else {
		logger, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		cfg.Logger = logger
	}
	defer func() { _ = cfg.Logger.Sync() }()

	return api.Run(cfg)
}
