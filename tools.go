package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/moodjournal/autoplay"
	"github.com/wricardo/moodjournal/game/config"
)

// errInvalidPresets is returned by validate when a preset fails
var errInvalidPresets = errors.New("some configurations have errors")

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate preset files",
		ArgsUsage: "[files...]",
		Description: "Checks every given preset file, or every preset in --config-dir when " +
			"no file is given, and exits non-zero if any is invalid.",
		Action: runValidate,
	}
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	var results []config.ValidationResult
	if files := cmd.Args().Slice(); len(files) > 0 {
		for _, file := range files {
			results = append(results, config.ValidateFile(file))
		}
	} else {
		var err error
		results, err = config.ValidateDir(cmd.String("config-dir"))
		if err != nil {
			return err
		}
	}

	w := output(cmd)
	if len(results) == 0 {
		fmt.Fprintln(w, "No configuration files found")
		return nil
	}
	if !printValidation(w, results) {
		return errInvalidPresets
	}
	return nil
}

// printValidation writes a report and reports whether every result is valid
func printValidation(w io.Writer, results []config.ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, note := range result.Notes {
				fmt.Fprintln(w, "  "+note)
			}
			continue
		}

		allValid = false
		fmt.Fprintln(w, "❌ INVALID")
		for _, err := range result.Errors {
			fmt.Fprintln(w, "  ❌ "+err)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All configurations are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some configurations have errors")
	}
	return allValid
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Print statistics of every preset in --config-dir",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of a table"},
		},
		Action: runAnalyze,
	}
}

func runAnalyze(ctx context.Context, cmd *cli.Command) error {
	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}

	infos, err := manager.ListConfigs()
	if err != nil {
		return err
	}

	analyses := make([]config.Analysis, 0, len(infos))
	for _, info := range infos {
		preset, err := manager.LoadConfig(info.ConfigID)
		if err != nil {
			return err
		}
		analyses = append(analyses, config.Analyze(preset))
	}

	w := output(cmd)
	if cmd.Bool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(analyses)
	}
	return printAnalyses(w, analyses)
}

func printAnalyses(w io.Writer, analyses []config.Analysis) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRESET\tPAIRS\tCARDS\tSYMBOLS\tDEALS\tPERFECT MOVES\tSCORE BOUND\tDELAY")
	for _, a := range analyses {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%dms\n",
			a.Name, a.Pairs, a.Cards, a.SymbolPool, a.Deals, a.PerfectMoves, a.ScoreBound, a.MismatchDelayMS)
	}
	return tw.Flush()
}

func autoplayCommand() *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "Play games with a perfect-memory strategy and print score statistics",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "games", Value: 100, Usage: "Number of games to play"},
			&cli.StringFlag{Name: "preset", Value: config.BuiltinName, Usage: "Preset to play"},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "Seed of the first deal"},
			&cli.IntFlag{Name: "workers", Value: 4, Usage: "Games played at once"},
			&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of text"},
		},
		Action: runAutoplay,
	}
}

func runAutoplay(ctx context.Context, cmd *cli.Command) error {
	games := int(cmd.Int("games"))
	if games <= 0 {
		return fmt.Errorf("--games must be positive, got %d", games)
	}

	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	manager, err := config.NewManager(cmd.String("config-dir"), config.WithLogger(logger))
	if err != nil {
		return err
	}
	preset, err := manager.LoadConfig(cmd.String("preset"))
	if err != nil {
		return err
	}

	runner, err := autoplay.NewRunner(preset,
		autoplay.WithSeed(uint64(cmd.Int("seed"))),
		autoplay.WithWorkers(int(cmd.Int("workers"))),
		autoplay.WithLogger(logger))
	if err != nil {
		return err
	}

	logger.Debug("autoplay started", zap.String("preset", preset.Name), zap.Int("games", games))
	results, err := runner.Run(ctx, games)
	if err != nil {
		return err
	}
	stats := autoplay.Summarize(preset, results)

	w := output(cmd)
	if cmd.Bool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats autoplay.Stats) {
	fmt.Fprintf(w, "Preset:        %s\n", stats.Preset)
	fmt.Fprintf(w, "Games:         %d\n", stats.Games)
	fmt.Fprintf(w, "Score:         min %d, mean %.1f, max %d (bound %d)\n",
		stats.MinScore, stats.MeanScore, stats.MaxScore, stats.ScoreBound)
	fmt.Fprintf(w, "Moves:         mean %.2f\n", stats.MeanMoves)
	fmt.Fprintf(w, "Seconds:       mean %.2f\n", stats.MeanSeconds)
	fmt.Fprintf(w, "Perfect games: %d\n", stats.PerfectGames)
}
