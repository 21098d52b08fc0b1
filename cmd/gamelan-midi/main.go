// Command gamelan-midi runs the notation-to-MIDI pipeline (spec.md §2):
// settings validation, notation parse, score construction, position
// binding, pattern elaboration, score completion, score validation,
// execution linearization, MIDI emission.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/baligamelan/gamelan-midi/internal/complete"
	"github.com/baligamelan/gamelan-midi/internal/config"
	"github.com/baligamelan/gamelan-midi/internal/elaborate"
	"github.com/baligamelan/gamelan-midi/internal/exec"
	"github.com/baligamelan/gamelan-midi/internal/midi"
	"github.com/baligamelan/gamelan-midi/internal/model"
	"github.com/baligamelan/gamelan-midi/internal/notation"
	"github.com/baligamelan/gamelan-midi/internal/perr"
	"github.com/baligamelan/gamelan-midi/internal/score"
	"github.com/baligamelan/gamelan-midi/internal/tables"
	"github.com/baligamelan/gamelan-midi/internal/validate"
)

func main() {
	configPath := flag.String("config", "", "path to the run-settings YAML file (required)")
	piece := flag.String("piece", "", "override piece_name from the run config")
	verbose := flag.Bool("verbose", false, "force detailed_validation_logging on for this run")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -config <run.yaml> [-piece name] [-verbose]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading run config: %v", err)
	}
	if *piece != "" {
		cfg.PieceName = *piece
	}
	if *verbose {
		cfg.DetailedValidationLogging = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid run config: %v", err)
	}

	if cfg.Runtype == config.RunAll {
		runAll(cfg)
		return
	}

	if err := runPiece(cfg, cfg.PieceName); err != nil {
		log.Fatalf("%s: %v", cfg.PieceName, err)
	}
}

// runAll walks NotationDir and runs the pipeline once per notation file,
// independently, per SPEC_FULL.md's RUN_ALL batch mode: many single-piece
// runs, never shared mutable state across pieces.
func runAll(cfg *config.RunConfig) {
	entries, err := os.ReadDir(cfg.NotationDir)
	if err != nil {
		log.Fatalf("reading notation_dir %s: %v", cfg.NotationDir, err)
	}

	failures := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".not" {
			continue
		}
		piece := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		log.Printf("=== %s ===", piece)
		if err := runPiece(cfg, piece); err != nil {
			log.Printf("%s: %v", piece, err)
			failures++
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}

// runPiece drives one piece end to end, aborting at whichever stage
// boundary first accumulates an error (spec.md §2: "an agent that
// records errors lets the pipeline continue through the end of its own
// stage, then aborts before subsequent stages run").
func runPiece(cfg *config.RunConfig, piece string) error {
	bundle, err := tables.LoadBundle(cfg.TablesDir, cfg.FontVersion)
	if err != nil {
		return fmt.Errorf("loading tables: %w", err)
	}

	settings, err := config.LoadScoreSettings(cfg.ScoreSettingsFile)
	if err != nil {
		return fmt.Errorf("loading score settings: %w", err)
	}
	if cfg.Autocorrect {
		settings.AutocorrectKempyung = true
	}

	notationPath := filepath.Join(cfg.NotationDir, piece+".not")
	text, err := os.ReadFile(notationPath)
	if err != nil {
		return fmt.Errorf("reading notation file: %w", err)
	}

	col := perr.NewCollector(cfg.DetailedValidationLogging)
	raw := notation.Parse(notationPath, string(text), bundle.Font, col)
	if col.Failed() {
		return col.Err()
	}

	col = perr.NewCollector(cfg.DetailedValidationLogging)
	s := score.Construct(raw, bundle.Font, settings, col)
	s.InstrumentGroup = cfg.InstrumentGroup
	s.FontVersion = cfg.FontVersion
	if col.Failed() {
		return col.Err()
	}

	col = perr.NewCollector(cfg.DetailedValidationLogging)
	s = score.Bind(s, bundle.TagPositions, bundle.Instruments, bundle.Rules, col)
	if col.Failed() {
		return col.Err()
	}

	col = perr.NewCollector(cfg.DetailedValidationLogging)
	s = elaborate.Elaborate(s, bundle.Ornaments, col)
	if col.Failed() {
		return col.Err()
	}

	col = perr.NewCollector(cfg.DetailedValidationLogging)
	s = complete.Complete(s, bundle.Instruments, col)
	if col.Failed() {
		return col.Err()
	}

	col = perr.NewCollector(cfg.DetailedValidationLogging)
	corrected := validate.Validate(s, bundle.Instruments, bundle.Rules, col)
	if cfg.SaveCorrectedToFile && len(col.Warnings) > 0 {
		if err := writeCorrectedNotation(cfg, piece, corrected, bundle.Font); err != nil {
			log.Printf("%s: writing corrected notation: %v", piece, err)
		}
	}
	if col.Failed() {
		return col.Err()
	}
	s = corrected

	col = perr.NewCollector(cfg.DetailedValidationLogging)
	execution := exec.Linearize(s, col)
	if col.Failed() {
		return col.Err()
	}

	if !cfg.SaveMidifile {
		log.Printf("%s: pipeline completed, save_midifile is off", piece)
		return nil
	}

	outPath := filepath.Join(cfg.OutputDir, piece+".mid")
	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer out.Close()

	if err := midi.Emit(execution, s, bundle, out); err != nil {
		return fmt.Errorf("emitting MIDI: %w", err)
	}

	log.Printf("%s: wrote %s (%d steps)", piece, outPath, len(execution.Steps))
	return nil
}

// writeCorrectedNotation implements save_corrected_to_file (SPEC_FULL.md
// §4): when autocorrection changes a note, the corrected score is
// rendered back to notation text and written next to the input file
// with a ".corrected" suffix, for the operator to diff against the
// original by hand.
func writeCorrectedNotation(cfg *config.RunConfig, piece string, s *model.Score, font *tables.FontTable) error {
	text := score.Render(s, font)
	path := filepath.Join(cfg.NotationDir, piece+".not.corrected")
	return os.WriteFile(path, []byte(text), 0o644)
}
