// Package config loads the run settings that drive the pipeline (stage 1,
// spec.md §2/§6). Settings themselves are an external-collaborator
// concern (spec.md §1 names "configuration loading (YAML config)" as out
// of scope for the core), but the typed RunConfig the core consumes, and
// a reference loader for it, belong here the way ako-backing-tracks'
// parser.LoadTrack loads its YAML-backed Track: os.ReadFile + yaml.Unmarshal,
// then apply defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/baligamelan/gamelan-midi/internal/model"
)

// RunType selects single-piece or batch processing (spec.md §6).
type RunType string

const (
	RunSingle RunType = "RUN_SINGLE"
	RunAll    RunType = "RUN_ALL"
)

// RunConfig mirrors the process interface spec.md §6 describes as a
// black box owned by the CLI/config layer; the core only ever sees this
// typed value.
type RunConfig struct {
	Runtype                   RunType `yaml:"runtype"`
	PieceName                 string  `yaml:"piece_name"`
	NotationDir               string  `yaml:"notation_dir"`
	TablesDir                 string  `yaml:"tables_dir"`
	FontVersion               string  `yaml:"font_version"`
	OutputDir                 string  `yaml:"output_dir"`
	IsProductionRun           bool    `yaml:"is_production_run"`
	Autocorrect               bool    `yaml:"autocorrect"`
	SaveCorrectedToFile       bool    `yaml:"save_corrected_to_file"`
	SaveMidifile              bool    `yaml:"save_midifile"`
	SavePdfNotation           bool    `yaml:"save_pdf_notation"`
	DetailedValidationLogging bool    `yaml:"detailed_validation_logging"`
	InstrumentGroup           string  `yaml:"instrument_group"`
	ScoreSettingsFile         string  `yaml:"score_settings_file"`
}

// scoreSettingsFile is the YAML shape of ScoreSettingsFile, the
// process-level values spec.md §3 attaches to Score ("PPQ, base_note_time,
// dynamics map, tremolo tables"). It is decoded then converted to
// model.ScoreSettings with defaults applied, the same two-step shape
// Load/applyDefaults uses for RunConfig.
type scoreSettingsFile struct {
	PPQ                       int            `yaml:"ppq"`
	BaseNoteTicks             int            `yaml:"base_note_time"`
	NotesPerQuarterNote       int            `yaml:"notes_per_quarter_note"`
	BaseNotesPerBeat          int            `yaml:"base_notes_per_beat"`
	Dynamics                  map[string]int `yaml:"dynamics"`
	AcceleratingPattern       []int          `yaml:"accelerating_pattern"`
	AcceleratingVelocity      []int          `yaml:"accelerating_velocity"`
	ShorthandPositions        []string       `yaml:"shorthand_positions"`
	AutocorrectKempyung       bool           `yaml:"autocorrect_kempyung"`
	SilenceSecondsBeforeStart float64        `yaml:"silence_seconds_before_start"`
	SilenceSecondsAfterEnd    float64        `yaml:"silence_seconds_after_end"`
	NaturalReleaseSeconds     float64        `yaml:"natural_release_seconds"`
	Loops                     bool           `yaml:"loops"`
}

// LoadScoreSettings reads the YAML file named by RunConfig.ScoreSettingsFile
// and converts it to a model.ScoreSettings, applying the defaults spec.md
// calls out as typical (PPQ 96, base_note_time 24).
func LoadScoreSettings(path string) (model.ScoreSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.ScoreSettings{}, fmt.Errorf("reading score settings %s: %w", path, err)
	}
	var f scoreSettingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return model.ScoreSettings{}, fmt.Errorf("parsing score settings %s: %w", path, err)
	}

	s := model.ScoreSettings{
		PPQ:                       f.PPQ,
		BaseNoteTicks:             f.BaseNoteTicks,
		NotesPerQuarterNote:       f.NotesPerQuarterNote,
		BaseNotesPerBeat:          f.BaseNotesPerBeat,
		ShorthandPositions:        make(map[model.Position]bool, len(f.ShorthandPositions)),
		AutocorrectKempyung:       f.AutocorrectKempyung,
		SilenceSecondsBeforeStart: f.SilenceSecondsBeforeStart,
		SilenceSecondsAfterEnd:    f.SilenceSecondsAfterEnd,
		NaturalReleaseSeconds:     f.NaturalReleaseSeconds,
		Loops:                     f.Loops,
	}
	if s.PPQ == 0 {
		s.PPQ = 96
	}
	if s.BaseNoteTicks == 0 {
		s.BaseNoteTicks = 24
	}
	if s.NotesPerQuarterNote == 0 {
		s.NotesPerQuarterNote = 4
	}
	if s.BaseNotesPerBeat == 0 {
		s.BaseNotesPerBeat = 4
	}
	if len(f.Dynamics) > 0 {
		s.Dynamics = make(map[string]uint8, len(f.Dynamics))
		for name, v := range f.Dynamics {
			s.Dynamics[name] = uint8(v)
		}
	} else {
		s.Dynamics = map[string]uint8{"pp": 32, "p": 48, "mp": 56, "mf": 64, "f": 96, "ff": 112}
	}
	for _, name := range f.AcceleratingPattern {
		s.AcceleratingPattern = append(s.AcceleratingPattern, name)
	}
	for _, v := range f.AcceleratingVelocity {
		s.AcceleratingVelocity = append(s.AcceleratingVelocity, uint8(v))
	}
	for _, pos := range f.ShorthandPositions {
		s.ShorthandPositions[model.Position(pos)] = true
	}
	return s, nil
}

// Load reads a YAML run-settings file and applies defaults for any field
// the file omits.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config %s: %w", path, err)
	}

	// SaveMidifile defaults to on; an explicit `save_midifile: false` in
	// the file overrides it, since Unmarshal only sets keys it finds.
	cfg := RunConfig{SaveMidifile: true}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing run config %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *RunConfig) {
	if cfg.Runtype == "" {
		cfg.Runtype = RunSingle
	}
	if cfg.FontVersion == "" {
		cfg.FontVersion = "v1"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	if cfg.ScoreSettingsFile == "" && cfg.TablesDir != "" {
		cfg.ScoreSettingsFile = filepath.Join(cfg.TablesDir, "score_settings.yaml")
	}
}

// Validate implements stage 1 (settings validation, spec.md §2 row 1):
// it never produces an artifact, only an error when the settings are
// unusable.
func (c *RunConfig) Validate() error {
	if c.Runtype != RunSingle && c.Runtype != RunAll {
		return fmt.Errorf("invalid runtype %q", c.Runtype)
	}
	if c.Runtype == RunSingle && c.PieceName == "" {
		return fmt.Errorf("RUN_SINGLE requires piece_name")
	}
	if c.NotationDir == "" {
		return fmt.Errorf("notation_dir is required")
	}
	if c.TablesDir == "" {
		return fmt.Errorf("tables_dir is required")
	}
	if c.InstrumentGroup == "" {
		return fmt.Errorf("instrument_group is required")
	}
	if c.SavePdfNotation {
		return fmt.Errorf("save_pdf_notation is not supported: PDF rendering is out of scope")
	}
	return nil
}
