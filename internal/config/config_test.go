package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "run.yaml", "notation_dir: /notation\ntables_dir: /tables\npiece_name: test\ninstrument_group: gong_kebyar\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Runtype != RunSingle {
		t.Errorf("expected default runtype RUN_SINGLE, got %q", cfg.Runtype)
	}
	if cfg.FontVersion != "v1" {
		t.Errorf("expected default font_version v1, got %q", cfg.FontVersion)
	}
	if !cfg.SaveMidifile {
		t.Error("expected save_midifile to default on")
	}
	if cfg.ScoreSettingsFile != filepath.Join("/tables", "score_settings.yaml") {
		t.Errorf("expected derived score_settings_file, got %q", cfg.ScoreSettingsFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsMissingInstrumentGroup(t *testing.T) {
	cfg := &RunConfig{Runtype: RunSingle, PieceName: "p", NotationDir: "d", TablesDir: "t"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a missing instrument_group")
	}
}

func TestValidateRejectsRunSingleWithoutPieceName(t *testing.T) {
	cfg := &RunConfig{Runtype: RunSingle, NotationDir: "d", TablesDir: "t", InstrumentGroup: "g"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for RUN_SINGLE without piece_name")
	}
}

func TestLoadScoreSettingsAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "score_settings.yaml", "autocorrect_kempyung: true\n")

	s, err := LoadScoreSettings(path)
	if err != nil {
		t.Fatalf("LoadScoreSettings failed: %v", err)
	}
	if s.PPQ != 96 {
		t.Errorf("expected default PPQ 96, got %d", s.PPQ)
	}
	if s.BaseNoteTicks != 24 {
		t.Errorf("expected default base_note_time 24, got %d", s.BaseNoteTicks)
	}
	if s.Dynamics["mf"] != 64 {
		t.Errorf("expected default dynamics map entry mf=64, got %d", s.Dynamics["mf"])
	}
	if !s.AutocorrectKempyung {
		t.Error("expected autocorrect_kempyung to be read from the file")
	}
}

func TestLoadScoreSettingsCustomDynamics(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "score_settings.yaml", "dynamics:\n  pp: 10\n  ff: 120\n")

	s, err := LoadScoreSettings(path)
	if err != nil {
		t.Fatalf("LoadScoreSettings failed: %v", err)
	}
	if s.Dynamics["pp"] != 10 || s.Dynamics["ff"] != 120 {
		t.Errorf("expected custom dynamics map to override default, got %v", s.Dynamics)
	}
}
