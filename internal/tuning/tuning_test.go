package tuning

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	doc := "bot_name: tester\ndeposit_cargo: 800\nmoves:\n  stuck_decay: 0.5\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tu, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tu.BotName != "tester" || tu.DepositCargo != 800 || tu.Moves.StuckDecay != 0.5 {
		t.Fatalf("overrides not applied: %+v", tu)
	}
	if tu.Moves.StayBonus != 4 || tu.Dropoff.Spacing != 15 {
		t.Fatalf("defaults lost: %+v", tu)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	if err := os.WriteFile(path, []byte("moves:\n  stuck_decay: 3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
	if err := os.WriteFile(path, []byte("moves: [oops"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	tu, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if tu.DepositCargo != 950 {
		t.Fatalf("defaults not returned: %+v", tu)
	}
}

func TestDefaultsValid(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestSaveLoadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	want := Defaults()
	want.BotName = "saved"
	want.Forecast.Weight = 42
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestShippedConfigMatchesDefaults(t *testing.T) {
	tu, err := Load(filepath.Join("..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(tu, Defaults()) {
		t.Fatalf("configs/tuning.yaml drifted from Defaults:\n%+v\n%+v", tu, Defaults())
	}
}
