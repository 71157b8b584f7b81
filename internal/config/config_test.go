package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsForUnsetFields(t *testing.T) {
	path := writeTempConfig(t, `
chain_id: jackal-1
apis: ["https://api.example.com"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BatchSize != defaultBatchSize {
		t.Fatalf("BatchSize = %d, want default %d", cfg.BatchSize, defaultBatchSize)
	}
	if cfg.StepSize != defaultStepSize {
		t.Fatalf("StepSize = %d, want default %d", cfg.StepSize, defaultStepSize)
	}
	if cfg.DebugAddr != defaultDebugAddr {
		t.Fatalf("DebugAddr = %q, want default %q", cfg.DebugAddr, defaultDebugAddr)
	}
}

func TestLoadHonorsExplicitValues(t *testing.T) {
	path := writeTempConfig(t, `
chain_id: jackal-1
batch_size: 5
step_size: 7
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BatchSize != 5 || cfg.StepSize != 7 {
		t.Fatalf("cfg = %+v, want batch_size=5 step_size=7", cfg)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := &Config{ChainID: "original", BatchSize: 20}

	t.Setenv("CHAIN_ID", "jackal-1")
	t.Setenv("CHAIN_APIS", "https://a.example.com, https://b.example.com")
	t.Setenv("BATCH_SIZE", "50")
	t.Setenv("OBJECT_STORE_STAGE_TO_DISK", "true")

	cfg.ApplyEnvOverrides()

	if cfg.ChainID != "jackal-1" {
		t.Fatalf("ChainID = %q, want jackal-1", cfg.ChainID)
	}
	if len(cfg.APIs) != 2 || cfg.APIs[0] != "https://a.example.com" || cfg.APIs[1] != "https://b.example.com" {
		t.Fatalf("APIs = %v", cfg.APIs)
	}
	if cfg.BatchSize != 50 {
		t.Fatalf("BatchSize = %d, want 50", cfg.BatchSize)
	}
	if !cfg.ObjectStoreStageToDisk {
		t.Fatal("ObjectStoreStageToDisk = false, want true")
	}
}

func TestLoadHonorsObjectStoreStageToDisk(t *testing.T) {
	path := writeTempConfig(t, `
chain_id: jackal-1
object_store_stage_to_disk: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.ObjectStoreStageToDisk {
		t.Fatal("ObjectStoreStageToDisk = false, want true")
	}
}

func TestApplyEnvOverridesLeavesUnsetVarsAlone(t *testing.T) {
	cfg := &Config{ChainID: "jackal-1", BatchSize: 20}
	cfg.ApplyEnvOverrides()
	if cfg.ChainID != "jackal-1" || cfg.BatchSize != 20 {
		t.Fatalf("cfg mutated with no env vars set: %+v", cfg)
	}
}

func TestSplitListTrimsAndDropsEmpty(t *testing.T) {
	got := splitList(" a, b ,, c")
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("splitList = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("splitList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDescriptorConvertsSecondsToDuration(t *testing.T) {
	cfg := &Config{ChainID: "jackal-1", TimeBetweenBlocksSec: 1.5}
	d := cfg.Descriptor()
	if d.BlockInterval.Seconds() != 1.5 {
		t.Fatalf("BlockInterval = %v, want 1.5s", d.BlockInterval)
	}
}
