package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "good.yaml", createValidConfig())
	bad := createValidConfig()
	bad.Symbols = []string{"A", "A", "B"}
	writeConfigFile(t, dir, "bad.json", bad)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)

	tests := []struct {
		file      string
		wantValid bool
		wantText  string
	}{
		{"good.yaml", true, "3 pairs (6 cards)"},
		{"bad.json", false, "duplicate symbol"},
		{"notes.txt", false, "Unsupported extension"},
		{"missing.json", false, "failed to read"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			result := ValidateFile(filepath.Join(dir, tt.file))
			if result.Valid != tt.wantValid {
				t.Fatalf("Expected valid=%v, got %+v", tt.wantValid, result)
			}
			lines := append(result.Errors, result.Notes...)
			if !strings.Contains(strings.Join(lines, "\n"), tt.wantText) {
				t.Errorf("Expected %q in %v", tt.wantText, lines)
			}
		})
	}
}

func TestValidateDir(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "z.json", createValidConfig())
	writeConfigFile(t, dir, "a.yml", createValidConfig())

	results, err := ValidateDir(dir)
	if err != nil {
		t.Fatalf("ValidateDir failed: %v", err)
	}
	if len(results) != 2 || results[0].File != "a.yml" || results[1].File != "z.json" {
		t.Errorf("Expected sorted results, got %+v", results)
	}

	if _, err := ValidateDir(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for missing directory")
	}
}

func TestAnalyze(t *testing.T) {
	a := Analyze(createValidConfig())

	if a.Cards != 6 || a.PerfectMoves != 3 || a.SymbolPool != 4 {
		t.Errorf("Unexpected analysis: %+v", a)
	}
	if a.ScoreBound != 970 {
		t.Errorf("Expected score bound 970, got %d", a.ScoreBound)
	}
	if a.Deals != 4 {
		t.Errorf("Expected 4 symbol sets, got %d", a.Deals)
	}
}

func TestBinomial(t *testing.T) {
	tests := []struct{ n, k, want int }{
		{12, 8, 495},
		{4, 3, 4},
		{5, 0, 1},
		{3, 4, 0},
	}
	for _, tt := range tests {
		if got := binomial(tt.n, tt.k); got != tt.want {
			t.Errorf("binomial(%d, %d) = %d, want %d", tt.n, tt.k, got, tt.want)
		}
	}
	if got := binomial(1000, 500); got <= 0 {
		t.Errorf("Expected saturation instead of overflow, got %d", got)
	}
}
