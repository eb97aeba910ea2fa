package mapping

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "locations.yaml")
	content := `genericToReal:
  SiteX: Exeter Campus
ipRangeMapping:
  "10.99.": Mapped Range
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.GenericToReal["SiteX"] != "Exeter Campus" {
		t.Errorf("GenericToReal[SiteX] = %q, want %q", m.GenericToReal["SiteX"], "Exeter Campus")
	}
	if m.IPRangeMapping["10.99."] != "Mapped Range" {
		t.Errorf("IPRangeMapping[10.99.] = %q, want %q", m.IPRangeMapping["10.99."], "Mapped Range")
	}
}

func TestLoadMissingFileIsNil(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v, want nil for missing file", err)
	}
	if m != nil {
		t.Errorf("Load() = %+v, want nil", m)
	}
}

func TestLoadEmptyPathIsNil(t *testing.T) {
	m, err := Load("")
	if err != nil || m != nil {
		t.Errorf("Load(\"\") = %v, %v, want nil, nil", m, err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("genericToReal: [not a map"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() error = nil, want parse error")
	}
}
