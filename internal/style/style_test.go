package style

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alfredjeanlab/atlasgraph/internal/model"
)

func TestPalette_Defaults(t *testing.T) {
	p := DefaultPalette()
	if got := p.Color("EC2"); got != "#f97316" {
		t.Errorf("Color(EC2) = %q", got)
	}
	if got := p.Color("NoSuchType"); got != DefaultNodeColor {
		t.Errorf("Color(unknown) = %q, want %q", got, DefaultNodeColor)
	}
	if got := p.TypeLabel("SG"); got != "Security Group" {
		t.Errorf("TypeLabel(SG) = %q", got)
	}
	if got := p.TypeLabel("MY_THING"); got != "MY THING" {
		t.Errorf("TypeLabel(MY_THING) = %q", got)
	}
	if got := p.TypeLabel(""); got != "Unknown" {
		t.Errorf("TypeLabel(\"\") = %q", got)
	}
}

func TestPalette_NilUsesDefaults(t *testing.T) {
	var p *Palette
	if got := p.Color("VPC"); got != "#8b5cf6" {
		t.Errorf("nil palette Color(VPC) = %q", got)
	}
}

func TestLoadPalette(t *testing.T) {
	path := filepath.Join(t.TempDir(), "palette.toml")
	content := `
[categories.EC2]
color = "#000000"

[categories.Bucket]
color = "#111111"
label = "Bucket"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadPalette(path)
	if err != nil {
		t.Fatalf("LoadPalette: %v", err)
	}
	if got := p.Color("EC2"); got != "#000000" {
		t.Errorf("Color(EC2) = %q, want override", got)
	}
	if got := p.TypeLabel("EC2"); got != "EC2 Instance" {
		t.Errorf("TypeLabel(EC2) = %q, want default label kept", got)
	}
	if got := p.TypeLabel("Bucket"); got != "Bucket" {
		t.Errorf("TypeLabel(Bucket) = %q", got)
	}
	if got := p.Color("VPC"); got != "#8b5cf6" {
		t.Errorf("Color(VPC) = %q, want default", got)
	}
}

func TestLoadPalette_Errors(t *testing.T) {
	if _, err := LoadPalette(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[categories\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPalette(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestCaption(t *testing.T) {
	if got := Caption(model.GraphNode{ID: "i-1", Label: "web"}); got != "web" {
		t.Errorf("Caption = %q", got)
	}
	if got := Caption(model.GraphNode{ID: "i-1"}); got != "i-1" {
		t.Errorf("Caption = %q", got)
	}
}
