package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"testing/fstest"
)

func demoFS() fstest.MapFS {
	return fstest.MapFS{
		"programs/star.tc":   {Data: []byte("REM @title Turtle Star\nREPEAT 5 [FD 100 RT 144]\n")},
		"programs/hello.TC":  {Data: []byte("10 ' @title \"Hello\"\n20 ' @author Ann\nT:hi\n")},
		"programs/readme.md": {Data: []byte("not a program")},
		"programs/sub/x.tc":  {Data: []byte("T:nested")},
	}
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry(demoFS(), "programs", nil)
	programs := r.Programs()
	if len(programs) != 2 {
		t.Fatalf("expected 2 programs, got %d: %+v", len(programs), programs)
	}
	if programs[0].Name != "hello" || programs[1].Name != "star" {
		t.Errorf("names = %q, %q", programs[0].Name, programs[1].Name)
	}
	if programs[0].DisplayName() != "Hello" || programs[0].Metadata.Author != "Ann" {
		t.Errorf("metadata = %+v", programs[0].Metadata)
	}
	if programs[1].DisplayName() != "Turtle Star" || !programs[1].IsEmbedded {
		t.Errorf("program = %+v", programs[1])
	}
}

func TestNewRegistry_NoDirectory(t *testing.T) {
	r := NewRegistry(demoFS(), "missing", nil)
	if len(r.Programs()) != 0 {
		t.Error("expected no programs")
	}
	if _, _, err := NewRegistry(nil, "", nil).Select(); !errors.Is(err, ErrNoPrograms) {
		t.Errorf("Select() error = %v", err)
	}
}

func TestLoadExternal(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "mine.tc")
	if err := os.WriteFile(file, []byte("REM @about test program\nT:ok\n"), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(demoFS(), "programs", nil)
	if err := r.LoadExternal(file); err != nil {
		t.Fatalf("LoadExternal() error = %v", err)
	}

	p, needsSelection, err := r.Select()
	if err != nil || needsSelection {
		t.Fatalf("Select() = %v, %v, %v", p, needsSelection, err)
	}
	if p.Name != "mine" || p.IsEmbedded || p.DisplayName() != "mine" || p.Metadata.About != "test program" {
		t.Errorf("program = %+v", p)
	}
	if p.BaseDir() != tmpDir {
		t.Errorf("BaseDir() = %q, want %q", p.BaseDir(), tmpDir)
	}

	s, err := r.Source(p)
	if err != nil {
		t.Fatalf("Source() error = %v", err)
	}
	if s.Content != "REM @about test program\nT:ok\n" {
		t.Errorf("content = %q", s.Content)
	}
}

func TestLoadExternal_Errors(t *testing.T) {
	r := NewRegistry(nil, "", nil)
	if err := r.LoadExternal("/nonexistent/file.tc"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}
	if err := r.LoadExternal(t.TempDir()); err == nil {
		t.Error("expected error for directory")
	}
}

func TestSelect_MultiplePrograms(t *testing.T) {
	r := NewRegistry(demoFS(), "programs", nil)
	p, needsSelection, err := r.Select()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !needsSelection || p != nil {
		t.Errorf("Select() = %v, %v", p, needsSelection)
	}

	programs := r.Programs()
	s, err := r.Source(&programs[1])
	if err != nil {
		t.Fatalf("Source() error = %v", err)
	}
	if s.FileName != "star.tc" || programs[1].BaseDir() != "" {
		t.Errorf("script = %+v", s)
	}
}

func TestExtractMetadata(t *testing.T) {
	content := `REM @title First
rem @title Second
' @note one
100 REM @note two
REM plain comment
T:@title not a comment
REM @author
`
	got := ExtractMetadata(content)
	want := &Metadata{Title: "First", Notes: []string{"one", "two"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractMetadata() = %+v, want %+v", got, want)
	}
}
