package octatrack

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		filename string
		want     FileType
	}{
		{"bank01.work", FileBank},
		{"BANK16.strd", FileBank},
		{"bank17.work", FileUnknown},
		{"arr08.work", FileArrangement},
		{"arr09.work", FileUnknown},
		{"project.work", FileProject},
		{"set/project.strd", FileProject},
		{"AUDIO/kick.ot", FileAttributes},
		{"kick.wav", FileUnknown},
		{"markers.work", FileUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := DetectFileType(tt.filename); got != tt.want {
				t.Errorf("DetectFileType(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestDetectFileTypeFromContent(t *testing.T) {
	bank, _ := DefaultBank().Encode()
	arr, _ := DefaultArrangement().Encode()
	proj, _ := DefaultProject().Encode()
	ot, _ := DefaultSampleAttributes().Encode()

	tests := []struct {
		name string
		data []byte
		want FileType
	}{
		{"bank", bank, FileBank},
		{"arrangement", arr, FileArrangement},
		{"project", proj, FileProject},
		{"attributes", ot, FileAttributes},
		{"empty", nil, FileUnknown},
		{"riff", []byte("RIFF\x00\x00\x00\x00WAVE"), FileUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFileTypeFromContent(tt.data); got != tt.want {
				t.Errorf("DetectFileTypeFromContent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseFileType(t *testing.T) {
	if got, err := ParseFileType(" Bank "); err != nil || got != FileBank {
		t.Errorf("ParseFileType(Bank) = %v, %v", got, err)
	}
	if _, err := ParseFileType("pattern"); err == nil {
		t.Error("ParseFileType(pattern) error = nil, want error")
	}
}

func TestCreateProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "SET", "PROJ")
	if err := CreateProject(dir, false); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if want := 1 + BanksPerProject + ArrangementsPerProject; len(entries) != want {
		t.Errorf("CreateProject() wrote %d files, want %d", len(entries), want)
	}

	b, err := ReadBankFile(filepath.Join(dir, BankFileName(16)))
	if err != nil {
		t.Fatalf("ReadBankFile() error = %v", err)
	}
	if ok, _ := b.IsDefault(); !ok {
		t.Error("bank16.work is not the default bank")
	}
	if _, err := ReadArrangementFile(filepath.Join(dir, "arr01.work")); err != nil {
		t.Errorf("ReadArrangementFile() error = %v", err)
	}
	r, err := ReadFile(filepath.Join(dir, ProjectFileName))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if _, ok := r.(*Project); !ok {
		t.Errorf("ReadFile(project.work) = %T, want *Project", r)
	}

	if err := CreateProject(dir, false); err == nil {
		t.Error("CreateProject() over an existing project error = nil, want error")
	}
	if err := CreateProject(dir, true); err != nil {
		t.Errorf("CreateProject(force) error = %v", err)
	}
}

func TestReadFileWrapsDecodeErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank01.work")
	if err := os.WriteFile(path, []byte("FORM"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(path); err == nil {
		t.Error("ReadFile() of a truncated bank error = nil, want error")
	}
}

func TestAttributesPath(t *testing.T) {
	if got := AttributesPath("AUDIO/loop.wav"); got != "AUDIO/loop.ot" {
		t.Errorf("AttributesPath() = %q, want %q", got, "AUDIO/loop.ot")
	}
}
