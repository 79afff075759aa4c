package transcode

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dijksterhuis/octatools/pkg/octatrack"
)

func encode(t *testing.T, r octatrack.Record) []byte {
	t.Helper()
	b, err := r.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return b
}

func TestRoundTrip(t *testing.T) {
	attrs := octatrack.DefaultSampleAttributes()
	slice, _ := octatrack.NewSlice(0, 4410, octatrack.LoopDisabled)
	if err := attrs.SetSlices([]octatrack.Slice{slice}); err != nil {
		t.Fatal(err)
	}
	arr := octatrack.DefaultArrangement()
	if err := arr.Current.AppendRow(octatrack.ReminderRow{Text: "BREAK"}); err != nil {
		t.Fatal(err)
	}
	project := octatrack.DefaultProject()
	if err := project.SetSlot(octatrack.SampleSlot{
		Class: octatrack.SlotStatic, ID: 7, Path: "../AUDIO/hat.wav",
		Stretch: octatrack.StretchOff, Loop: octatrack.LoopOff, Gain: 50, Quantization: octatrack.QuantDirect, Tempo: 3000,
	}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		typ    octatrack.FileType
		record octatrack.Record
		format Format
	}{
		{"attributes json", octatrack.FileAttributes, attrs, FormatJSON},
		{"attributes yaml", octatrack.FileAttributes, attrs, FormatYAML},
		{"arrangement json", octatrack.FileArrangement, arr, FormatJSON},
		{"arrangement yaml", octatrack.FileArrangement, arr, FormatYAML},
		{"bank json", octatrack.FileBank, octatrack.DefaultBank(), FormatJSON},
		{"project json", octatrack.FileProject, project, FormatJSON},
		{"project yaml", octatrack.FileProject, project, FormatYAML},
		{"default project yaml", octatrack.FileProject, octatrack.DefaultProject(), FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Marshal(tt.record, tt.format)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			back, err := Unmarshal(tt.typ, doc, tt.format)
			if err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !bytes.Equal(encode(t, back), encode(t, tt.record)) {
				t.Error("record changed through its document")
			}
		})
	}
}

func TestMarshalNamesModes(t *testing.T) {
	doc, err := Marshal(octatrack.DefaultSampleAttributes(), FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"stretch: normal", "loop: \"off\"", "quantization: direct"} {
		if !strings.Contains(string(doc), want) {
			t.Errorf("Marshal() is missing %q", want)
		}
	}
}

func TestUnmarshalRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		typ    octatrack.FileType
		doc    string
		format Format
	}{
		{"gain out of range", octatrack.FileAttributes, `{"gain": 97}`, FormatJSON},
		{"unknown loop mode", octatrack.FileAttributes, `{"loop": "forever"}`, FormatJSON},
		{"old project", octatrack.FileProject, "meta:\n  version: 18\n", FormatYAML},
		{"broken json", octatrack.FileBank, `{"header": [`, FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unmarshal(tt.typ, []byte(tt.doc), tt.format); err == nil {
				t.Error("Unmarshal() error = nil, want error")
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{"json", FormatJSON, true},
		{"YAML", FormatYAML, true},
		{"yml", FormatYAML, true},
		{"toml", "", false},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if got != tt.want || (err == nil) != tt.ok {
			t.Errorf("ParseFormat(%q) = %v, %v", tt.in, got, err)
		}
	}
}
