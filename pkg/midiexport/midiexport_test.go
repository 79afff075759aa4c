package midiexport

import (
	"bytes"
	"testing"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/dijksterhuis/octatools/pkg/octatrack"
)

func testPattern(t *testing.T) *octatrack.Pattern {
	t.Helper()
	p := octatrack.DefaultPattern()
	for _, s := range []int{0, 4, 8, 12} {
		p.AudioTracks[0].Masks.Trigger.Set(s, true)
	}
	p.AudioTracks[5].Masks.Trigger.Set(15, true)
	p.MidiTracks[2].Masks.Trigger.Set(2, true)
	if err := p.SetBPM(95); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestExportTracks(t *testing.T) {
	data, err := NewExporter().Export(testPattern(t), nil)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	if got, want := len(s.Tracks), 1+2*octatrack.Tracks; got != want {
		t.Fatalf("tracks = %d, want %d", got, want)
	}

	notes := func(track smf.Track) (n int, key uint8) {
		for _, ev := range track {
			if m := ev.Message; len(m) >= 3 && m[0]&0xF0 == 0x90 && m[2] > 0 {
				n++
				key = m[1]
			}
		}
		return
	}
	tests := []struct {
		name  string
		track int
		count int
		key   uint8
	}{
		{"audio 1", 1, 4, AudioNote},
		{"audio 2", 2, 0, 0},
		{"audio 6", 6, 1, AudioNote},
		{"midi 3", 1 + octatrack.Tracks + 2, 1, 48},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, key := notes(s.Tracks[tt.track])
			if n != tt.count || key != tt.key {
				t.Errorf("notes = %d (key %d), want %d (key %d)", n, key, tt.count, tt.key)
			}
		})
	}
}

func TestExportImport(t *testing.T) {
	e := NewExporter()
	want := testPattern(t)
	data, err := e.Export(want, nil)
	if err != nil {
		t.Fatal(err)
	}

	got := octatrack.DefaultPattern()
	got.AudioTracks[7].Masks.Trigger.Set(1, true)
	if err := e.Import(data, got); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	for i := range want.AudioTracks {
		if got.AudioTracks[i].Masks.Trigger != want.AudioTracks[i].Masks.Trigger {
			t.Errorf("audio track %d trigs = %v, want %v", i+1, got.AudioTracks[i].Masks.Trigger, want.AudioTracks[i].Masks.Trigger)
		}
		if got.MidiTracks[i].Masks.Trigger != want.MidiTracks[i].Masks.Trigger {
			t.Errorf("midi track %d trigs = %v, want %v", i+1, got.MidiTracks[i].Masks.Trigger, want.MidiTracks[i].Masks.Trigger)
		}
	}
	if bpm := got.BPM(); bpm < 94.9 || bpm > 95.1 {
		t.Errorf("BPM() = %v, want 95", bpm)
	}
}

func TestExportErrors(t *testing.T) {
	if _, err := NewExporter().Export(nil, nil); err == nil {
		t.Error("Export(nil) error = nil, want error")
	}
	if err := NewExporter().Import([]byte("not midi"), octatrack.DefaultPattern()); err == nil {
		t.Error("Import() error = nil, want error")
	}
}

func TestTrackLength(t *testing.T) {
	p := octatrack.DefaultPattern()
	tests := []struct {
		name   string
		mode   uint8
		master uint8
		length uint8
		want   int
	}{
		{"master", 0, 32, 8, 32},
		{"per track", 1, 32, 8, 8},
		{"unset master", 0, 0, 8, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.Scale.Mode = tt.mode
			p.Scale.MasterLength = tt.master
			if got := trackLength(tt.length, p); got != tt.want {
				t.Errorf("trackLength() = %v, want %v", got, tt.want)
			}
		})
	}
}
