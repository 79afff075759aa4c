package octatrack

import (
	"bytes"
	"errors"
	"testing"

	"github.com/dijksterhuis/octatools/pkg/codec"
)

func TestLayoutSizes(t *testing.T) {
	tests := []struct {
		name string
		got  int
		want int
	}{
		{"audio track trigs", audioTrackTrigsLayout.Size(), AudioTrackTrigsSize},
		{"midi track trigs", midiTrackTrigsLayout.Size(), MidiTrackTrigsSize},
		{"pattern", patternLayout.Size(), PatternSize},
		{"part", partLayout.Size(), PartSize},
		{"bank", bankLayout.Size(), BankSize},
		{"arrangement", arrangementLayout.Size(), ArrangementSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("Size() = %d, want %d", tt.got, tt.want)
			}
		})
	}
}

func TestTrigMask(t *testing.T) {
	var m TrigMask
	m.Set(0, true)
	m.Set(9, true)
	m.Set(63, true)

	want := TrigMask{0x80, 0, 0, 0, 0, 0, 0x02, 0x01}
	if m != want {
		t.Errorf("mask = % X, want % X", m[:], want[:])
	}
	for _, step := range []int{0, 9, 63} {
		if !m.Step(step) {
			t.Errorf("Step(%d) = false, want true", step)
		}
	}
	if m.Step(1) {
		t.Error("Step(1) = true, want false")
	}
	m.Set(9, false)
	if m.Step(9) {
		t.Error("Step(9) = true after clearing, want false")
	}
}

func TestDefaultPattern(t *testing.T) {
	p := DefaultPattern()
	b, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(b[:4]) != "PTRN" {
		t.Errorf("header = %q, want PTRN", b[:4])
	}
	if string(b[8:12]) != "TRAC" {
		t.Errorf("first track header = %q, want TRAC", b[8:12])
	}
	midi := 8 + Tracks*AudioTrackTrigsSize
	if string(b[midi:midi+4]) != "MTRA" {
		t.Errorf("first midi track header = %q, want MTRA", b[midi:midi+4])
	}
	tail := b[len(b)-12:]
	want := []byte{0, 16, 2, 16, 2, 0, 0, 0, 0, 0, 11, 64}
	if !bytes.Equal(tail, want) {
		t.Errorf("pattern tail = %v, want %v", tail, want)
	}
	if p.BPM() != 120 {
		t.Errorf("BPM() = %v, want %v", p.BPM(), 120)
	}
	if err := p.SetBPM(140); err != nil {
		t.Fatalf("SetBPM() error = %v", err)
	}
	if p.BPM() != 140 {
		t.Errorf("BPM() = %v, want %v", p.BPM(), 140)
	}
}

func TestDefaultPart(t *testing.T) {
	b, err := DefaultPart(2).Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	tests := []struct {
		name   string
		offset int
		want   byte
	}{
		{"part id", 8, 2},
		{"fx1", 9, 4},
		{"fx2", 17, 8},
		{"scene a", 25, 0},
		{"scene b", 26, 8},
		{"main volume", 27, 108},
		{"cue volume", 28, 108},
		{"static machine param", 51, 64},
		{"pickup machine param", 51 + 24 + 1, 2},
		{"track lfo value", 291, 32},
		{"static setup", 483, 1},
		{"track 1 static slot", 723, 0},
		{"track 1 recorder slot", 727, 128},
		{"track 2 flex slot", 723 + 5 + 1, 1},
		{"track 2 recorder slot", 723 + 5 + 4, 129},
		{"amp setup", 763 + 6, 1},
		{"midi values", 1003, 48},
		{"midi cc setup", 1259 + 24, 71},
		{"recorder setup", 1547, 1},
		{"scene lock", 1643, 255},
		{"scene xlv", 5739, 255},
		{"audio lfo", 5899, 0},
		{"arp mute", 6187, 255},
		{"arp seq", 6203, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if b[tt.offset] != tt.want {
				t.Errorf("byte %d = %d, want %d", tt.offset, b[tt.offset], tt.want)
			}
		})
	}
}

func TestDefaultBankRoundTrip(t *testing.T) {
	b, err := DefaultBank().Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if len(b) != BankSize {
		t.Fatalf("len(Encode()) = %d, want %d", len(b), BankSize)
	}
	names := b[BankSize-2-28 : BankSize-2]
	want := []byte("ONE\x00\x00\x00\x00TWO\x00\x00\x00\x00THREE\x00\x00FOUR\x00\x00\x00")
	if !bytes.Equal(names, want) {
		t.Errorf("part names = %q, want %q", names, want)
	}

	decoded, err := DecodeBank(b)
	if err != nil {
		t.Fatalf("DecodeBank() error = %v", err)
	}
	again, err := decoded.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !bytes.Equal(again, b) {
		t.Error("re-encoded bank differs from the original image")
	}
	if decoded.PartName(2) != "THREE" {
		t.Errorf("PartName(2) = %q, want %q", decoded.PartName(2), "THREE")
	}
}

func TestBankIsDefault(t *testing.T) {
	b := DefaultBank()
	if ok, err := b.IsDefault(); err != nil || !ok {
		t.Fatalf("IsDefault() = %v, %v, want true", ok, err)
	}

	b.Checksum = 0xBEEF
	if ok, _ := b.IsDefault(); !ok {
		t.Error("IsDefault() = false with only the checksum changed, want true")
	}

	b.Patterns[3].AudioTracks[0].Plocks[5].FlexSlot = 2
	if ok, _ := b.IsDefault(); ok {
		t.Error("IsDefault() = true after editing a p-lock, want false")
	}
}

func TestDecodeBankErrors(t *testing.T) {
	b, err := DefaultBank().Encode()
	if err != nil {
		t.Fatal(err)
	}
	// second pattern's first audio track header
	off := 22 + PatternSize + 8
	b[off] = 'X'

	_, err = DecodeBank(b)
	var fe *codec.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("DecodeBank() error = %v, want *FormatError", err)
	}
	if fe.Offset != off {
		t.Errorf("Offset = %d, want %d", fe.Offset, off)
	}
	if fe.Field != "patterns[1].audio_tracks[0].header" {
		t.Errorf("Field = %q, want %q", fe.Field, "patterns[1].audio_tracks[0].header")
	}
}

func TestSlotRefsAndRemap(t *testing.T) {
	b := DefaultBank()
	b.Patterns[0].AudioTracks[1].Plocks[0].StaticSlot = 4
	b.Patterns[2].AudioTracks[7].Plocks[63].FlexSlot = 9

	var plocks int
	for _, r := range b.SlotRefs() {
		if r.Where == "pattern 1 track 2 step 1" && r.Class == SlotStatic && r.Slot == 4 {
			plocks++
		}
		if r.Where == "pattern 3 track 8 step 64" && r.Class == SlotFlex && r.Slot == 9 {
			plocks++
		}
	}
	if plocks != 2 {
		t.Errorf("SlotRefs() found %d p-lock references, want 2", plocks)
	}
	// 2 p-locks plus static and flex for 8 tracks in 8 parts
	if got := len(b.SlotRefs()); got != 2+2*Tracks*2*PartsPerBank {
		t.Errorf("len(SlotRefs()) = %d, want %d", got, 2+2*Tracks*2*PartsPerBank)
	}

	b.RemapSlots(SlotFlex, func(v uint8) uint8 { return v + 10 }, func(v uint8) uint8 { return 100 })
	if got := b.Patterns[2].AudioTracks[7].Plocks[63].FlexSlot; got != 19 {
		t.Errorf("remapped p-lock = %d, want %d", got, 19)
	}
	if got := b.Patterns[0].AudioTracks[0].Plocks[0].FlexSlot; got != NoSlot {
		t.Errorf("unset p-lock = %d, want %d", got, NoSlot)
	}
	if got := b.SavedParts[3].Slots[5].Flex; got != 100 {
		t.Errorf("remapped machine slot = %d, want %d", got, 100)
	}
	if got := b.Parts[0].Slots[5].Static; got != 5 {
		t.Errorf("static machine slot = %d, want unchanged %d", got, 5)
	}
}

func TestSetPartName(t *testing.T) {
	b := DefaultBank()
	if err := b.SetPartName(0, "DRUMS"); err != nil {
		t.Fatalf("SetPartName() error = %v", err)
	}
	if b.PartName(0) != "DRUMS" {
		t.Errorf("PartName(0) = %q, want %q", b.PartName(0), "DRUMS")
	}
	if err := b.SetPartName(0, "TOOLONGNAME"); err == nil {
		t.Error("SetPartName() error = nil for 11 characters, want error")
	}
}
