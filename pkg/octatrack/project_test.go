package octatrack

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dijksterhuis/octatools/pkg/codec"
)

func TestDefaultProjectRoundTrip(t *testing.T) {
	b, err := DefaultProject().Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !bytes.HasSuffix(b, []byte("\r\n\r\n############################\r\n\r\n")) {
		t.Errorf("project does not end with the samples footer")
	}

	p, err := DecodeProject(b)
	if err != nil {
		t.Fatalf("DecodeProject() error = %v", err)
	}
	again, _ := p.Encode()
	if !bytes.Equal(again, b) {
		t.Error("re-encoded project differs from the original image")
	}

	meta, err := p.Meta()
	if err != nil {
		t.Fatalf("Meta() error = %v", err)
	}
	if meta.Version != 19 || meta.OSVersion != "R0177     1.40B" {
		t.Errorf("Meta() = %+v", meta)
	}

	slots, err := p.Slots()
	if err != nil {
		t.Fatalf("Slots() error = %v", err)
	}
	if len(slots) != RecorderSlots {
		t.Fatalf("len(Slots()) = %d, want %d", len(slots), RecorderSlots)
	}
	for i, s := range slots {
		if s.Class != SlotRecorder || s.ID != 129+i {
			t.Errorf("slot %d = %s %d, want recorder %d", i, s.Class, s.ID, 129+i)
		}
	}
}

func TestProjectPreservesUnknownLines(t *testing.T) {
	src := strings.Join([]string{
		"[META]",
		"TYPE=OCTATRACK DPS-1 PROJECT",
		"VERSION=19",
		"OS_VERSION=R0177     1.40B",
		"[/META]",
		"",
		"[MYSTERY]",
		"WHAT=IS THIS",
		"[/MYSTERY]",
		"",
		"############################",
		"# Samples",
		"############################",
		"",
		"[SAMPLE]",
		"TYPE=STATIC",
		"SLOT=005",
		"PATH=../AUDIO/kick.wav",
		"TRIM_BARSx100=25",
		"TSMODE=0",
		"LOOPMODE=0",
		"GAIN=48",
		"TRIGQUANTIZATION=-1",
		"[/SAMPLE]",
		"",
	}, "\r\n")

	p, err := DecodeProject([]byte(src))
	if err != nil {
		t.Fatalf("DecodeProject() error = %v", err)
	}
	out, _ := p.Encode()
	if string(out) != src {
		t.Errorf("Encode() = %q, want %q", out, src)
	}

	s, ok, err := p.Slot(SlotStatic, 5)
	if err != nil || !ok {
		t.Fatalf("Slot(static, 5) = %v, %v", ok, err)
	}
	want := SampleSlot{Class: SlotStatic, ID: 5, Path: "../AUDIO/kick.wav", TrimBarsX100: 25, Stretch: StretchOff, Loop: LoopOff, Gain: 48, Quantization: QuantDirect}
	if s != want {
		t.Errorf("Slot() = %+v, want %+v", s, want)
	}
}

func TestProjectVersionCheck(t *testing.T) {
	b, _ := DefaultProject().Encode()
	old := bytes.Replace(b, []byte("VERSION=19"), []byte("VERSION=18"), 1)

	_, err := DecodeProject(old)
	var fe *codec.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("DecodeProject() error = %v, want *FormatError", err)
	}
	if fe.Field != "VERSION" {
		t.Errorf("Field = %q, want %q", fe.Field, "VERSION")
	}
	if !bytes.HasPrefix(old[fe.Offset:], []byte("VERSION=18")) {
		t.Errorf("Offset = %d does not point at the VERSION line", fe.Offset)
	}
}

func TestProjectBadSlot(t *testing.T) {
	b, _ := DefaultProject().Encode()
	bad := bytes.Replace(b, []byte("GAIN=72"), []byte("GAIN=loud"), 1)

	_, err := DecodeProject(bad)
	var fe *codec.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("DecodeProject() error = %v, want *FormatError", err)
	}
	if fe.Field != "GAIN" {
		t.Errorf("Field = %q, want %q", fe.Field, "GAIN")
	}
}

func TestProjectSetSlot(t *testing.T) {
	p := DefaultProject()
	flex := SampleSlot{Class: SlotFlex, ID: 2, Path: "../AUDIO/pad.wav", Stretch: StretchNormal, Loop: LoopNormal, Gain: 48, Quantization: QuantDirect, Tempo: 2880}
	static := SampleSlot{Class: SlotStatic, ID: 10, Path: "../AUDIO/loop.wav", Stretch: StretchBeat, Gain: 40, Quantization: 3}

	for _, s := range []SampleSlot{flex, static} {
		if err := p.SetSlot(s); err != nil {
			t.Fatalf("SetSlot(%s %d) error = %v", s.Class, s.ID, err)
		}
	}

	b, _ := p.Encode()
	reparsed, err := DecodeProject(b)
	if err != nil {
		t.Fatalf("DecodeProject() error = %v", err)
	}
	slots, _ := reparsed.Slots()
	if len(slots) != RecorderSlots+2 {
		t.Fatalf("len(Slots()) = %d, want %d", len(slots), RecorderSlots+2)
	}
	if slots[0] != static || slots[1] != flex {
		t.Errorf("Slots()[:2] = %+v, %+v, want static then flex", slots[0], slots[1])
	}
	if slots[2].Class != SlotRecorder {
		t.Errorf("Slots()[2] = %+v, want first recorder", slots[2])
	}
	if !strings.Contains(string(b), "SLOT=010\r\n") || !strings.Contains(string(b), "BPMx24=2880\r\n") {
		t.Error("encoded project is missing the new slot lines")
	}

	flex.Gain = 60
	if err := reparsed.SetSlot(flex); err != nil {
		t.Fatalf("SetSlot() replace error = %v", err)
	}
	got, _, _ := reparsed.Slot(SlotFlex, 2)
	if got.Gain != 60 {
		t.Errorf("replaced slot gain = %d, want %d", got.Gain, 60)
	}
	if slots, _ := reparsed.Slots(); len(slots) != RecorderSlots+2 {
		t.Errorf("len(Slots()) after replace = %d, want %d", len(slots), RecorderSlots+2)
	}

	if err := reparsed.RemoveSlot(SlotStatic, 10); err != nil {
		t.Fatalf("RemoveSlot() error = %v", err)
	}
	if _, ok, _ := reparsed.Slot(SlotStatic, 10); ok {
		t.Error("Slot() found a removed slot")
	}
	free, _ := reparsed.FreeSlots(SlotStatic)
	if len(free) != SlotCapacity {
		t.Errorf("len(FreeSlots(static)) = %d, want %d", len(free), SlotCapacity)
	}
	free, _ = reparsed.FreeSlots(SlotFlex)
	if len(free) != SlotCapacity-1 || free[0] != 1 || free[1] != 3 {
		t.Errorf("FreeSlots(flex) starts %v, want [1 3 ...]", free[:2])
	}
}

func TestSampleSlotValidate(t *testing.T) {
	tests := []struct {
		name string
		slot SampleSlot
	}{
		{"static id zero", SampleSlot{Class: SlotStatic, ID: 0, Gain: 48, Quantization: QuantDirect}},
		{"flex id too high", SampleSlot{Class: SlotFlex, ID: 129, Gain: 48, Quantization: QuantDirect}},
		{"recorder id", SampleSlot{Class: SlotRecorder, ID: 5, Gain: 48, Quantization: QuantDirect}},
		{"gain", SampleSlot{Class: SlotFlex, ID: 1, Gain: 97, Quantization: QuantDirect}},
		{"tempo", SampleSlot{Class: SlotFlex, ID: 1, Gain: 48, Quantization: QuantDirect, Tempo: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *codec.ValidationError
			if err := tt.slot.Validate(); !errors.As(err, &ve) {
				t.Errorf("Validate() error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestProjectValues(t *testing.T) {
	p := DefaultProject()
	if err := p.SetValue("SETTINGS", "TEMPOx24", "3000"); err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}
	values, err := p.Values("SETTINGS")
	if err != nil {
		t.Fatalf("Values() error = %v", err)
	}
	if values["TEMPOx24"] != "3000" {
		t.Errorf("TEMPOx24 = %q, want %q", values["TEMPOx24"], "3000")
	}
	if _, err := p.Values("NOPE"); err == nil {
		t.Error("Values(NOPE) error = nil, want error")
	}
}

func TestProjectSectionLines(t *testing.T) {
	p := DefaultProject()
	lines, err := p.SectionLines("STATES")
	if err != nil {
		t.Fatalf("SectionLines() error = %v", err)
	}
	if len(lines) != len(defaultStates) || lines[0] != "BANK=0" {
		t.Fatalf("SectionLines(STATES) = %v", lines)
	}

	lines[0] = "BANK=3"
	if err := p.SetSectionLines("STATES", lines[:2]); err != nil {
		t.Fatalf("SetSectionLines() error = %v", err)
	}
	values, _ := p.Values("STATES")
	if len(values) != 2 || values["BANK"] != "3" {
		t.Errorf("Values(STATES) = %v", values)
	}
	if _, err := DecodeProject(mustEncode(t, p)); err != nil {
		t.Errorf("DecodeProject() after SetSectionLines error = %v", err)
	}
}

func mustEncode(t *testing.T, r Record) []byte {
	t.Helper()
	b, err := r.Encode()
	if err != nil {
		t.Fatal(err)
	}
	return b
}
