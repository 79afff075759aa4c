package octatrack

import (
	"github.com/dijksterhuis/octatools/pkg/codec"
)

// Pattern constants
const (
	PatternSize         = 36588
	AudioTrackTrigsSize = 2338
	MidiTrackTrigsSize  = 2233
	Tracks              = 8
	Steps               = 64
	NoSlot              = 255
)

var (
	patternHeader    = [8]byte{0x50, 0x54, 0x52, 0x4E, 0x00, 0x00, 0x00, 0x00}
	audioTrackHeader = [4]byte{0x54, 0x52, 0x41, 0x43}
	midiTrackHeader  = [4]byte{0x4D, 0x54, 0x52, 0x41}
)

// TrigMask is a 64-step bit mask stored last half-page first
type TrigMask [8]byte

// Step reports whether step (0-63) is set
func (m TrigMask) Step(step int) bool {
	if step < 0 || step >= Steps {
		return false
	}
	return m[7-step/8]&(1<<(step%8)) != 0
}

// Set switches step (0-63) on or off
func (m *TrigMask) Set(step int, on bool) {
	if step < 0 || step >= Steps {
		return
	}
	bit := byte(1 << (step % 8))
	if on {
		m[7-step/8] |= bit
	} else {
		m[7-step/8] &^= bit
	}
}

// Steps returns all 64 step states in playing order
func (m TrigMask) Steps() [Steps]bool {
	var out [Steps]bool
	for i := range out {
		out[i] = m.Step(i)
	}
	return out
}

// TrackSettings are the per-track pattern settings
type TrackSettings struct {
	StartSilent uint8 `json:"start_silent" yaml:"start_silent"`
	PlaysFree   uint8 `json:"plays_free" yaml:"plays_free"`
	TrigMode    uint8 `json:"trig_mode" yaml:"trig_mode"`
	TrigQuant   uint8 `json:"trig_quant" yaml:"trig_quant"`
	Oneshot     uint8 `json:"oneshot" yaml:"oneshot"`
}

func defaultTrackSettings() TrackSettings {
	return TrackSettings{StartSilent: 255}
}

var trackSettingsLayout = codec.NewLayout("track settings",
	codec.Uint8("start_silent", func(s *TrackSettings) *uint8 { return &s.StartSilent }),
	codec.Uint8("plays_free", func(s *TrackSettings) *uint8 { return &s.PlaysFree }),
	codec.Uint8("trig_mode", func(s *TrackSettings) *uint8 { return &s.TrigMode }),
	codec.Uint8("trig_quant", func(s *TrackSettings) *uint8 { return &s.TrigQuant }),
	codec.Uint8("oneshot", func(s *TrackSettings) *uint8 { return &s.Oneshot }),
)

// AudioPlock is one trig's parameter locks on an audio track.
// Page values of 255 mean the parameter is not locked.
type AudioPlock struct {
	Machine    [6]byte `json:"machine" yaml:"machine"`
	LFO        [6]byte `json:"lfo" yaml:"lfo"`
	Amp        [6]byte `json:"amp" yaml:"amp"`
	FX1        [6]byte `json:"fx1" yaml:"fx1"`
	FX2        [6]byte `json:"fx2" yaml:"fx2"`
	StaticSlot uint8   `json:"static_slot" yaml:"static_slot"`
	FlexSlot   uint8   `json:"flex_slot" yaml:"flex_slot"`
}

func defaultAudioPlock() AudioPlock {
	var p AudioPlock
	for _, page := range []*[6]byte{&p.Machine, &p.LFO, &p.Amp, &p.FX1, &p.FX2} {
		*page = [6]byte{255, 255, 255, 255, 255, 255}
	}
	p.StaticSlot = NoSlot
	p.FlexSlot = NoSlot
	return p
}

var audioPlockLayout = codec.NewLayout("audio plock",
	codec.Bytes("machine", 6, func(p *AudioPlock) []byte { return p.Machine[:] }),
	codec.Bytes("lfo", 6, func(p *AudioPlock) []byte { return p.LFO[:] }),
	codec.Bytes("amp", 6, func(p *AudioPlock) []byte { return p.Amp[:] }),
	codec.Bytes("fx1", 6, func(p *AudioPlock) []byte { return p.FX1[:] }),
	codec.Bytes("fx2", 6, func(p *AudioPlock) []byte { return p.FX2[:] }),
	codec.Uint8("static_slot", func(p *AudioPlock) *uint8 { return &p.StaticSlot }),
	codec.Uint8("flex_slot", func(p *AudioPlock) *uint8 { return &p.FlexSlot }),
)

// AudioTrigMasks hold the trig types placed on an audio track
type AudioTrigMasks struct {
	Trigger  TrigMask `json:"trigger" yaml:"trigger"`
	Trigless TrigMask `json:"trigless" yaml:"trigless"`
	Plock    TrigMask `json:"plock" yaml:"plock"`
	Oneshot  TrigMask `json:"oneshot" yaml:"oneshot"`
	Recorder [32]byte `json:"recorder" yaml:"recorder"`
	Swing    TrigMask `json:"swing" yaml:"swing"`
	Slide    TrigMask `json:"slide" yaml:"slide"`
}

// AudioTrackTrigs is one audio track's trig and parameter-lock table within a pattern
type AudioTrackTrigs struct {
	Header         [4]byte           `json:"header" yaml:"header"`
	Unknown1       [4]byte           `json:"unknown_1" yaml:"unknown_1"`
	TrackID        uint8             `json:"track_id" yaml:"track_id"`
	Masks          AudioTrigMasks    `json:"masks" yaml:"masks"`
	Length         uint8             `json:"length" yaml:"length"`
	Scale          uint8             `json:"scale" yaml:"scale"`
	SwingAmount    uint8             `json:"swing_amount" yaml:"swing_amount"`
	Settings       TrackSettings     `json:"settings" yaml:"settings"`
	Unknown2       uint8             `json:"unknown_2" yaml:"unknown_2"`
	Plocks         [Steps]AudioPlock `json:"plocks" yaml:"plocks"`
	Unknown3       [64]byte          `json:"unknown_3" yaml:"unknown_3"`
	TrigConditions [128]byte         `json:"trig_conditions" yaml:"trig_conditions"`
}

func defaultAudioTrackTrigs(id uint8) AudioTrackTrigs {
	t := AudioTrackTrigs{
		Header:   audioTrackHeader,
		TrackID:  id,
		Length:   16,
		Scale:    2,
		Settings: defaultTrackSettings(),
	}
	t.Masks.Swing = TrigMask{170, 170, 170, 170, 170, 170, 170, 170}
	for i := range t.Plocks {
		t.Plocks[i] = defaultAudioPlock()
	}
	return t
}

var audioTrackTrigsLayout = codec.NewLayout("audio track trigs",
	codec.Magic("header", audioTrackHeader[:], func(t *AudioTrackTrigs) []byte { return t.Header[:] }),
	codec.Bytes("unknown_1", 4, func(t *AudioTrackTrigs) []byte { return t.Unknown1[:] }),
	codec.Uint8("track_id", func(t *AudioTrackTrigs) *uint8 { return &t.TrackID }),
	codec.Bytes("trigger", 8, func(t *AudioTrackTrigs) []byte { return t.Masks.Trigger[:] }),
	codec.Bytes("trigless", 8, func(t *AudioTrackTrigs) []byte { return t.Masks.Trigless[:] }),
	codec.Bytes("plock", 8, func(t *AudioTrackTrigs) []byte { return t.Masks.Plock[:] }),
	codec.Bytes("oneshot", 8, func(t *AudioTrackTrigs) []byte { return t.Masks.Oneshot[:] }),
	codec.Bytes("recorder", 32, func(t *AudioTrackTrigs) []byte { return t.Masks.Recorder[:] }),
	codec.Bytes("swing", 8, func(t *AudioTrackTrigs) []byte { return t.Masks.Swing[:] }),
	codec.Bytes("slide", 8, func(t *AudioTrackTrigs) []byte { return t.Masks.Slide[:] }),
	codec.Uint8("length", func(t *AudioTrackTrigs) *uint8 { return &t.Length }),
	codec.Uint8("scale", func(t *AudioTrackTrigs) *uint8 { return &t.Scale }),
	codec.Uint8("swing_amount", func(t *AudioTrackTrigs) *uint8 { return &t.SwingAmount }),
	codec.Nested("settings", trackSettingsLayout, func(t *AudioTrackTrigs) *TrackSettings { return &t.Settings }),
	codec.Uint8("unknown_2", func(t *AudioTrackTrigs) *uint8 { return &t.Unknown2 }),
	codec.Array("plocks", Steps, audioPlockLayout, func(t *AudioTrackTrigs, i int) *AudioPlock { return &t.Plocks[i] }),
	codec.Bytes("unknown_3", 64, func(t *AudioTrackTrigs) []byte { return t.Unknown3[:] }),
	codec.Bytes("trig_conditions", 128, func(t *AudioTrackTrigs) []byte { return t.TrigConditions[:] }),
)

// MidiTrigMasks hold the trig types placed on a MIDI track
type MidiTrigMasks struct {
	Trigger  TrigMask `json:"trigger" yaml:"trigger"`
	Trigless TrigMask `json:"trigless" yaml:"trigless"`
	Plock    TrigMask `json:"plock" yaml:"plock"`
	Swing    TrigMask `json:"swing" yaml:"swing"`
	Unknown  [8]byte  `json:"unknown" yaml:"unknown"`
}

// MidiTrackTrigs is one MIDI track's trig and parameter-lock table within a pattern
type MidiTrackTrigs struct {
	Header         [4]byte         `json:"header" yaml:"header"`
	Unknown1       [4]byte         `json:"unknown_1" yaml:"unknown_1"`
	TrackID        uint8           `json:"track_id" yaml:"track_id"`
	Masks          MidiTrigMasks   `json:"masks" yaml:"masks"`
	Length         uint8           `json:"length" yaml:"length"`
	Scale          uint8           `json:"scale" yaml:"scale"`
	SwingAmount    uint8           `json:"swing_amount" yaml:"swing_amount"`
	Settings       TrackSettings   `json:"settings" yaml:"settings"`
	Plocks         [Steps][32]byte `json:"plocks" yaml:"plocks"`
	TrigConditions [128]byte       `json:"trig_conditions" yaml:"trig_conditions"`
}

func defaultMidiTrackTrigs(id uint8) MidiTrackTrigs {
	t := MidiTrackTrigs{
		Header:   midiTrackHeader,
		TrackID:  id,
		Length:   16,
		Scale:    2,
		Settings: defaultTrackSettings(),
	}
	t.Masks.Swing = TrigMask{170, 170, 170, 170, 170, 170, 170, 170}
	for i := range t.Plocks {
		for j := range t.Plocks[i] {
			t.Plocks[i][j] = 255
		}
	}
	return t
}

type midiPlock = [32]byte

var midiPlockLayout = codec.NewLayout("midi plock",
	codec.Bytes("values", 32, func(p *midiPlock) []byte { return p[:] }),
)

var midiTrackTrigsLayout = codec.NewLayout("midi track trigs",
	codec.Magic("header", midiTrackHeader[:], func(t *MidiTrackTrigs) []byte { return t.Header[:] }),
	codec.Bytes("unknown_1", 4, func(t *MidiTrackTrigs) []byte { return t.Unknown1[:] }),
	codec.Uint8("track_id", func(t *MidiTrackTrigs) *uint8 { return &t.TrackID }),
	codec.Bytes("trigger", 8, func(t *MidiTrackTrigs) []byte { return t.Masks.Trigger[:] }),
	codec.Bytes("trigless", 8, func(t *MidiTrackTrigs) []byte { return t.Masks.Trigless[:] }),
	codec.Bytes("plock", 8, func(t *MidiTrackTrigs) []byte { return t.Masks.Plock[:] }),
	codec.Bytes("swing", 8, func(t *MidiTrackTrigs) []byte { return t.Masks.Swing[:] }),
	codec.Bytes("unknown_mask", 8, func(t *MidiTrackTrigs) []byte { return t.Masks.Unknown[:] }),
	codec.Uint8("length", func(t *MidiTrackTrigs) *uint8 { return &t.Length }),
	codec.Uint8("scale", func(t *MidiTrackTrigs) *uint8 { return &t.Scale }),
	codec.Uint8("swing_amount", func(t *MidiTrackTrigs) *uint8 { return &t.SwingAmount }),
	codec.Nested("settings", trackSettingsLayout, func(t *MidiTrackTrigs) *TrackSettings { return &t.Settings }),
	codec.Array("plocks", Steps, midiPlockLayout, func(t *MidiTrackTrigs, i int) *midiPlock { return &t.Plocks[i] }),
	codec.Bytes("trig_conditions", 128, func(t *MidiTrackTrigs) []byte { return t.TrigConditions[:] }),
)

// PatternScale is the pattern-wide length and scale setup
type PatternScale struct {
	PerTrackMultiplier uint8 `json:"per_track_multiplier" yaml:"per_track_multiplier"`
	PerTrackLength     uint8 `json:"per_track_length" yaml:"per_track_length"`
	PerTrackScale      uint8 `json:"per_track_scale" yaml:"per_track_scale"`
	MasterLength       uint8 `json:"master_length" yaml:"master_length"`
	MasterScale        uint8 `json:"master_scale" yaml:"master_scale"`
	Mode               uint8 `json:"mode" yaml:"mode"`
}

var patternScaleLayout = codec.NewLayout("pattern scale",
	codec.Uint8("per_track_multiplier", func(s *PatternScale) *uint8 { return &s.PerTrackMultiplier }),
	codec.Uint8("per_track_length", func(s *PatternScale) *uint8 { return &s.PerTrackLength }),
	codec.Uint8("per_track_scale", func(s *PatternScale) *uint8 { return &s.PerTrackScale }),
	codec.Uint8("master_length", func(s *PatternScale) *uint8 { return &s.MasterLength }),
	codec.Uint8("master_scale", func(s *PatternScale) *uint8 { return &s.MasterScale }),
	codec.Uint8("mode", func(s *PatternScale) *uint8 { return &s.Mode }),
)

// Pattern is one of a bank's 16 patterns
type Pattern struct {
	Header         [8]byte                 `json:"header" yaml:"header"`
	AudioTracks    [Tracks]AudioTrackTrigs `json:"audio_tracks" yaml:"audio_tracks"`
	MidiTracks     [Tracks]MidiTrackTrigs  `json:"midi_tracks" yaml:"midi_tracks"`
	Scale          PatternScale            `json:"scale" yaml:"scale"`
	ChainBehaviour [2]byte                 `json:"chain_behaviour" yaml:"chain_behaviour"`
	Unknown        uint8                   `json:"unknown" yaml:"unknown"`
	PartAssignment uint8                   `json:"part_assignment" yaml:"part_assignment"`
	Tempo1         uint8                   `json:"tempo_1" yaml:"tempo_1"`
	Tempo2         uint8                   `json:"tempo_2" yaml:"tempo_2"`
}

var patternLayout = codec.NewLayout("pattern",
	codec.Magic("header", patternHeader[:], func(p *Pattern) []byte { return p.Header[:] }),
	codec.Array("audio_tracks", Tracks, audioTrackTrigsLayout, func(p *Pattern, i int) *AudioTrackTrigs { return &p.AudioTracks[i] }),
	codec.Array("midi_tracks", Tracks, midiTrackTrigsLayout, func(p *Pattern, i int) *MidiTrackTrigs { return &p.MidiTracks[i] }),
	codec.Nested("scale", patternScaleLayout, func(p *Pattern) *PatternScale { return &p.Scale }),
	codec.Bytes("chain_behaviour", 2, func(p *Pattern) []byte { return p.ChainBehaviour[:] }),
	codec.Uint8("unknown", func(p *Pattern) *uint8 { return &p.Unknown }),
	codec.Uint8("part_assignment", func(p *Pattern) *uint8 { return &p.PartAssignment }),
	codec.Uint8("tempo_1", func(p *Pattern) *uint8 { return &p.Tempo1 }),
	codec.Uint8("tempo_2", func(p *Pattern) *uint8 { return &p.Tempo2 }),
)

// DefaultPattern returns the empty pattern the hardware creates
func DefaultPattern() *Pattern {
	p := &Pattern{
		Header: patternHeader,
		Scale: PatternScale{
			PerTrackLength: 16,
			PerTrackScale:  2,
			MasterLength:   16,
			MasterScale:    2,
		},
		Tempo1: 11,
		Tempo2: 64,
	}
	for i := 0; i < Tracks; i++ {
		p.AudioTracks[i] = defaultAudioTrackTrigs(uint8(i))
		p.MidiTracks[i] = defaultMidiTrackTrigs(uint8(i))
	}
	return p
}

// DecodePattern parses a pattern image
func DecodePattern(data []byte) (*Pattern, error) {
	return patternLayout.Decode(data)
}

// Encode serializes the pattern
func (p *Pattern) Encode() ([]byte, error) {
	return patternLayout.Encode(p)
}

// BPM returns the pattern tempo
func (p *Pattern) BPM() float64 {
	return DecodeTempo(uint32(p.Tempo1)<<8 | uint32(p.Tempo2))
}

// SetBPM stores the pattern tempo
func (p *Pattern) SetBPM(bpm float64) error {
	v, err := EncodeTempo(bpm)
	if err != nil {
		return err
	}
	p.Tempo1 = uint8(v >> 8)
	p.Tempo2 = uint8(v)
	return nil
}

// RemapPlockSlots rewrites the static or flex slot of every audio p-lock
// through fn; NoSlot entries are passed through fn as well.
func (p *Pattern) RemapPlockSlots(class SlotClass, fn func(uint8) uint8) {
	for t := range p.AudioTracks {
		for s := range p.AudioTracks[t].Plocks {
			pl := &p.AudioTracks[t].Plocks[s]
			switch class {
			case SlotStatic:
				pl.StaticSlot = fn(pl.StaticSlot)
			case SlotFlex:
				pl.FlexSlot = fn(pl.FlexSlot)
			}
		}
	}
}
