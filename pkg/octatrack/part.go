package octatrack

import (
	"github.com/dijksterhuis/octatools/pkg/codec"
)

// Part constants
const (
	PartSize     = 6331
	PartsPerBank = 4
	Scenes       = 16
)

var partHeader = [4]byte{0x50, 0x41, 0x52, 0x54}

// MachineType is the machine loaded on an audio track
type MachineType uint8

const (
	MachineStatic   MachineType = 0
	MachineFlex     MachineType = 1
	MachineThru     MachineType = 2
	MachineNeighbor MachineType = 3
	MachinePickup   MachineType = 4
)

// Valid reports whether t is a known machine
func (t MachineType) Valid() bool {
	return t <= MachinePickup
}

func (t MachineType) String() string {
	switch t {
	case MachineStatic:
		return "static"
	case MachineFlex:
		return "flex"
	case MachineThru:
		return "thru"
	case MachineNeighbor:
		return "neighbor"
	case MachinePickup:
		return "pickup"
	}
	return "unknown"
}

// TrackVolume is an audio track's main and cue level
type TrackVolume struct {
	Main uint8 `json:"main" yaml:"main"`
	Cue  uint8 `json:"cue" yaml:"cue"`
}

var trackVolumeLayout = codec.NewLayout("track volume",
	codec.Uint8("main", func(v *TrackVolume) *uint8 { return &v.Main }),
	codec.Uint8("cue", func(v *TrackVolume) *uint8 { return &v.Cue }),
)

// MachineSlots are the sample slots an audio track's machines point at
type MachineSlots struct {
	Static   uint8 `json:"static" yaml:"static"`
	Flex     uint8 `json:"flex" yaml:"flex"`
	Unused1  uint8 `json:"unused_1" yaml:"unused_1"`
	Unused2  uint8 `json:"unused_2" yaml:"unused_2"`
	Recorder uint8 `json:"recorder" yaml:"recorder"`
}

var machineSlotsLayout = codec.NewLayout("machine slots",
	codec.Uint8("static", func(s *MachineSlots) *uint8 { return &s.Static }),
	codec.Uint8("flex", func(s *MachineSlots) *uint8 { return &s.Flex }),
	codec.Uint8("unused_1", func(s *MachineSlots) *uint8 { return &s.Unused1 }),
	codec.Uint8("unused_2", func(s *MachineSlots) *uint8 { return &s.Unused2 }),
	codec.Uint8("recorder", func(s *MachineSlots) *uint8 { return &s.Recorder }),
)

// Part is one of a bank's four track setups. Parameter pages are kept as raw
// per-track blocks; only the fields octatools rewrites are broken out.
type Part struct {
	Header         [4]byte                  `json:"header" yaml:"header"`
	DataBlock      [4]byte                  `json:"data_block" yaml:"data_block"`
	PartID         uint8                    `json:"part_id" yaml:"part_id"`
	FX1            [Tracks]uint8            `json:"fx1" yaml:"fx1"`
	FX2            [Tracks]uint8            `json:"fx2" yaml:"fx2"`
	SceneA         uint8                    `json:"scene_a" yaml:"scene_a"`
	SceneB         uint8                    `json:"scene_b" yaml:"scene_b"`
	Volumes        [Tracks]TrackVolume      `json:"volumes" yaml:"volumes"`
	Machines       [Tracks]MachineType      `json:"machines" yaml:"machines"`
	MachineValues  [Tracks][30]byte         `json:"machine_values" yaml:"machine_values"`
	TrackValues    [Tracks][24]byte         `json:"track_values" yaml:"track_values"`
	MachineSetup   [Tracks][30]byte         `json:"machine_setup" yaml:"machine_setup"`
	Slots          [Tracks]MachineSlots     `json:"slots" yaml:"slots"`
	TrackSetup     [Tracks][30]byte         `json:"track_setup" yaml:"track_setup"`
	MidiValues     [Tracks][32]byte         `json:"midi_values" yaml:"midi_values"`
	MidiSetup      [Tracks][36]byte         `json:"midi_setup" yaml:"midi_setup"`
	RecorderSetup  [Tracks][12]byte         `json:"recorder_setup" yaml:"recorder_setup"`
	SceneLocks     [Scenes][Tracks][32]byte `json:"scene_locks" yaml:"scene_locks"`
	SceneXLVs      [Scenes][10]byte         `json:"scene_xlvs" yaml:"scene_xlvs"`
	AudioLFO       [128]byte                `json:"audio_lfo" yaml:"audio_lfo"`
	AudioLFOInterp [16]byte                 `json:"audio_lfo_interp" yaml:"audio_lfo_interp"`
	MidiLFO        [128]byte                `json:"midi_lfo" yaml:"midi_lfo"`
	MidiLFOInterp  [16]byte                 `json:"midi_lfo_interp" yaml:"midi_lfo_interp"`
	ArpMuteMasks   [16]byte                 `json:"arp_mute_masks" yaml:"arp_mute_masks"`
	ArpSeqs        [128]byte                `json:"arp_seqs" yaml:"arp_seqs"`
}

var partLayout = codec.NewLayout("part",
	codec.Magic("header", partHeader[:], func(p *Part) []byte { return p.Header[:] }),
	codec.Bytes("data_block", 4, func(p *Part) []byte { return p.DataBlock[:] }),
	codec.Uint8("part_id", func(p *Part) *uint8 { return &p.PartID }),
	codec.Bytes("fx1", Tracks, func(p *Part) []byte { return p.FX1[:] }),
	codec.Bytes("fx2", Tracks, func(p *Part) []byte { return p.FX2[:] }),
	codec.Uint8("scene_a", func(p *Part) *uint8 { return &p.SceneA }),
	codec.Uint8("scene_b", func(p *Part) *uint8 { return &p.SceneB }),
	codec.Array("volumes", Tracks, trackVolumeLayout, func(p *Part, i int) *TrackVolume { return &p.Volumes[i] }),
	codec.Array("machines", Tracks, machineTypeLayout, func(p *Part, i int) *MachineType { return &p.Machines[i] }),
	codec.Rows("machine_values", Tracks, 30, func(p *Part, i int) []byte { return p.MachineValues[i][:] }),
	codec.Rows("track_values", Tracks, 24, func(p *Part, i int) []byte { return p.TrackValues[i][:] }),
	codec.Rows("machine_setup", Tracks, 30, func(p *Part, i int) []byte { return p.MachineSetup[i][:] }),
	codec.Array("slots", Tracks, machineSlotsLayout, func(p *Part, i int) *MachineSlots { return &p.Slots[i] }),
	codec.Rows("track_setup", Tracks, 30, func(p *Part, i int) []byte { return p.TrackSetup[i][:] }),
	codec.Rows("midi_values", Tracks, 32, func(p *Part, i int) []byte { return p.MidiValues[i][:] }),
	codec.Rows("midi_setup", Tracks, 36, func(p *Part, i int) []byte { return p.MidiSetup[i][:] }),
	codec.Rows("recorder_setup", Tracks, 12, func(p *Part, i int) []byte { return p.RecorderSetup[i][:] }),
	codec.Rows("scene_locks", Scenes*Tracks, 32, func(p *Part, i int) []byte { return p.SceneLocks[i/Tracks][i%Tracks][:] }),
	codec.Rows("scene_xlvs", Scenes, 10, func(p *Part, i int) []byte { return p.SceneXLVs[i][:] }),
	codec.Bytes("audio_lfo", 128, func(p *Part) []byte { return p.AudioLFO[:] }),
	codec.Bytes("audio_lfo_interp", 16, func(p *Part) []byte { return p.AudioLFOInterp[:] }),
	codec.Bytes("midi_lfo", 128, func(p *Part) []byte { return p.MidiLFO[:] }),
	codec.Bytes("midi_lfo_interp", 16, func(p *Part) []byte { return p.MidiLFOInterp[:] }),
	codec.Bytes("arp_mute_masks", 16, func(p *Part) []byte { return p.ArpMuteMasks[:] }),
	codec.Bytes("arp_seqs", 128, func(p *Part) []byte { return p.ArpSeqs[:] }),
)

var machineTypeLayout = codec.NewLayout("machine type",
	codec.Enum8("machine", func(t *MachineType) *MachineType { return t }),
)

// per-track default parameter pages, in machine order static, flex, thru, neighbor, pickup
var (
	defaultMachineValues = [30]byte{
		64, 0, 0, 127, 0, 79,
		64, 0, 0, 127, 0, 79,
		0, 64, 0, 0, 64, 0,
		0, 0, 0, 0, 0, 0,
		64, 2, 1, 127, 64, 1,
	}
	defaultMachineSetup = [30]byte{
		1, 0, 0, 0, 1, 64,
		1, 0, 0, 0, 1, 64,
		0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 1, 64,
	}
	// lfo, amp, fx1, fx2
	defaultTrackValues = [24]byte{
		32, 32, 32, 0, 0, 0,
		0, 127, 127, 64, 64, 127,
		0, 127, 0, 64, 0, 64,
		47, 0, 127, 0, 127, 0,
	}
	// lfo1, amp, fx1, fx2, lfo2
	defaultTrackSetup = [30]byte{
		0, 0, 0, 0, 0, 0,
		1, 1, 0, 0, 0, 0,
		0, 0, 1, 0, 3, 0,
		0, 1, 127, 1, 0, 0,
		0, 0, 0, 0, 0, 0,
	}
	defaultMidiValues = [32]byte{
		48, 100, 6, 64, 64, 64,
		32, 32, 32, 0, 0, 0,
		64, 0, 0, 5, 0, 6,
		64, 0, 127, 0, 0, 64,
		0, 0, 0, 0, 0, 0,
		0, 0,
	}
	defaultMidiSetup = [36]byte{
		0, 128, 128, 0, 128, 0,
		0, 0, 0, 0, 0, 0,
		0, 0, 7, 0, 0, 0,
		0, 0, 7, 1, 2, 10,
		71, 72, 73, 74, 75, 76,
		0, 0, 0, 0, 0, 0,
	}
	defaultRecorderSetup = [12]byte{1, 1, 64, 0, 0, 1, 0, 0, 0, 255, 255, 0}
)

// DefaultPart returns part id (0-3) as the hardware initialises it
func DefaultPart(id uint8) *Part {
	p := &Part{
		Header: partHeader,
		PartID: id,
		SceneB: 8,
	}
	for i := 0; i < Tracks; i++ {
		p.FX1[i] = 4
		p.FX2[i] = 8
		p.Volumes[i] = TrackVolume{Main: 108, Cue: 108}
		p.MachineValues[i] = defaultMachineValues
		p.TrackValues[i] = defaultTrackValues
		p.MachineSetup[i] = defaultMachineSetup
		p.Slots[i] = MachineSlots{Static: uint8(i), Flex: uint8(i), Recorder: 128 + uint8(i)}
		p.TrackSetup[i] = defaultTrackSetup
		p.MidiValues[i] = defaultMidiValues
		p.MidiSetup[i] = defaultMidiSetup
		p.RecorderSetup[i] = defaultRecorderSetup
	}
	fill(p.ArpMuteMasks[:], 255)
	for s := range p.SceneLocks {
		for t := range p.SceneLocks[s] {
			fill(p.SceneLocks[s][t][:], 255)
		}
		fill(p.SceneXLVs[s][:], 255)
	}
	return p
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}

// DecodePart parses a part image
func DecodePart(data []byte) (*Part, error) {
	return partLayout.Decode(data)
}

// Encode serializes the part
func (p *Part) Encode() ([]byte, error) {
	return partLayout.Encode(p)
}

// RemapMachineSlots rewrites the static or flex slot of every track's machine through fn
func (p *Part) RemapMachineSlots(class SlotClass, fn func(uint8) uint8) {
	for i := range p.Slots {
		switch class {
		case SlotStatic:
			p.Slots[i].Static = fn(p.Slots[i].Static)
		case SlotFlex:
			p.Slots[i].Flex = fn(p.Slots[i].Flex)
		}
	}
}
