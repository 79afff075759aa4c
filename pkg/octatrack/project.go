package octatrack

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dijksterhuis/octatools/pkg/codec"
)

// Project constants
const (
	ProjectVersion   = 19
	ProjectType      = "OCTATRACK DPS-1 PROJECT"
	ProjectOSVersion = "R0177     1.40B"
	SlotCapacity     = 128
	RecorderSlots    = 8
	FirstRecorderID  = SlotCapacity + 1

	// SlotRecorder marks the flex slots 129-136 the track recorders write to
	SlotRecorder SlotClass = 2

	crlf         = "\r\n"
	sectionRule  = "############################"
	samplesTitle = "# Samples"
	sampleOpen   = "[SAMPLE]"
	sampleClose  = "[/SAMPLE]"
)

// SampleSlot is one [SAMPLE] block of a project file
type SampleSlot struct {
	Class        SlotClass        `json:"class" yaml:"class"`
	ID           int              `json:"id" yaml:"id"`
	Path         string           `json:"path" yaml:"path"`
	TrimBarsX100 int              `json:"trim_bars_x100" yaml:"trim_bars_x100"`
	Stretch      TimestretchMode  `json:"timestretch_mode" yaml:"timestretch_mode"`
	Loop         LoopMode         `json:"loop_mode" yaml:"loop_mode"`
	Gain         uint16           `json:"gain" yaml:"gain"`
	Quantization TrigQuantization `json:"trig_quantization" yaml:"trig_quantization"`
	// Tempo is BPM x24; 0 when the block carries no tempo
	Tempo        uint32           `json:"tempo,omitempty" yaml:"tempo,omitempty"`
}

// Validate checks the slot id against its class and every setting against its domain
func (s SampleSlot) Validate() error {
	switch s.Class {
	case SlotStatic, SlotFlex:
		if s.ID < 1 || s.ID > SlotCapacity {
			return codec.Invalid("slot id", s.ID, "1..128")
		}
	case SlotRecorder:
		if s.ID < FirstRecorderID || s.ID >= FirstRecorderID+RecorderSlots {
			return codec.Invalid("recorder slot id", s.ID, "129..136")
		}
	default:
		return codec.Invalid("slot class", int(s.Class), "static, flex, recorder")
	}
	if s.Gain > 96 {
		return codec.Invalid("gain", s.Gain, "0..96")
	}
	if s.Tempo != 0 && (s.Tempo < MinTempo*24 || s.Tempo > MaxTempo*24) {
		return codec.Invalid("tempo", s.Tempo, "720..7200")
	}
	if s.TrimBarsX100 < 0 {
		return codec.Invalid("trim", s.TrimBarsX100, "0 or more bars x100")
	}
	if !s.Loop.Valid() {
		return codec.Invalid("loop mode", uint32(s.Loop), "off, normal, pingpong")
	}
	if !s.Stretch.Valid() {
		return codec.Invalid("timestretch mode", uint32(s.Stretch), "off, normal, beat")
	}
	if !s.Quantization.Valid() {
		return codec.Invalid("trig quantization", uint8(s.Quantization), "closed enumeration")
	}
	return nil
}

// Settings returns the slot's playback settings; a missing tempo reads as 120 BPM
func (s SampleSlot) Settings() SampleSettings {
	tempo := 120.0
	if s.Tempo != 0 {
		tempo = DecodeTempo(s.Tempo)
	}
	return SampleSettings{
		Tempo:        tempo,
		Gain:         DecodeGain(s.Gain),
		Loop:         s.Loop,
		Stretch:      s.Stretch,
		Quantization: s.Quantization,
	}
}

// SameSettings reports whether two slots would play their sample identically
func (s SampleSlot) SameSettings(o SampleSlot) bool {
	return s.Class == o.Class &&
		s.TrimBarsX100 == o.TrimBarsX100 &&
		s.Stretch == o.Stretch &&
		s.Loop == o.Loop &&
		s.Gain == o.Gain &&
		s.Quantization == o.Quantization &&
		s.Tempo == o.Tempo
}

func (s SampleSlot) lines() []string {
	typ := "STATIC"
	if s.Class != SlotStatic {
		typ = "FLEX"
	}
	out := []string{
		sampleOpen,
		"TYPE=" + typ,
		fmt.Sprintf("SLOT=%03d", s.ID),
		"PATH=" + s.Path,
		fmt.Sprintf("TRIM_BARSx100=%d", s.TrimBarsX100),
		fmt.Sprintf("TSMODE=%d", uint32(s.Stretch)),
		fmt.Sprintf("LOOPMODE=%d", uint32(s.Loop)),
		fmt.Sprintf("GAIN=%d", s.Gain),
		fmt.Sprintf("TRIGQUANTIZATION=%d", s.Quantization.projectValue()),
	}
	if s.Tempo != 0 {
		out = append(out, fmt.Sprintf("BPMx24=%d", s.Tempo))
	}
	return append(out, sampleClose)
}

// order sorts static before flex before recorder, then by id
func (s SampleSlot) order() int {
	return int(s.Class)*1000 + s.ID
}

// Project is a project.work or project.strd file. The file is kept line by
// line so that content octatools does not interpret survives untouched.
type Project struct {
	lines []string
}

// DecodeProject parses a project file and checks its version
func DecodeProject(data []byte) (*Project, error) {
	p := &Project{lines: strings.Split(string(data), crlf)}
	meta, err := p.Meta()
	if err != nil {
		return nil, err
	}
	if meta.Version != ProjectVersion {
		return nil, &codec.FormatError{
			Record:   "project",
			Field:    "VERSION",
			Offset:   p.offset(meta.versionLine),
			Expected: strconv.Itoa(ProjectVersion),
			Actual:   strconv.Itoa(meta.Version),
		}
	}
	if _, err := p.Slots(); err != nil {
		return nil, err
	}
	return p, nil
}

// Encode returns the file image; its length follows from the content
func (p *Project) Encode() ([]byte, error) {
	return []byte(strings.Join(p.lines, crlf)), nil
}

// Clone returns an independent copy
func (p *Project) Clone() *Project {
	return &Project{lines: append([]string(nil), p.lines...)}
}

// offset returns the byte offset of line i
func (p *Project) offset(i int) int {
	off := 0
	for _, l := range p.lines[:i] {
		off += len(l) + len(crlf)
	}
	return off
}

func (p *Project) formatError(line int, field, expected, actual string) error {
	return &codec.FormatError{
		Record:   "project",
		Field:    field,
		Offset:   p.offset(line),
		Expected: expected,
		Actual:   actual,
	}
}

// section returns the line range (exclusive of markers) of the first [name] block
func (p *Project) section(name string) (start, end int, ok bool) {
	open, close := "["+name+"]", "[/"+name+"]"
	start = -1
	for i, l := range p.lines {
		switch {
		case start < 0 && l == open:
			start = i + 1
		case start >= 0 && l == close:
			return start, i, true
		}
	}
	return 0, 0, false
}

// Values returns the KEY=VALUE pairs of a section such as SETTINGS or STATES
func (p *Project) Values(section string) (map[string]string, error) {
	start, end, ok := p.section(section)
	if !ok {
		return nil, p.formatError(len(p.lines)-1, section, "["+section+"] block", "none")
	}
	out := make(map[string]string, end-start)
	for _, l := range p.lines[start:end] {
		if k, v, found := strings.Cut(l, "="); found {
			out[k] = v
		}
	}
	return out, nil
}

// SetValue replaces KEY=... in a section, appending the key when missing
func (p *Project) SetValue(section, key, value string) error {
	start, end, ok := p.section(section)
	if !ok {
		return p.formatError(len(p.lines)-1, section, "["+section+"] block", "none")
	}
	for i := start; i < end; i++ {
		if k, _, found := strings.Cut(p.lines[i], "="); found && k == key {
			p.lines[i] = key + "=" + value
			return nil
		}
	}
	p.insert(end, key+"="+value)
	return nil
}

// SectionLines returns the raw lines of a section such as SETTINGS, in file order
func (p *Project) SectionLines(section string) ([]string, error) {
	start, end, ok := p.section(section)
	if !ok {
		return nil, p.formatError(len(p.lines)-1, section, "["+section+"] block", "none")
	}
	return append([]string(nil), p.lines[start:end]...), nil
}

// SetSectionLines replaces the body of a section
func (p *Project) SetSectionLines(section string, lines []string) error {
	start, end, ok := p.section(section)
	if !ok {
		return p.formatError(len(p.lines)-1, section, "["+section+"] block", "none")
	}
	p.lines = append(p.lines[:start], append(append([]string(nil), lines...), p.lines[end:]...)...)
	return nil
}

func (p *Project) insert(at int, lines ...string) {
	p.lines = append(p.lines[:at], append(lines, p.lines[at:]...)...)
}

// Metadata is the [META] block
type Metadata struct {
	Type      string `json:"type" yaml:"type"`
	Version   int    `json:"version" yaml:"version"`
	OSVersion string `json:"os_version" yaml:"os_version"`

	versionLine int
}

// Meta parses the [META] block
func (p *Project) Meta() (Metadata, error) {
	start, end, ok := p.section("META")
	if !ok {
		return Metadata{}, p.formatError(0, "META", "[META] block", "none")
	}
	var m Metadata
	m.versionLine = -1
	for i := start; i < end; i++ {
		k, v, _ := strings.Cut(p.lines[i], "=")
		switch k {
		case "TYPE":
			m.Type = v
		case "OS_VERSION":
			m.OSVersion = v
		case "VERSION":
			n, err := strconv.Atoi(v)
			if err != nil {
				return m, p.formatError(i, "VERSION", "integer", v)
			}
			m.Version, m.versionLine = n, i
		}
	}
	if m.versionLine < 0 {
		return m, p.formatError(start, "VERSION", "VERSION line", "none")
	}
	if m.Type != ProjectType {
		return m, p.formatError(start, "TYPE", ProjectType, m.Type)
	}
	return m, nil
}

// sampleBlock locates one [SAMPLE] block by line index
type sampleBlock struct {
	open, close int
	slot        SampleSlot
}

func (p *Project) blocks() ([]sampleBlock, error) {
	var out []sampleBlock
	for i := 0; i < len(p.lines); i++ {
		if p.lines[i] != sampleOpen {
			continue
		}
		j := i + 1
		for j < len(p.lines) && p.lines[j] != sampleClose {
			j++
		}
		if j == len(p.lines) {
			return nil, p.formatError(i, "SAMPLE", sampleClose, "end of file")
		}
		slot, err := p.parseSlot(i, j)
		if err != nil {
			return nil, err
		}
		out = append(out, sampleBlock{open: i, close: j, slot: slot})
		i = j
	}
	return out, nil
}

func (p *Project) parseSlot(open, close int) (SampleSlot, error) {
	s := SampleSlot{
		Stretch:      StretchNormal,
		Loop:         LoopOff,
		Gain:         48,
		Quantization: QuantDirect,
	}
	typ := ""
	for i := open + 1; i < close; i++ {
		k, v, _ := strings.Cut(p.lines[i], "=")
		num := func() (int, error) {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return 0, p.formatError(i, k, "integer", v)
			}
			return n, nil
		}
		var (
			n   int
			err error
		)
		switch k {
		case "TYPE":
			typ = v
		case "PATH":
			s.Path = v
		case "SLOT":
			s.ID, err = num()
		case "TRIM_BARSx100":
			s.TrimBarsX100, err = num()
		case "TSMODE":
			if n, err = num(); err == nil {
				s.Stretch = TimestretchMode(n)
				if n < 0 || !s.Stretch.Valid() {
					err = p.formatError(i, k, "0, 2 or 3", v)
				}
			}
		case "LOOPMODE":
			if n, err = num(); err == nil {
				s.Loop = LoopMode(n)
				if n < 0 || !s.Loop.Valid() {
					err = p.formatError(i, k, "0, 1 or 2", v)
				}
			}
		case "GAIN":
			if n, err = num(); err == nil {
				if n < 0 || n > 96 {
					err = p.formatError(i, k, "0..96", v)
				}
				s.Gain = uint16(n)
			}
		case "TRIGQUANTIZATION":
			if n, err = num(); err == nil {
				q, ok := trigQuantizationFromProject(n)
				if !ok {
					err = p.formatError(i, k, "-1..16", v)
				}
				s.Quantization = q
			}
		case "BPMx24":
			if n, err = num(); err == nil {
				s.Tempo = uint32(n)
			}
		}
		if err != nil {
			return s, err
		}
	}
	class, err := ParseSlotClass(typ)
	if err != nil {
		return s, p.formatError(open, "TYPE", "STATIC or FLEX", typ)
	}
	s.Class = class
	if class == SlotFlex && s.ID >= FirstRecorderID {
		s.Class = SlotRecorder
	}
	if err := s.Validate(); err != nil {
		return s, p.formatError(open, "SAMPLE", "valid sample slot", err.Error())
	}
	return s, nil
}

// Slots returns every sample slot in file order, recorder buffers included
func (p *Project) Slots() ([]SampleSlot, error) {
	blocks, err := p.blocks()
	if err != nil {
		return nil, err
	}
	out := make([]SampleSlot, len(blocks))
	for i, b := range blocks {
		out[i] = b.slot
	}
	return out, nil
}

// SlotTable returns the slots of one class keyed by id
func (p *Project) SlotTable(class SlotClass) (map[int]SampleSlot, error) {
	slots, err := p.Slots()
	if err != nil {
		return nil, err
	}
	out := make(map[int]SampleSlot)
	for _, s := range slots {
		if s.Class == class {
			out[s.ID] = s
		}
	}
	return out, nil
}

// Slot returns the slot with the given class and 1-based id
func (p *Project) Slot(class SlotClass, id int) (SampleSlot, bool, error) {
	table, err := p.SlotTable(class)
	if err != nil {
		return SampleSlot{}, false, err
	}
	s, ok := table[id]
	return s, ok, nil
}

// FreeSlots returns the unused ids of a class in ascending order
func (p *Project) FreeSlots(class SlotClass) ([]int, error) {
	table, err := p.SlotTable(class)
	if err != nil {
		return nil, err
	}
	var free []int
	for id := 1; id <= SlotCapacity; id++ {
		if _, used := table[id]; !used {
			free = append(free, id)
		}
	}
	return free, nil
}

// SetSlot writes s, replacing the block with the same class and id or
// inserting a new block in slot order
func (p *Project) SetSlot(s SampleSlot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	blocks, err := p.blocks()
	if err != nil {
		return err
	}
	for _, b := range blocks {
		if b.slot.Class == s.Class && b.slot.ID == s.ID {
			p.lines = append(p.lines[:b.open], append(s.lines(), p.lines[b.close+1:]...)...)
			return nil
		}
	}
	i := sort.Search(len(blocks), func(i int) bool { return blocks[i].slot.order() > s.order() })
	switch {
	case i < len(blocks):
		p.insert(blocks[i].open, append(s.lines(), "")...)
	case len(blocks) > 0:
		p.insert(blocks[len(blocks)-1].close+1, append([]string{""}, s.lines()...)...)
	default:
		at, err := p.samplesStart()
		if err != nil {
			return err
		}
		p.insert(at, append([]string{""}, s.lines()...)...)
	}
	return nil
}

// RemoveSlot deletes the block with the given class and id, if any
func (p *Project) RemoveSlot(class SlotClass, id int) error {
	blocks, err := p.blocks()
	if err != nil {
		return err
	}
	for _, b := range blocks {
		if b.slot.Class != class || b.slot.ID != id {
			continue
		}
		from := b.open
		if from > 0 && p.lines[from-1] == "" {
			from--
		}
		p.lines = append(p.lines[:from], p.lines[b.close+1:]...)
		return nil
	}
	return nil
}

// samplesStart returns the line after the samples section title rule
func (p *Project) samplesStart() (int, error) {
	for i, l := range p.lines {
		if l == samplesTitle && i+1 < len(p.lines) && p.lines[i+1] == sectionRule {
			return i + 2, nil
		}
	}
	return 0, p.formatError(len(p.lines)-1, "SAMPLES", samplesTitle, "none")
}

var defaultSettings = []string{
	"WRITEPROTECTED=0",
	"TEMPOx24=2880",
	"PATTERN_TEMPO_ENABLED=0",
	"MIDI_CLOCK_SEND=0",
	"MIDI_CLOCK_RECEIVE=0",
	"MIDI_TRANSPORT_SEND=0",
	"MIDI_TRANSPORT_RECEIVE=0",
	"MIDI_PROGRAM_CHANGE_SEND=0",
	"MIDI_PROGRAM_CHANGE_SEND_CH=-1",
	"MIDI_PROGRAM_CHANGE_RECEIVE=0",
	"MIDI_PROGRAM_CHANGE_RECEIVE_CH=-1",
	"MIDI_TRIG_CH1=0",
	"MIDI_TRIG_CH2=1",
	"MIDI_TRIG_CH3=2",
	"MIDI_TRIG_CH4=3",
	"MIDI_TRIG_CH5=4",
	"MIDI_TRIG_CH6=5",
	"MIDI_TRIG_CH7=6",
	"MIDI_TRIG_CH8=7",
	"MIDI_AUTO_CHANNEL=10",
	"MIDI_SOFT_THRU=0",
	"MIDI_AUDIO_TRK_CC_IN=1",
	"MIDI_AUDIO_TRK_CC_OUT=3",
	"MIDI_AUDIO_TRK_NOTE_IN=1",
	"MIDI_AUDIO_TRK_NOTE_OUT=3",
	"MIDI_MIDI_TRK_CC_IN=1",
	"PATTERN_CHANGE_CHAIN_BEHAVIOR=0",
	"PATTERN_CHANGE_AUTO_SILENCE_TRACKS=0",
	"PATTERN_CHANGE_AUTO_TRIG_LFOS=0",
	"LOAD_24BIT_FLEX=0",
	"DYNAMIC_RECORDERS=0",
	"RECORD_24BIT=0",
	"RESERVED_RECORDER_COUNT=8",
	"RESERVED_RECORDER_LENGTH=16",
	"INPUT_DELAY_COMPENSATION=0",
	"GATE_AB=127",
	"GATE_CD=127",
	"GAIN_AB=64",
	"GAIN_CD=64",
	"DIR_AB=0",
	"DIR_CD=0",
	"PHONES_MIX=64",
	"MAIN_TO_CUE=0",
	"MASTER_TRACK=0",
	"CUE_STUDIO_MODE=0",
	"MAIN_LEVEL=64",
	"CUE_LEVEL=64",
	"METRONOME_TIME_SIGNATURE=3",
	"METRONOME_TIME_SIGNATURE_DENOMINATOR=2",
	"METRONOME_PREROLL=0",
	"METRONOME_CUE_VOLUME=32",
	"METRONOME_MAIN_VOLUME=0",
	"METRONOME_PITCH=12",
	"METRONOME_TONAL=1",
	"METRONOME_ENABLED=0",
	"TRIG_MODE_MIDI=0",
	"TRIG_MODE_MIDI=0",
	"TRIG_MODE_MIDI=0",
	"TRIG_MODE_MIDI=0",
	"TRIG_MODE_MIDI=0",
	"TRIG_MODE_MIDI=0",
	"TRIG_MODE_MIDI=0",
	"TRIG_MODE_MIDI=0",
}

var defaultStates = []string{
	"BANK=0",
	"PATTERN=0",
	"ARRANGEMENT=0",
	"ARRANGEMENT_MODE=0",
	"PART=0",
	"TRACK=0",
	"TRACK_OTHERMODE=0",
	"SCENE_A_MUTE=0",
	"SCENE_B_MUTE=0",
	"TRACK_CUE_MASK=0",
	"TRACK_MUTE_MASK=0",
	"TRACK_SOLO_MASK=0",
	"MIDI_TRACK_MUTE_MASK=0",
	"MIDI_TRACK_SOLO_MASK=0",
	"MIDI_MODE=0",
}

// DefaultRecorderSlot returns recorder buffer n (0-7) as a new project holds it
func DefaultRecorderSlot(n int) SampleSlot {
	return SampleSlot{
		Class:        SlotRecorder,
		ID:           FirstRecorderID + n,
		Stretch:      StretchNormal,
		Loop:         LoopNormal,
		Gain:         72,
		Quantization: QuantDirect,
	}
}

// DefaultProject returns the project file of a freshly created project
func DefaultProject() *Project {
	lines := []string{
		sectionRule,
		"# Project Settings",
		sectionRule,
		"",
		"[META]",
		"TYPE=" + ProjectType,
		"VERSION=" + strconv.Itoa(ProjectVersion),
		"OS_VERSION=" + ProjectOSVersion,
		"[/META]",
		"",
		"[SETTINGS]",
	}
	lines = append(lines, defaultSettings...)
	lines = append(lines, "[/SETTINGS]", "", "[STATES]")
	lines = append(lines, defaultStates...)
	lines = append(lines, "[/STATES]", "", sectionRule, samplesTitle, sectionRule)
	for n := 0; n < RecorderSlots; n++ {
		lines = append(lines, "")
		lines = append(lines, DefaultRecorderSlot(n).lines()...)
	}
	lines = append(lines, "", sectionRule, "", "")
	return &Project{lines: lines}
}
