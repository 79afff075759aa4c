// Package midiexport writes Octatrack pattern trigs as Standard MIDI Files
// and reads trigs back from them.
package midiexport

import (
	"bytes"
	"errors"
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/dijksterhuis/octatools/pkg/octatrack"
)

// AudioNote is the note written for audio track trigs
const AudioNote = 60

// Exporter converts pattern trig masks to MIDI. Each step is a 16th note.
type Exporter struct {
	ticksPerQuarter uint16
}

// NewExporter creates an exporter at 480 ticks per quarter note
func NewExporter() *Exporter {
	return &Exporter{ticksPerQuarter: 480}
}

func (e *Exporter) ticksPerStep() uint32 {
	return uint32(e.ticksPerQuarter) / 4
}

// Export writes pattern p as a format 1 file: a tempo track, then one track
// per audio track on channels 1-8 and one per MIDI track on channels 9-16.
// Audio trigs play AudioNote; MIDI trigs play the note and velocity set on
// the track in part, or in the default part when part is nil.
func (e *Exporter) Export(p *octatrack.Pattern, part *octatrack.Part) ([]byte, error) {
	if p == nil {
		return nil, errors.New("nil pattern")
	}
	if part == nil {
		part = octatrack.DefaultPart(0)
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(e.ticksPerQuarter)

	var tempo smf.Track
	tempo.Add(0, tempoMessage(p.BPM()))
	// 4/4
	tempo.Add(0, smf.Message([]byte{0xFF, 0x58, 0x04, 0x04, 0x02, 0x18, 0x08}))
	tempo.Close(e.ticksPerStep() * uint32(patternLength(p)))
	if err := s.Add(tempo); err != nil {
		return nil, fmt.Errorf("failed to add tempo track: %w", err)
	}

	for t := range p.AudioTracks {
		tr := &p.AudioTracks[t]
		track := e.track(fmt.Sprintf("audio %d", t+1), uint8(t), tr.Masks.Trigger, trackLength(tr.Length, p), AudioNote, 100)
		if err := s.Add(track); err != nil {
			return nil, fmt.Errorf("failed to add audio track %d: %w", t+1, err)
		}
	}
	for t := range p.MidiTracks {
		tr := &p.MidiTracks[t]
		note, velocity := part.MidiValues[t][0], part.MidiValues[t][1]
		track := e.track(fmt.Sprintf("midi %d", t+1), uint8(octatrack.Tracks+t), tr.Masks.Trigger, trackLength(tr.Length, p), note, velocity)
		if err := s.Add(track); err != nil {
			return nil, fmt.Errorf("failed to add midi track %d: %w", t+1, err)
		}
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

// track writes one note per trig, 75% of a step long, padded to length steps
func (e *Exporter) track(name string, channel uint8, trigs octatrack.TrigMask, length int, note, velocity uint8) smf.Track {
	var track smf.Track
	track.Add(0, trackName(name))

	step := e.ticksPerStep()
	gate := step * 3 / 4
	var current uint32
	for i := 0; i < length; i++ {
		if !trigs.Step(i) {
			continue
		}
		at := uint32(i) * step
		track.Add(at-current, midi.NoteOn(channel, note&0x7F, clampVelocity(velocity)))
		track.Add(gate, midi.NoteOff(channel, note&0x7F))
		current = at + gate
	}
	end := uint32(length) * step
	if current > end {
		end = current
	}
	track.Close(end - current)
	return track
}

// Import sets the trigger masks of p from the note-ons in a MIDI file.
// Channels 1-8 map to audio tracks and 9-16 to MIDI tracks. Notes are
// quantized to the nearest step and wrap at 64 steps. The pattern tempo is
// taken from the first tempo event.
func (e *Exporter) Import(data []byte, p *octatrack.Pattern) error {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse MIDI: %w", err)
	}
	ticks := uint32(e.ticksPerQuarter)
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		ticks = uint32(mt.Resolution())
	}
	step := ticks / 4
	if step == 0 {
		return fmt.Errorf("invalid MIDI resolution %d", ticks)
	}

	for i := range p.AudioTracks {
		p.AudioTracks[i].Masks.Trigger = octatrack.TrigMask{}
	}
	for i := range p.MidiTracks {
		p.MidiTracks[i].Masks.Trigger = octatrack.TrigMask{}
	}

	tempoSet := false
	for _, track := range s.Tracks {
		var tick uint32
		for _, ev := range track {
			tick += ev.Delta
			msg := ev.Message

			// tempo meta: FF 51 03 tt tt tt
			if !tempoSet && len(msg) >= 6 && msg[0] == 0xFF && msg[1] == 0x51 && msg[2] == 0x03 {
				usPerBeat := uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
				if usPerBeat > 0 {
					if err := p.SetBPM(60000000.0 / float64(usPerBeat)); err != nil {
						return fmt.Errorf("failed to set tempo: %w", err)
					}
					tempoSet = true
				}
				continue
			}

			if len(msg) < 3 || msg[0] < 0x90 || msg[0] > 0x9F || msg[2] == 0 {
				continue
			}
			n := int((tick+step/2)/step) % octatrack.Steps
			switch ch := int(msg[0] & 0x0F); {
			case ch < octatrack.Tracks:
				p.AudioTracks[ch].Masks.Trigger.Set(n, true)
			default:
				p.MidiTracks[ch-octatrack.Tracks].Masks.Trigger.Set(n, true)
			}
		}
	}
	return nil
}

func tempoMessage(bpm float64) smf.Message {
	if bpm <= 0 {
		bpm = 120
	}
	us := uint32(60000000.0 / bpm)
	return smf.Message([]byte{0xFF, 0x51, 0x03, byte(us >> 16), byte(us >> 8), byte(us)})
}

func trackName(name string) smf.Message {
	if len(name) > 127 {
		name = name[:127]
	}
	return smf.Message(append([]byte{0xFF, 0x03, byte(len(name))}, name...))
}

func clampVelocity(v uint8) uint8 {
	switch {
	case v == 0:
		return 100
	case v > 127:
		return 127
	}
	return v
}

// patternLength is the master length, or 16 when unset
func patternLength(p *octatrack.Pattern) int {
	n := int(p.Scale.MasterLength)
	if n <= 0 || n > octatrack.Steps {
		return 16
	}
	return n
}

// trackLength is a track's own length in per-track mode, else the master length
func trackLength(length uint8, p *octatrack.Pattern) int {
	if p.Scale.Mode != 0 && length > 0 && int(length) <= octatrack.Steps {
		return int(length)
	}
	return patternLength(p)
}
