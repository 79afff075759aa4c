package octatrack

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dijksterhuis/octatools/pkg/codec"
)

// LoopMode is a sample's default loop behaviour
type LoopMode uint32

const (
	LoopOff      LoopMode = 0
	LoopNormal   LoopMode = 1
	LoopPingPong LoopMode = 2
)

// Valid reports whether m is a known loop mode
func (m LoopMode) Valid() bool {
	return m <= LoopPingPong
}

func (m LoopMode) String() string {
	switch m {
	case LoopOff:
		return "off"
	case LoopNormal:
		return "normal"
	case LoopPingPong:
		return "pingpong"
	}
	return fmt.Sprintf("LoopMode(%d)", uint32(m))
}

// MarshalText writes the mode's name
func (m LoopMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, codec.Invalid("loop mode", uint32(m), "off, normal, pingpong")
	}
	return []byte(m.String()), nil
}

// UnmarshalText accepts what ParseLoopMode accepts
func (m *LoopMode) UnmarshalText(b []byte) error {
	v, err := ParseLoopMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseLoopMode accepts off, normal or pingpong
func ParseLoopMode(s string) (LoopMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return LoopOff, nil
	case "normal", "on":
		return LoopNormal, nil
	case "pingpong", "ping-pong":
		return LoopPingPong, nil
	}
	return 0, codec.Invalid("loop mode", s, "off, normal, pingpong")
}

// TimestretchMode is a sample's default timestretch algorithm
type TimestretchMode uint32

const (
	StretchOff    TimestretchMode = 0
	StretchNormal TimestretchMode = 2
	StretchBeat   TimestretchMode = 3
)

// Valid reports whether m is a known timestretch mode
func (m TimestretchMode) Valid() bool {
	return m == StretchOff || m == StretchNormal || m == StretchBeat
}

func (m TimestretchMode) String() string {
	switch m {
	case StretchOff:
		return "off"
	case StretchNormal:
		return "normal"
	case StretchBeat:
		return "beat"
	}
	return fmt.Sprintf("TimestretchMode(%d)", uint32(m))
}

func (m TimestretchMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, codec.Invalid("timestretch mode", uint32(m), "off, normal, beat")
	}
	return []byte(m.String()), nil
}

func (m *TimestretchMode) UnmarshalText(b []byte) error {
	v, err := ParseTimestretchMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseTimestretchMode accepts off, normal or beat
func ParseTimestretchMode(s string) (TimestretchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return StretchOff, nil
	case "normal", "":
		return StretchNormal, nil
	case "beat":
		return StretchBeat, nil
	}
	return 0, codec.Invalid("timestretch mode", s, "off, normal, beat")
}

// TrigQuantization is the trig quantization applied when a sample is triggered
type TrigQuantization uint8

const (
	QuantPatternLength TrigQuantization = 0
	QuantDirect        TrigQuantization = 255
)

// quantSteps maps ordinals 1..16 to their step counts
var quantSteps = [...]int{1, 2, 3, 4, 6, 8, 12, 16, 24, 32, 48, 64, 96, 128, 192, 256}

// QuantSteps returns the quantization for a step count
func QuantSteps(steps int) (TrigQuantization, error) {
	for i, n := range quantSteps {
		if n == steps {
			return TrigQuantization(i + 1), nil
		}
	}
	return 0, codec.Invalid("trig quantization", steps, "1,2,3,4,6,8,12,16,24,32,48,64,96,128,192,256 steps")
}

// Valid reports whether q is a known quantization mode
func (q TrigQuantization) Valid() bool {
	return q == QuantDirect || q <= TrigQuantization(len(quantSteps))
}

// Steps returns the step count, or 0 for direct and pattern length modes
func (q TrigQuantization) Steps() int {
	if q == QuantDirect || q == QuantPatternLength || !q.Valid() {
		return 0
	}
	return quantSteps[q-1]
}

func (q TrigQuantization) String() string {
	switch {
	case q == QuantDirect:
		return "direct"
	case q == QuantPatternLength:
		return "pattern"
	case q.Valid():
		return strconv.Itoa(q.Steps())
	}
	return fmt.Sprintf("TrigQuantization(%d)", uint8(q))
}

// MarshalText writes direct, pattern or the step count
func (q TrigQuantization) MarshalText() ([]byte, error) {
	if !q.Valid() {
		return nil, codec.Invalid("trig quantization", uint8(q), "closed enumeration")
	}
	return []byte(q.String()), nil
}

func (q *TrigQuantization) UnmarshalText(b []byte) error {
	v, err := ParseTrigQuantization(string(b))
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// ParseTrigQuantization accepts direct, pattern or a step count
func ParseTrigQuantization(s string) (TrigQuantization, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct", "":
		return QuantDirect, nil
	case "pattern", "pattern-length":
		return QuantPatternLength, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, codec.Invalid("trig quantization", s, "direct, pattern or a step count")
	}
	return QuantSteps(n)
}

// projectValue is the TRIGQUANTIZATION encoding used in project files
func (q TrigQuantization) projectValue() int {
	if q == QuantDirect {
		return -1
	}
	return int(q)
}

func trigQuantizationFromProject(v int) (TrigQuantization, bool) {
	if v == -1 {
		return QuantDirect, true
	}
	if v < 0 || v > len(quantSteps) {
		return 0, false
	}
	return TrigQuantization(v), true
}
