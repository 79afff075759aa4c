package octatrack

import (
	"fmt"
	"strings"

	"github.com/dijksterhuis/octatools/pkg/codec"
)

// Arrangement constants. The row count is a single byte where 0 means an
// empty arrangement, so at most MaxRows of the rowSlots rows are addressable;
// the last slot is carried through as raw bytes.
const (
	ArrangementSize        = 11336
	ArrangementsPerProject = 8
	RowSize                = 22
	MaxRows                = 255
	arrangementNameSize    = 15
	reminderSize           = 15
	rowSlots               = 256
)

// ArrangementHeader opens every arrangement file
var ArrangementHeader = [22]byte{
	0x46, 0x4F, 0x52, 0x4D, 0x00, 0x00, 0x00, 0x00,
	0x44, 0x50, 0x53, 0x31, 0x41, 0x52, 0x52, 0x41,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x06,
}

const defaultArrangementName = "OCTATOOLS-ARR  "

// RowKind is the first byte of an arrangement row
type RowKind uint8

const (
	RowPattern  RowKind = 0
	RowLoop     RowKind = 1
	RowReminder RowKind = 2
)

// Row is one line of an arrangement
type Row interface {
	Kind() RowKind
	Validate() error
	image() [RowSize]byte
}

// PatternRow plays a pattern
type PatternRow struct {
	Pattern       uint8    `json:"pattern" yaml:"pattern"`
	Repetitions   uint8    `json:"repetitions" yaml:"repetitions"`
	MuteMask      uint8    `json:"mute_mask" yaml:"mute_mask"`
	Tempo1        uint8    `json:"tempo_1" yaml:"tempo_1"`
	Tempo2        uint8    `json:"tempo_2" yaml:"tempo_2"`
	SceneA        uint8    `json:"scene_a" yaml:"scene_a"`
	SceneB        uint8    `json:"scene_b" yaml:"scene_b"`
	Offset        uint8    `json:"offset" yaml:"offset"`
	Length        uint8    `json:"length" yaml:"length"`
	MidiTranspose [8]uint8 `json:"midi_transpose" yaml:"midi_transpose"`
}

func (PatternRow) Kind() RowKind { return RowPattern }

// Validate checks repetitions and scene indices
func (r PatternRow) Validate() error {
	if r.Repetitions > 63 {
		return codec.Invalid("repetitions", r.Repetitions, "0..63")
	}
	for _, s := range []uint8{r.SceneA, r.SceneB} {
		if s > 15 && s != 255 {
			return codec.Invalid("scene", s, "0..15 or 255")
		}
	}
	return nil
}

func (r PatternRow) image() [RowSize]byte {
	b := [RowSize]byte{
		byte(RowPattern), r.Pattern, r.Repetitions, 0, r.MuteMask, 0,
		r.Tempo1, r.Tempo2, r.SceneA, r.SceneB, 0, r.Offset, 0, r.Length,
	}
	copy(b[14:], r.MidiTranspose[:])
	return b
}

// LoopRow loops back to a row, jumps to it, or halts when Count is 0
type LoopRow struct {
	Count  uint8 `json:"count" yaml:"count"`
	Target uint8 `json:"target" yaml:"target"`
}

func (LoopRow) Kind() RowKind { return RowLoop }

// Validate checks the loop count
func (r LoopRow) Validate() error {
	if r.Count > 100 {
		return codec.Invalid("loop count", r.Count, "0..100")
	}
	return nil
}

func (r LoopRow) image() [RowSize]byte {
	return [RowSize]byte{byte(RowLoop), r.Count, r.Target}
}

// ReminderRow is a text note shown while the arrangement plays
type ReminderRow struct {
	Text string `json:"text" yaml:"text"`
}

func (ReminderRow) Kind() RowKind { return RowReminder }

// Validate checks the text fits
func (r ReminderRow) Validate() error {
	if len(r.Text) > reminderSize || !isASCII(r.Text) {
		return codec.Invalid("reminder", r.Text, "up to 15 ASCII characters")
	}
	return nil
}

func (r ReminderRow) image() [RowSize]byte {
	var b [RowSize]byte
	b[0] = byte(RowReminder)
	copy(b[1:1+reminderSize], r.Text)
	return b
}

// EmptyRow is returned for positions past the row count
type EmptyRow struct{}

func (EmptyRow) Kind() RowKind        { return RowPattern }
func (EmptyRow) Validate() error      { return nil }
func (EmptyRow) image() [RowSize]byte { return [RowSize]byte{} }

// ArrangementBlock is one copy of an arrangement
type ArrangementBlock struct {
	Name    [arrangementNameSize]byte `json:"name" yaml:"name"`
	Unknown [2]byte                   `json:"unknown" yaml:"unknown"`
	NRows   uint8                     `json:"n_rows" yaml:"n_rows"`
	Rows    [rowSlots][RowSize]byte   `json:"rows" yaml:"rows"`
}

var arrangementBlockLayout = codec.NewLayout("arrangement block",
	codec.Bytes("name", arrangementNameSize, func(b *ArrangementBlock) []byte { return b.Name[:] }),
	codec.Bytes("unknown", 2, func(b *ArrangementBlock) []byte { return b.Unknown[:] }),
	codec.Uint8("n_rows", func(b *ArrangementBlock) *uint8 { return &b.NRows }),
	codec.Rows("rows", rowSlots, RowSize, func(b *ArrangementBlock, i int) []byte { return b.Rows[i][:] }),
)

func defaultArrangementBlock() ArrangementBlock {
	var b ArrangementBlock
	copy(b.Name[:], defaultArrangementName)
	return b
}

// Len returns the number of rows in use
func (b *ArrangementBlock) Len() int {
	return int(b.NRows)
}

// NameString returns the block name without padding
func (b *ArrangementBlock) NameString() string {
	return strings.TrimRight(string(b.Name[:]), " \x00")
}

// SetName stores an ASCII name of at most 15 characters, space padded
func (b *ArrangementBlock) SetName(name string) error {
	if len(name) > arrangementNameSize || !isASCII(name) {
		return codec.Invalid("arrangement name", name, "up to 15 ASCII characters")
	}
	copy(b.Name[:], fmt.Sprintf("%-15s", name))
	return nil
}

// Row interprets row i
func (b *ArrangementBlock) Row(i int) (Row, error) {
	if i < 0 || i >= rowSlots {
		return nil, codec.Invalid("row", i, "0..255")
	}
	if i >= b.Len() {
		return EmptyRow{}, nil
	}
	raw := b.Rows[i]
	switch RowKind(raw[0]) {
	case RowPattern:
		r := PatternRow{
			Pattern:     raw[1],
			Repetitions: raw[2],
			MuteMask:    raw[4],
			Tempo1:      raw[6],
			Tempo2:      raw[7],
			SceneA:      raw[8],
			SceneB:      raw[9],
			Offset:      raw[11],
			Length:      raw[13],
		}
		copy(r.MidiTranspose[:], raw[14:])
		return r, nil
	case RowLoop:
		return LoopRow{Count: raw[1], Target: raw[2]}, nil
	case RowReminder:
		return ReminderRow{Text: strings.TrimRight(string(raw[1:1+reminderSize]), "\x00")}, nil
	}
	return nil, &codec.FormatError{
		Record:   "arrangement block",
		Field:    fmt.Sprintf("rows[%d]", i),
		Offset:   arrangementNameSize + 3 + i*RowSize,
		Expected: "row kind 0, 1 or 2",
		Actual:   fmt.Sprint(raw[0]),
	}
}

// SetRow validates r and writes it at position i, which must already be in use
func (b *ArrangementBlock) SetRow(i int, r Row) error {
	if i < 0 || i >= b.Len() {
		return codec.Invalid("row", i, fmt.Sprintf("0..%d", b.Len()-1))
	}
	if err := r.Validate(); err != nil {
		return err
	}
	b.Rows[i] = r.image()
	return nil
}

// AppendRow validates r and adds it after the last row
func (b *ArrangementBlock) AppendRow(r Row) error {
	if b.Len() >= MaxRows {
		return codec.Invalid("row count", b.Len()+1, fmt.Sprintf("0..%d", MaxRows))
	}
	if err := r.Validate(); err != nil {
		return err
	}
	b.Rows[b.NRows] = r.image()
	b.NRows++
	return nil
}

// Truncate drops rows from n onwards
func (b *ArrangementBlock) Truncate(n int) {
	if n < 0 || n >= b.Len() {
		return
	}
	for i := n; i < b.Len(); i++ {
		b.Rows[i] = [RowSize]byte{}
	}
	b.NRows = uint8(n)
}

// Arrangement is an arrNN.work or arrNN.strd file. Current is the edited copy,
// Saved the one restored on reload.
type Arrangement struct {
	Header     [22]byte         `json:"header" yaml:"header"`
	Unknown1   [2]byte          `json:"unknown_1" yaml:"unknown_1"`
	Current    ArrangementBlock `json:"current" yaml:"current"`
	Unknown2   [2]byte          `json:"unknown_2" yaml:"unknown_2"`
	Saved      ArrangementBlock `json:"saved" yaml:"saved"`
	ActiveFlag [8]byte          `json:"active_flag" yaml:"active_flag"`
	Checksum   [2]byte          `json:"checksum" yaml:"checksum"`
}

var arrangementLayout = codec.NewLayout("arrangement",
	codec.Magic("header", ArrangementHeader[:], func(a *Arrangement) []byte { return a.Header[:] }),
	codec.Bytes("unknown_1", 2, func(a *Arrangement) []byte { return a.Unknown1[:] }),
	codec.Nested("current", arrangementBlockLayout, func(a *Arrangement) *ArrangementBlock { return &a.Current }),
	codec.Bytes("unknown_2", 2, func(a *Arrangement) []byte { return a.Unknown2[:] }),
	codec.Nested("saved", arrangementBlockLayout, func(a *Arrangement) *ArrangementBlock { return &a.Saved }),
	codec.Bytes("active_flag", 8, func(a *Arrangement) []byte { return a.ActiveFlag[:] }),
	codec.Bytes("checksum", 2, func(a *Arrangement) []byte { return a.Checksum[:] }),
)

// DefaultArrangement returns an empty arrangement
func DefaultArrangement() *Arrangement {
	return &Arrangement{
		Header:  ArrangementHeader,
		Current: defaultArrangementBlock(),
		Saved:   defaultArrangementBlock(),
	}
}

// DecodeArrangement parses an arrangement image
func DecodeArrangement(data []byte) (*Arrangement, error) {
	return arrangementLayout.Decode(data)
}

// Encode serializes the arrangement
func (a *Arrangement) Encode() ([]byte, error) {
	return arrangementLayout.Encode(a)
}
