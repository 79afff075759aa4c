package octatrack

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dijksterhuis/octatools/pkg/codec"
)

// Bank constants
const (
	BankSize        = 636113
	PatternsPerBank = 16
	BanksPerProject = 16
	partNameSize    = 7
)

// BankHeader opens every bank file
var BankHeader = [22]byte{
	0x46, 0x4F, 0x52, 0x4D, 0x00, 0x00, 0x00, 0x00,
	0x44, 0x50, 0x53, 0x31, 0x42, 0x41, 0x4E, 0x4B,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x17,
}

// SlotClass distinguishes the two sample slot tables
type SlotClass int

const (
	SlotStatic SlotClass = iota
	SlotFlex
)

func (c SlotClass) String() string {
	switch c {
	case SlotStatic:
		return "static"
	case SlotFlex:
		return "flex"
	case SlotRecorder:
		return "recorder"
	}
	return fmt.Sprintf("SlotClass(%d)", int(c))
}

// ParseSlotClass accepts static or flex, matching the project file's TYPE values
func ParseSlotClass(s string) (SlotClass, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STATIC":
		return SlotStatic, nil
	case "FLEX":
		return SlotFlex, nil
	}
	return 0, codec.Invalid("slot type", s, "STATIC, FLEX")
}

func (c SlotClass) MarshalText() ([]byte, error) {
	if c < SlotStatic || c > SlotRecorder {
		return nil, codec.Invalid("slot class", int(c), "static, flex, recorder")
	}
	return []byte(c.String()), nil
}

// UnmarshalText accepts static, flex or recorder
func (c *SlotClass) UnmarshalText(b []byte) error {
	if strings.EqualFold(strings.TrimSpace(string(b)), "recorder") {
		*c = SlotRecorder
		return nil
	}
	v, err := ParseSlotClass(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Bank is a bankNN.work or bankNN.strd file
type Bank struct {
	Header     [22]byte                         `json:"header" yaml:"header"`
	Patterns   [PatternsPerBank]Pattern         `json:"patterns" yaml:"patterns"`
	Parts      [PartsPerBank]Part               `json:"parts" yaml:"parts"`
	SavedParts [PartsPerBank]Part               `json:"saved_parts" yaml:"saved_parts"`
	Unknown    [5]byte                          `json:"unknown" yaml:"unknown"`
	PartNames  [PartsPerBank][partNameSize]byte `json:"part_names" yaml:"part_names"`
	Checksum   uint16                           `json:"checksum" yaml:"checksum"`
}

var bankLayout = codec.NewLayout("bank",
	codec.Magic("header", BankHeader[:], func(b *Bank) []byte { return b.Header[:] }),
	codec.Array("patterns", PatternsPerBank, patternLayout, func(b *Bank, i int) *Pattern { return &b.Patterns[i] }),
	codec.Array("parts", PartsPerBank, partLayout, func(b *Bank, i int) *Part { return &b.Parts[i] }),
	codec.Array("saved_parts", PartsPerBank, partLayout, func(b *Bank, i int) *Part { return &b.SavedParts[i] }),
	codec.Bytes("unknown", 5, func(b *Bank) []byte { return b.Unknown[:] }),
	codec.Rows("part_names", PartsPerBank, partNameSize, func(b *Bank, i int) []byte { return b.PartNames[i][:] }),
	codec.Uint16("checksum", func(b *Bank) *uint16 { return &b.Checksum }),
)

var defaultPartNames = [PartsPerBank]string{"ONE", "TWO", "THREE", "FOUR"}

// DefaultBank returns the bank the hardware writes for a new project
func DefaultBank() *Bank {
	b := &Bank{Header: BankHeader}
	for i := range b.Patterns {
		b.Patterns[i] = *DefaultPattern()
	}
	for i := 0; i < PartsPerBank; i++ {
		b.Parts[i] = *DefaultPart(uint8(i))
		b.SavedParts[i] = *DefaultPart(uint8(i))
		copy(b.PartNames[i][:], defaultPartNames[i])
	}
	return b
}

// DecodeBank parses a bank image
func DecodeBank(data []byte) (*Bank, error) {
	return bankLayout.Decode(data)
}

// Encode serializes the bank
func (b *Bank) Encode() ([]byte, error) {
	return bankLayout.Encode(b)
}

// IsDefault reports whether the bank is byte-identical to DefaultBank,
// ignoring the checksum
func (b *Bank) IsDefault() (bool, error) {
	got, err := b.Encode()
	if err != nil {
		return false, err
	}
	want, err := DefaultBank().Encode()
	if err != nil {
		return false, err
	}
	return bytes.Equal(got[:BankSize-2], want[:BankSize-2]), nil
}

// PartName returns part i's name without padding
func (b *Bank) PartName(i int) string {
	return strings.TrimRight(string(b.PartNames[i][:]), "\x00 ")
}

// SetPartName stores an ASCII part name of at most 7 characters
func (b *Bank) SetPartName(i int, name string) error {
	if i < 0 || i >= PartsPerBank {
		return codec.Invalid("part", i, "0..3")
	}
	if len(name) > partNameSize || !isASCII(name) {
		return codec.Invalid("part name", name, fmt.Sprintf("up to %d ASCII characters", partNameSize))
	}
	b.PartNames[i] = [partNameSize]byte{}
	copy(b.PartNames[i][:], name)
	return nil
}

// SlotRef is one place in a bank that points at a sample slot
type SlotRef struct {
	Class SlotClass
	// Slot is the zero-based slot index stored in the bank
	Slot  uint8
	// Where is a human-readable location such as "pattern 3 track 1 step 16"
	Where string
}

// SlotRefs lists every slot reference in the bank: audio p-locks in all
// patterns, then machine slots in unsaved and saved parts
func (b *Bank) SlotRefs() []SlotRef {
	var refs []SlotRef
	for p := range b.Patterns {
		for t := range b.Patterns[p].AudioTracks {
			for s, pl := range b.Patterns[p].AudioTracks[t].Plocks {
				where := fmt.Sprintf("pattern %d track %d step %d", p+1, t+1, s+1)
				if pl.StaticSlot != NoSlot {
					refs = append(refs, SlotRef{SlotStatic, pl.StaticSlot, where})
				}
				if pl.FlexSlot != NoSlot {
					refs = append(refs, SlotRef{SlotFlex, pl.FlexSlot, where})
				}
			}
		}
	}
	for _, set := range []struct {
		name  string
		parts *[PartsPerBank]Part
	}{{"part", &b.Parts}, {"saved part", &b.SavedParts}} {
		for p := range set.parts {
			for t, s := range set.parts[p].Slots {
				where := fmt.Sprintf("%s %d track %d", set.name, p+1, t+1)
				refs = append(refs, SlotRef{SlotStatic, s.Static, where}, SlotRef{SlotFlex, s.Flex, where})
			}
		}
	}
	return refs
}

// RemapSlots rewrites every slot reference of class through the p-lock and machine mappers
func (b *Bank) RemapSlots(class SlotClass, plock, machine func(uint8) uint8) {
	for i := range b.Patterns {
		b.Patterns[i].RemapPlockSlots(class, func(v uint8) uint8 {
			if v == NoSlot {
				return v
			}
			return plock(v)
		})
	}
	for i := range b.Parts {
		b.Parts[i].RemapMachineSlots(class, machine)
		b.SavedParts[i].RemapMachineSlots(class, machine)
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return false
		}
	}
	return true
}
