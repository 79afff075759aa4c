// Package transfer moves a bank between projects, carrying the sample slots
// it references and remapping every slot reference to the destination.
package transfer

import (
	"path/filepath"
	"sort"

	"github.com/dijksterhuis/octatools/pkg/debug"
	"github.com/dijksterhuis/octatools/pkg/octatrack"
)

// AudioDir is where transferred samples go, relative to a project directory
const AudioDir = "../AUDIO"

// Side is one end of a transfer: a project directory and its decoded records
type Side struct {
	Dir     string
	Project *octatrack.Project
	Bank    *octatrack.Bank
}

// Copy is a sample file to copy into the destination
type Copy struct {
	Src string `json:"src" yaml:"src"`
	Dst string `json:"dst" yaml:"dst"`
}

// Result is a planned or applied transfer
type Result struct {
	// Project is the destination project with the new slots added
	Project   *octatrack.Project `json:"-" yaml:"-"`
	// Bank is the source bank with references remapped to destination slots
	Bank      *octatrack.Bank    `json:"-" yaml:"-"`
	Copies    []Copy             `json:"copies" yaml:"copies"`
	Hazards   []ConflictError    `json:"hazards" yaml:"hazards"`
	Reused    int                `json:"reused" yaml:"reused"`
	Allocated int                `json:"allocated" yaml:"allocated"`
}

// identity is what makes two slots the same: where the audio lives and how it plays
type identity struct {
	class        octatrack.SlotClass
	path         string
	trimBarsX100 int
	stretch      octatrack.TimestretchMode
	loop         octatrack.LoopMode
	gain         uint16
	quantization octatrack.TrigQuantization
	tempo        uint32
}

func identityOf(dir string, s octatrack.SampleSlot) identity {
	return identity{
		class:        s.Class,
		path:         resolve(dir, s.Path),
		trimBarsX100: s.TrimBarsX100,
		stretch:      s.Stretch,
		loop:         s.Loop,
		gain:         s.Gain,
		quantization: s.Quantization,
		tempo:        s.Tempo,
	}
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(dir, path)
}

// CheckDestination returns a ConflictError when bank is not the default bank
// and override is not set
func CheckDestination(path string, bank *octatrack.Bank, override bool) error {
	if override {
		return nil
	}
	empty, err := bank.IsDefault()
	if err != nil {
		return err
	}
	if !empty {
		return &ConflictError{Path: path, Reason: "destination bank is not empty; use override to replace it"}
	}
	return nil
}

// SameFileFunc reports whether the sample at dst holds the same audio as src
type SameFileFunc func(src, dst string) (bool, error)

// Plan works out a transfer of src's bank into dst without touching either
// side. The returned Project and Bank are new values.
//
// A destination slot already loaded with a file of the source sample's name
// is reused only when same confirms the two files match; with a nil same such
// slots are never reused.
func Plan(src, dst Side, override bool, same SameFileFunc) (*Result, error) {
	if err := CheckDestination(dst.Dir, dst.Bank, override); err != nil {
		return nil, err
	}

	res := &Result{Project: dst.Project.Clone()}
	bank := *src.Bank
	res.Bank = &bank

	for _, class := range []octatrack.SlotClass{octatrack.SlotStatic, octatrack.SlotFlex} {
		mapping, err := res.allocate(class, src, dst, same)
		if err != nil {
			return nil, err
		}
		free, err := res.Project.FreeSlots(class)
		if err != nil {
			return nil, err
		}
		isFree := make(map[int]bool, len(free))
		for _, id := range free {
			isFree[id] = true
		}

		res.Bank.RemapSlots(class,
			func(v uint8) uint8 {
				if recorderRef(class, v) {
					return v
				}
				if to, ok := mapping[v]; ok {
					return to
				}
				return octatrack.NoSlot
			},
			func(v uint8) uint8 {
				if recorderRef(class, v) {
					return v
				}
				if to, ok := mapping[v]; ok {
					return to
				}
				if isFree[int(v)+1] || len(free) == 0 {
					return v
				}
				return uint8(free[0] - 1)
			})
	}
	debug.Log("transfer", "planned %s -> %s: %d reused, %d allocated, %d copies",
		src.Dir, dst.Dir, res.Reused, res.Allocated, len(res.Copies))
	return res, nil
}

// recorderRef reports whether a zero-based bank reference points at a recorder buffer
func recorderRef(class octatrack.SlotClass, v uint8) bool {
	return class == octatrack.SlotFlex && int(v) >= octatrack.SlotCapacity && v != octatrack.NoSlot
}

// referencedIDs returns the one-based ids of class that src's bank points at
func referencedIDs(class octatrack.SlotClass, bank *octatrack.Bank) []int {
	seen := make(map[int]bool)
	for _, ref := range bank.SlotRefs() {
		if ref.Class != class || recorderRef(class, ref.Slot) || ref.Slot == octatrack.NoSlot {
			continue
		}
		seen[int(ref.Slot)+1] = true
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func sameFile(same SameFileFunc, src, dst string) (bool, error) {
	if same == nil || src == dst {
		return src == dst, nil
	}
	return same(src, dst)
}

// allocate resolves every loaded source slot of class to a destination slot,
// reusing equal slots and taking the lowest free ids for the rest. It returns
// zero-based source to destination references.
func (r *Result) allocate(class octatrack.SlotClass, src, dst Side, same SameFileFunc) (map[uint8]uint8, error) {
	srcSlots, err := src.Project.SlotTable(class)
	if err != nil {
		return nil, err
	}
	dstSlots, err := r.Project.SlotTable(class)
	if err != nil {
		return nil, err
	}
	existing := make(map[identity]int, len(dstSlots))
	for id, s := range dstSlots {
		if prev, ok := existing[identityOf(dst.Dir, s)]; !ok || id < prev {
			existing[identityOf(dst.Dir, s)] = id
		}
	}

	type pending struct {
		slot   octatrack.SampleSlot
		target string
	}
	resolved := make(map[identity]int)
	var (
		needed []identity
		fresh  = make(map[identity]pending)
		refs   = make(map[int]identity)
	)
	for _, id := range referencedIDs(class, src.Bank) {
		s, ok := srcSlots[id]
		if !ok {
			continue
		}
		k := identityOf(src.Dir, s)
		refs[id] = k
		if _, done := resolved[k]; done {
			continue
		}
		if _, queued := fresh[k]; queued {
			continue
		}

		target := filepath.Join(dst.Dir, AudioDir, filepath.Base(s.Path))
		local := k
		local.path = target
		to, ok := existing[k]
		if !ok {
			if to, ok = existing[local]; ok {
				if ok, err = sameFile(same, k.path, target); err != nil {
					return nil, err
				}
			}
		}
		if !ok {
			needed = append(needed, k)
			fresh[k] = pending{slot: s, target: target}
			continue
		}
		resolved[k] = to
		r.Reused++
	}

	free, err := r.Project.FreeSlots(class)
	if err != nil {
		return nil, err
	}
	if len(needed) > len(free) {
		return nil, &CapacityError{Class: class, Needed: len(needed), Free: len(free)}
	}

	claimed := make(map[string]string)
	for i, k := range needed {
		p := fresh[k]
		slot := p.slot
		slot.ID = free[i]
		slot.Path = filepath.ToSlash(filepath.Join(AudioDir, filepath.Base(p.slot.Path)))
		if err := r.Project.SetSlot(slot); err != nil {
			return nil, err
		}
		resolved[k] = slot.ID
		r.Allocated++

		if from, ok := claimed[p.target]; ok {
			if from != k.path {
				r.Hazards = append(r.Hazards, ConflictError{Path: p.target, Reason: "also the destination of " + from})
			}
			continue
		}
		claimed[p.target] = k.path
		if k.path != p.target {
			r.Copies = append(r.Copies, Copy{Src: k.path, Dst: p.target})
		}
	}

	mapping := make(map[uint8]uint8, len(refs))
	for id, k := range refs {
		mapping[uint8(id-1)] = uint8(resolved[k] - 1)
	}
	return mapping, nil
}
