package transfer

import (
	"sort"

	"github.com/dijksterhuis/octatools/pkg/octatrack"
)

// Reference is a sample slot a bank points at
type Reference struct {
	Class  octatrack.SlotClass `json:"class" yaml:"class"`
	ID     int                 `json:"id" yaml:"id"`
	Loaded bool                `json:"loaded" yaml:"loaded"`
	Path   string              `json:"path,omitempty" yaml:"path,omitempty"`
	Uses   []string            `json:"uses" yaml:"uses"`
}

// ListReferences lists every slot bank refers to, with whether project has
// a sample loaded there
func ListReferences(project *octatrack.Project, bank *octatrack.Bank) ([]Reference, error) {
	tables := make(map[octatrack.SlotClass]map[int]octatrack.SampleSlot)
	for _, class := range []octatrack.SlotClass{octatrack.SlotStatic, octatrack.SlotFlex, octatrack.SlotRecorder} {
		t, err := project.SlotTable(class)
		if err != nil {
			return nil, err
		}
		tables[class] = t
	}

	type key struct {
		class octatrack.SlotClass
		id    int
	}
	byKey := make(map[key]*Reference)
	for _, ref := range bank.SlotRefs() {
		k := key{ref.Class, int(ref.Slot) + 1}
		if recorderRef(ref.Class, ref.Slot) {
			k.class = octatrack.SlotRecorder
		}
		r, ok := byKey[k]
		if !ok {
			r = &Reference{Class: k.class, ID: k.id}
			if s, loaded := tables[k.class][k.id]; loaded {
				r.Loaded, r.Path = true, s.Path
			}
			byKey[k] = r
		}
		r.Uses = append(r.Uses, ref.Where)
	}

	out := make([]Reference, 0, len(byKey))
	for _, r := range byKey {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Class != out[j].Class {
			return out[i].Class < out[j].Class
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
