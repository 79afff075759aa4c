// Package transcode converts decoded Octatrack records to YAML or JSON
// documents and back.
package transcode

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/dijksterhuis/octatools/pkg/octatrack"
)

// Format is a document format
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown document format %q (want json or yaml)", s)
}

// ProjectDocument is the editable form of a project file
type ProjectDocument struct {
	Meta     octatrack.Metadata     `json:"meta" yaml:"meta"`
	Settings []string               `json:"settings" yaml:"settings"`
	States   []string               `json:"states" yaml:"states"`
	Slots    []octatrack.SampleSlot `json:"slots" yaml:"slots"`
}

// NewProjectDocument extracts the document of p
func NewProjectDocument(p *octatrack.Project) (*ProjectDocument, error) {
	meta, err := p.Meta()
	if err != nil {
		return nil, err
	}
	doc := &ProjectDocument{Meta: meta}
	if doc.Settings, err = p.SectionLines("SETTINGS"); err != nil {
		return nil, err
	}
	if doc.States, err = p.SectionLines("STATES"); err != nil {
		return nil, err
	}
	if doc.Slots, err = p.Slots(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Project rebuilds a project file from the document
func (d *ProjectDocument) Project() (*octatrack.Project, error) {
	if d.Meta.Version != 0 && d.Meta.Version != octatrack.ProjectVersion {
		return nil, fmt.Errorf("unsupported project version %d (want %d)", d.Meta.Version, octatrack.ProjectVersion)
	}
	p := octatrack.DefaultProject()
	if err := p.SetSectionLines("SETTINGS", d.Settings); err != nil {
		return nil, err
	}
	if err := p.SetSectionLines("STATES", d.States); err != nil {
		return nil, err
	}
	for n := 0; n < octatrack.RecorderSlots; n++ {
		if err := p.RemoveSlot(octatrack.SlotRecorder, octatrack.FirstRecorderID+n); err != nil {
			return nil, err
		}
	}
	for i, s := range d.Slots {
		if err := p.SetSlot(s); err != nil {
			return nil, fmt.Errorf("failed to set slot %d: %w", i+1, err)
		}
	}
	return p, nil
}

// Marshal encodes r as a document
func Marshal(r octatrack.Record, f Format) ([]byte, error) {
	var v any = r
	if p, ok := r.(*octatrack.Project); ok {
		doc, err := NewProjectDocument(p)
		if err != nil {
			return nil, err
		}
		v = doc
	}
	switch f {
	case FormatJSON:
		return json.MarshalIndent(v, "", "  ")
	case FormatYAML:
		return yaml.Marshal(v)
	}
	return nil, fmt.Errorf("unknown document format %q", f)
}

// Unmarshal decodes a document of file type t. Fields missing from the
// document keep their default values. The record is checked by encoding it.
func Unmarshal(t octatrack.FileType, data []byte, f Format) (octatrack.Record, error) {
	if t == octatrack.FileProject {
		var doc ProjectDocument
		if err := unmarshal(data, f, &doc); err != nil {
			return nil, err
		}
		return doc.Project()
	}

	r, err := octatrack.Default(t)
	if err != nil {
		return nil, err
	}
	if err := unmarshal(data, f, r); err != nil {
		return nil, err
	}
	if _, err := r.Encode(); err != nil {
		return nil, fmt.Errorf("document does not encode as a %s: %w", t, err)
	}
	return r, nil
}

func unmarshal(data []byte, f Format, v any) error {
	var err error
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, v)
	case FormatYAML:
		err = yaml.Unmarshal(data, v)
	default:
		return fmt.Errorf("unknown document format %q", f)
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s document: %w", f, err)
	}
	return nil
}
