// Package config loads the YAML documents that drive batch chain builds and
// bank transfers, and runs their entries in declaration order.
package config

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/dijksterhuis/octatools/pkg/chain"
	"github.com/dijksterhuis/octatools/pkg/codec"
	"github.com/dijksterhuis/octatools/pkg/debug"
	"github.com/dijksterhuis/octatools/pkg/fileio"
	"github.com/dijksterhuis/octatools/pkg/octatrack"
)

// DeviceSettings are the Octatrack settings written to a chain's .ot file.
// Unset fields fall back to the global block, then to the hardware defaults.
type DeviceSettings struct {
	BPM          *float64                    `yaml:"bpm,omitempty"`
	Gain         *float64                    `yaml:"gain,omitempty"`
	Timestretch  *octatrack.TimestretchMode  `yaml:"timestretch_mode,omitempty"`
	Loop         *octatrack.LoopMode         `yaml:"loop_mode,omitempty"`
	Quantization *octatrack.TrigQuantization `yaml:"quantization_mode,omitempty"`
}

func (d DeviceSettings) apply(s octatrack.SampleSettings) octatrack.SampleSettings {
	if d.BPM != nil {
		s.Tempo = *d.BPM
	}
	if d.Gain != nil {
		s.Gain = *d.Gain
	}
	if d.Timestretch != nil {
		s.Stretch = *d.Timestretch
	}
	if d.Loop != nil {
		s.Loop = *d.Loop
	}
	if d.Quantization != nil {
		s.Quantization = *d.Quantization
	}
	return s
}

// ProcessingSettings are the optional treatments applied to each input
type ProcessingSettings struct {
	FadeIn      *float64 `yaml:"fade_in,omitempty"`
	FadeOut     *float64 `yaml:"fade_out,omitempty"`
	Normalize   *bool    `yaml:"normalize,omitempty"`
	Timestretch *int     `yaml:"timestretch,omitempty"`
}

func (p ProcessingSettings) apply(c chain.Processing) chain.Processing {
	if p.FadeIn != nil {
		c.FadeIn = *p.FadeIn
	}
	if p.FadeOut != nil {
		c.FadeOut = *p.FadeOut
	}
	if p.Normalize != nil {
		c.Normalize = *p.Normalize
	}
	if p.Timestretch != nil {
		c.Stretch = *p.Timestretch
	}
	return c
}

// GlobalSettings apply to every chain in the document
type GlobalSettings struct {
	OutDir     string             `yaml:"out_dir_path"`
	Device     DeviceSettings     `yaml:"octatrack_settings,omitempty"`
	Processing ProcessingSettings `yaml:"processing,omitempty"`
}

// ChainEntry is one chain to build
type ChainEntry struct {
	Name       string             `yaml:"chain_name"`
	Inputs     []string           `yaml:"sample_file_paths"`
	Device     DeviceSettings     `yaml:"octatrack_settings,omitempty"`
	Processing ProcessingSettings `yaml:"processing,omitempty"`
}

// Chains is a chain-build document
type Chains struct {
	Global GlobalSettings `yaml:"global_settings"`
	Chains []ChainEntry   `yaml:"chains"`
}

// DefaultChains returns an empty document writing to the current directory
func DefaultChains() *Chains {
	return &Chains{Global: GlobalSettings{OutDir: "."}}
}

// ParseChains decodes a chain-build document; unknown keys are errors
func ParseChains(data []byte) (*Chains, error) {
	c := DefaultChains()
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, errors.Wrap(err, "failed to parse chain config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadChains reads and validates a chain-build document
func LoadChains(path string) (*Chains, error) {
	data, err := fileio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	debug.Log("config", "loading chain config %s", path)
	c, err := ParseChains(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid chain config %s", path)
	}
	return c, nil
}

// Marshal encodes the document as YAML
func (c *Chains) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Chain returns entry i with the global settings merged in
func (c *Chains) Chain(i int) chain.Chain {
	e := c.Chains[i]
	settings := e.Device.apply(c.Global.Device.apply(octatrack.DefaultSampleSettings()))
	processing := e.Processing.apply(c.Global.Processing.apply(chain.Processing{}))
	return chain.Chain{
		Name:       e.Name,
		Inputs:     e.Inputs,
		Settings:   settings,
		Processing: processing,
	}
}

// Validate checks the output directory, chain names and every merged chain
func (c *Chains) Validate() error {
	if c.Global.OutDir == "" {
		return codec.Invalid("out_dir_path", c.Global.OutDir, "a directory")
	}
	seen := make(map[string]bool)
	for i := range c.Chains {
		ch := c.Chain(i)
		if err := ch.Validate(); err != nil {
			return &EntryError{Index: i, Name: ch.Name, Err: err}
		}
		if seen[ch.Name] {
			return &EntryError{Index: i, Name: ch.Name, Err: codec.Invalid("chain_name", ch.Name, "unique within the document")}
		}
		seen[ch.Name] = true
	}
	return nil
}

// EntryError is a failure of one entry of a batch document
type EntryError struct {
	Index int
	Name  string
	Err   error
}

func (e *EntryError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("entry %d: %v", e.Index+1, e.Err)
	}
	return fmt.Sprintf("entry %d (%s): %v", e.Index+1, e.Name, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// BatchError collects the failed entries of a batch that kept going
type BatchError struct {
	Failures []*EntryError
}

func (e *BatchError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.Error()
	}
	return fmt.Sprintf("%d of the batch's entries failed: %s", len(e.Failures), strings.Join(msgs, "; "))
}

// RunChains builds every chain in order. A failed chain does not stop the
// ones after it; the failures come back together as a *BatchError.
func RunChains(c *Chains) ([]chain.Output, error) {
	var (
		outputs []chain.Output
		failed  []*EntryError
	)
	for i := range c.Chains {
		ch := c.Chain(i)
		out, err := chain.Build(ch, c.Global.OutDir)
		if err != nil {
			debug.Log("config", "chain %d (%s) failed: %v", i+1, ch.Name, err)
			failed = append(failed, &EntryError{Index: i, Name: ch.Name, Err: err})
			continue
		}
		outputs = append(outputs, out...)
	}
	if len(failed) > 0 {
		return outputs, &BatchError{Failures: failed}
	}
	return outputs, nil
}
