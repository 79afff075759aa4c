package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dijksterhuis/octatools/pkg/chain"
	"github.com/dijksterhuis/octatools/pkg/codec"
	"github.com/dijksterhuis/octatools/pkg/octatrack"
	"github.com/dijksterhuis/octatools/pkg/transfer"
)

const chainsYAML = `
global_settings:
  out_dir_path: out
  octatrack_settings:
    bpm: 140
    loop_mode: pingpong
  processing:
    normalize: true
chains:
  - chain_name: drums
    sample_file_paths: [kick.wav, snare.wav]
  - chain_name: pads
    sample_file_paths: [pad.wav]
    octatrack_settings:
      bpm: 90.5
      gain: -6
      timestretch_mode: beat
      quantization_mode: 16
    processing:
      fade_in: 0.1
      normalize: false
      timestretch: -1
`

func TestParseChains(t *testing.T) {
	c, err := ParseChains([]byte(chainsYAML))
	if err != nil {
		t.Fatalf("ParseChains() error = %v", err)
	}
	if c.Global.OutDir != "out" || len(c.Chains) != 2 {
		t.Fatalf("ParseChains() = %+v", c)
	}

	drums := c.Chain(0)
	want := octatrack.DefaultSampleSettings()
	want.Tempo = 140
	want.Loop = octatrack.LoopPingPong
	if drums.Settings != want {
		t.Errorf("drums settings = %+v, want %+v", drums.Settings, want)
	}
	if drums.Processing != (chain.Processing{Normalize: true}) {
		t.Errorf("drums processing = %+v", drums.Processing)
	}

	pads := c.Chain(1)
	if pads.Settings.Tempo != 90.5 || pads.Settings.Gain != -6 || pads.Settings.Loop != octatrack.LoopPingPong ||
		pads.Settings.Stretch != octatrack.StretchBeat || pads.Settings.Quantization.Steps() != 16 {
		t.Errorf("pads settings = %+v", pads.Settings)
	}
	if pads.Processing != (chain.Processing{FadeIn: 0.1, Stretch: -1}) {
		t.Errorf("pads processing = %+v", pads.Processing)
	}
}

func TestParseChainsErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "global_settings:\n  out_dir: x\nchains: []\n"},
		{"bad loop mode", "chains:\n  - chain_name: a\n    sample_file_paths: [a.wav]\n    octatrack_settings:\n      loop_mode: sideways\n"},
		{"bpm out of range", "chains:\n  - chain_name: a\n    sample_file_paths: [a.wav]\n    octatrack_settings:\n      bpm: 400\n"},
		{"no inputs", "chains:\n  - chain_name: a\n    sample_file_paths: []\n"},
		{"duplicate name", "chains:\n  - chain_name: a\n    sample_file_paths: [a.wav]\n  - chain_name: a\n    sample_file_paths: [b.wav]\n"},
		{"fade", "chains:\n  - chain_name: a\n    sample_file_paths: [a.wav]\n    processing:\n      fade_out: 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseChains([]byte(tt.yaml)); err == nil {
				t.Errorf("ParseChains() error = nil, want error")
			}
		})
	}
}

func TestChainsMarshal(t *testing.T) {
	c, err := ParseChains([]byte(chainsYAML))
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	again, err := ParseChains(out)
	if err != nil {
		t.Fatalf("ParseChains(Marshal()) error = %v\n%s", err, out)
	}
	if again.Chain(1).Settings != c.Chain(1).Settings {
		t.Errorf("settings changed through Marshal: %+v, want %+v", again.Chain(1).Settings, c.Chain(1).Settings)
	}
	if !strings.Contains(string(out), "loop_mode: pingpong") {
		t.Errorf("Marshal() does not name the loop mode:\n%s", out)
	}
}

func TestRunChainsKeepsGoing(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.wav")
	if err := chain.WriteWAV(good, chain.NewBuffer(100, 1, 44100, 16)); err != nil {
		t.Fatal(err)
	}
	c := DefaultChains()
	c.Global.OutDir = filepath.Join(dir, "out")
	c.Chains = []ChainEntry{
		{Name: "broken", Inputs: []string{filepath.Join(dir, "missing.wav")}},
		{Name: "fine", Inputs: []string{good}},
	}

	outputs, err := RunChains(c)
	var be *BatchError
	if !errors.As(err, &be) {
		t.Fatalf("RunChains() error = %v, want *BatchError", err)
	}
	if len(be.Failures) != 1 || be.Failures[0].Index != 0 || be.Failures[0].Name != "broken" {
		t.Errorf("Failures = %v", be.Failures)
	}
	if len(outputs) != 1 || filepath.Base(outputs[0].AudioPath) != "fine-1.wav" {
		t.Errorf("RunChains() outputs = %+v", outputs)
	}
}

func TestParseTransfers(t *testing.T) {
	doc := `
bank_copies:
  - src: {project: a/PROJ, bank: 1}
    dest: {project: b/PROJ, bank: 16}
    override: true
`
	tr, err := ParseTransfers([]byte(doc))
	if err != nil {
		t.Fatalf("ParseTransfers() error = %v", err)
	}
	want := TransferEntry{Src: BankLocation{"a/PROJ", 1}, Dest: BankLocation{"b/PROJ", 16}, Override: true}
	if len(tr.Transfers) != 1 || tr.Transfers[0] != want {
		t.Errorf("ParseTransfers() = %+v, want %+v", tr.Transfers, want)
	}

	bad := "bank_copies:\n  - src: {project: a, bank: 17}\n    dest: {project: b, bank: 1}\n"
	_, err = ParseTransfers([]byte(bad))
	var ve *codec.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("ParseTransfers() error = %v, want *ValidationError", err)
	}
}

func TestRunTransfersInOrder(t *testing.T) {
	root := t.TempDir()
	src, dst := filepath.Join(root, "A", "PROJ"), filepath.Join(root, "B", "PROJ")
	for _, dir := range []string{src, dst} {
		if err := octatrack.CreateProject(dir, false); err != nil {
			t.Fatal(err)
		}
	}
	busy := octatrack.DefaultBank()
	if err := busy.SetPartName(0, "LIVE"); err != nil {
		t.Fatal(err)
	}
	if err := octatrack.WriteFile(filepath.Join(src, "bank01.work"), busy); err != nil {
		t.Fatal(err)
	}

	// the second entry targets the bank the first one just filled
	tr := &Transfers{Transfers: []TransferEntry{
		{Src: BankLocation{src, 1}, Dest: BankLocation{dst, 5}},
		{Src: BankLocation{src, 1}, Dest: BankLocation{dst, 5}},
		{Src: BankLocation{src, 1}, Dest: BankLocation{dst, 6}},
	}}
	results, err := RunTransfers(tr, transfer.Options{})
	var ee *EntryError
	if !errors.As(err, &ee) {
		t.Fatalf("RunTransfers() error = %v, want *EntryError", err)
	}
	if ee.Index != 1 {
		t.Errorf("failed entry = %d, want 1", ee.Index)
	}
	var ce *transfer.ConflictError
	if !errors.As(err, &ce) {
		t.Errorf("RunTransfers() error = %v, want a *ConflictError cause", err)
	}
	if len(results) != 1 {
		t.Errorf("len(results) = %d, want 1", len(results))
	}

	b, err := octatrack.ReadBankFile(filepath.Join(dst, "bank06.work"))
	if err != nil {
		t.Fatal(err)
	}
	if b.PartName(0) != "ONE" {
		t.Error("RunTransfers() ran an entry after the failure")
	}
	if _, err := os.Stat(filepath.Join(dst, "bank05.work")); err != nil {
		t.Fatal(err)
	}
}
