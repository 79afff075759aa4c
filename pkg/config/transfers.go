package config

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/dijksterhuis/octatools/pkg/codec"
	"github.com/dijksterhuis/octatools/pkg/debug"
	"github.com/dijksterhuis/octatools/pkg/fileio"
	"github.com/dijksterhuis/octatools/pkg/octatrack"
	"github.com/dijksterhuis/octatools/pkg/transfer"
)

// BankLocation names a bank inside a project directory
type BankLocation struct {
	Project string `yaml:"project"`
	Bank    int    `yaml:"bank"`
}

// TransferEntry is one bank transfer
type TransferEntry struct {
	Src      BankLocation `yaml:"src"`
	Dest     BankLocation `yaml:"dest"`
	Override bool         `yaml:"override,omitempty"`
}

// Transfers is a bank-transfer document
type Transfers struct {
	Transfers []TransferEntry `yaml:"bank_copies"`
}

// DefaultTransfers returns an empty document
func DefaultTransfers() *Transfers {
	return &Transfers{}
}

// ParseTransfers decodes a bank-transfer document; unknown keys are errors
func ParseTransfers(data []byte) (*Transfers, error) {
	t := DefaultTransfers()
	if err := yaml.UnmarshalStrict(data, t); err != nil {
		return nil, errors.Wrap(err, "failed to parse transfer config")
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTransfers reads and validates a bank-transfer document
func LoadTransfers(path string) (*Transfers, error) {
	data, err := fileio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	debug.Log("config", "loading transfer config %s", path)
	t, err := ParseTransfers(data)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid transfer config %s", path)
	}
	return t, nil
}

// Marshal encodes the document as YAML
func (t *Transfers) Marshal() ([]byte, error) {
	return yaml.Marshal(t)
}

// Validate checks every entry names two projects and two banks in range
func (t *Transfers) Validate() error {
	for i, e := range t.Transfers {
		for _, loc := range []BankLocation{e.Src, e.Dest} {
			if loc.Project == "" {
				return &EntryError{Index: i, Err: codec.Invalid("project", loc.Project, "a project directory")}
			}
			if loc.Bank < 1 || loc.Bank > octatrack.BanksPerProject {
				return &EntryError{Index: i, Err: codec.Invalid("bank", loc.Bank, "1..16")}
			}
		}
	}
	return nil
}

// RunTransfers applies every transfer in order, so a later entry sees what
// an earlier one wrote. The first failure stops the batch.
func RunTransfers(t *Transfers, opts transfer.Options) ([]*transfer.Result, error) {
	results := make([]*transfer.Result, 0, len(t.Transfers))
	for i, e := range t.Transfers {
		res, err := transfer.Transfer(e.Src.Project, e.Src.Bank, e.Dest.Project, e.Dest.Bank, e.Override, opts)
		if err != nil {
			debug.Log("config", "transfer %d failed: %v", i+1, err)
			return results, &EntryError{Index: i, Err: err}
		}
		results = append(results, res)
	}
	return results, nil
}
