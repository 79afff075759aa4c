package transfer

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/dijksterhuis/octatools/pkg/codec"
	"github.com/dijksterhuis/octatools/pkg/debug"
	"github.com/dijksterhuis/octatools/pkg/fileio"
	"github.com/dijksterhuis/octatools/pkg/octatrack"
)

// Options tune Transfer
type Options struct {
	// DryRun plans and checks hazards without writing anything
	DryRun bool
	// Now stamps backup names; zero means time.Now
	Now time.Time
}

func checkBankNumber(n int) error {
	if n < 1 || n > octatrack.BanksPerProject {
		return codec.Invalid("bank number", n, "1..16")
	}
	return nil
}

// Transfer copies bank srcBank of the project in srcDir into bank dstBank of
// the project in dstDir. The destination project and bank are backed up
// before they are replaced. Samples whose name is already taken by a
// different file are reported as hazards and left in place.
func Transfer(srcDir string, srcBank int, dstDir string, dstBank int, override bool, opts Options) (*Result, error) {
	if err := checkBankNumber(srcBank); err != nil {
		return nil, err
	}
	if err := checkBankNumber(dstBank); err != nil {
		return nil, err
	}

	dstBankPath := filepath.Join(dstDir, octatrack.BankFileName(dstBank))
	dstProjectPath := filepath.Join(dstDir, octatrack.ProjectFileName)
	dst := Side{Dir: dstDir}
	var err error
	if dst.Bank, err = octatrack.ReadBankFile(dstBankPath); err != nil {
		return nil, err
	}
	if err := CheckDestination(dstBankPath, dst.Bank, override); err != nil {
		return nil, err
	}
	if dst.Project, err = octatrack.ReadProjectFile(dstProjectPath); err != nil {
		return nil, err
	}

	src := Side{Dir: srcDir}
	if src.Project, err = octatrack.ReadProjectFile(filepath.Join(srcDir, octatrack.ProjectFileName)); err != nil {
		return nil, err
	}
	if src.Bank, err = octatrack.ReadBankFile(filepath.Join(srcDir, octatrack.BankFileName(srcBank))); err != nil {
		return nil, err
	}

	res, err := Plan(src, dst, override, sameSample)
	if err != nil {
		return nil, err
	}

	var pending []Copy
	for _, c := range res.Copies {
		if !fileio.Exists(c.Dst) {
			pending = append(pending, c)
			continue
		}
		same, err := fileio.SameContent(c.Src, c.Dst)
		if err != nil {
			return nil, err
		}
		if !same {
			res.Hazards = append(res.Hazards, ConflictError{Path: c.Dst, Reason: "a different file with this name exists"})
		}
	}
	if opts.DryRun {
		return res, nil
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	for _, path := range []string{dstProjectPath, dstBankPath} {
		backup, err := fileio.Backup(path, now)
		if err != nil {
			return nil, err
		}
		debug.Log("transfer", "backed up %s to %s", path, backup)
	}

	for _, c := range pending {
		if err := copySample(c); err != nil {
			return nil, err
		}
	}

	if err := octatrack.WriteFile(dstProjectPath, res.Project); err != nil {
		return nil, errors.Wrap(err, "failed to write destination project")
	}
	if err := octatrack.WriteFile(dstBankPath, res.Bank); err != nil {
		return nil, errors.Wrap(err, "failed to write destination bank")
	}
	debug.Log("transfer", "bank %d of %s -> bank %d of %s", srcBank, srcDir, dstBank, dstDir)
	return res, nil
}

// sameSample reports whether dst exists and holds the same bytes as src
func sameSample(src, dst string) (bool, error) {
	if !fileio.Exists(dst) {
		return false, nil
	}
	return fileio.SameContent(src, dst)
}

// copySample copies an audio file and its .ot, when it has one
func copySample(c Copy) error {
	if err := fileio.MkdirAll(filepath.Dir(c.Dst)); err != nil {
		return err
	}
	if err := fileio.CopyFile(c.Src, c.Dst); err != nil {
		return err
	}
	debug.Log("transfer", "copied %s -> %s", c.Src, c.Dst)

	ot := octatrack.AttributesPath(c.Src)
	if !fileio.Exists(ot) || fileio.Exists(octatrack.AttributesPath(c.Dst)) {
		return nil
	}
	return fileio.CopyFile(ot, octatrack.AttributesPath(c.Dst))
}
