package octatrack

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/dijksterhuis/octatools/pkg/debug"
	"github.com/dijksterhuis/octatools/pkg/fileio"
)

// FileType is a kind of Octatrack data file
type FileType string

const (
	FileBank        FileType = "bank"
	FileArrangement FileType = "arrangement"
	FileProject     FileType = "project"
	FileAttributes  FileType = "attributes"
	FileUnknown     FileType = "unknown"
)

// FileTypes lists the types octatools can decode
var FileTypes = []FileType{FileBank, FileArrangement, FileProject, FileAttributes}

// ParseFileType accepts a FileType name
func ParseFileType(s string) (FileType, error) {
	for _, t := range FileTypes {
		if string(t) == strings.ToLower(strings.TrimSpace(s)) {
			return t, nil
		}
	}
	return FileUnknown, fmt.Errorf("unknown file type %q", s)
}

var (
	bankName        = regexp.MustCompile(`^bank(0[1-9]|1[0-6])\.(work|strd)$`)
	arrangementName = regexp.MustCompile(`^arr0[1-8]\.(work|strd)$`)
	projectName     = regexp.MustCompile(`^project\.(work|strd)$`)
)

// DetectFileType detects the type of a file from its name
func DetectFileType(filename string) FileType {
	base := strings.ToLower(filepath.Base(filename))
	switch {
	case strings.HasSuffix(base, ".ot"):
		return FileAttributes
	case bankName.MatchString(base):
		return FileBank
	case arrangementName.MatchString(base):
		return FileArrangement
	case projectName.MatchString(base):
		return FileProject
	}
	return FileUnknown
}

// DetectFileTypeFromContent detects the type of a file from its header
func DetectFileTypeFromContent(data []byte) FileType {
	switch {
	case bytes.HasPrefix(data, BankHeader[:]):
		return FileBank
	case bytes.HasPrefix(data, ArrangementHeader[:]):
		return FileArrangement
	case bytes.HasPrefix(data, SampleAttributesHeader[:]):
		return FileAttributes
	case bytes.Contains(data[:min(len(data), 512)], []byte("TYPE="+ProjectType)):
		return FileProject
	}
	return FileUnknown
}

// BankFileName returns bankNN.work for bank 1-16
func BankFileName(n int) string {
	return fmt.Sprintf("bank%02d.work", n)
}

// ArrangementFileName returns arrNN.work for arrangement 1-8
func ArrangementFileName(n int) string {
	return fmt.Sprintf("arr%02d.work", n)
}

// ProjectFileName is the working copy of a project
const ProjectFileName = "project.work"

// Record is any decoded Octatrack file
type Record interface {
	Encode() ([]byte, error)
}

// Decode parses data as t; FileUnknown detects the type from the content
func Decode(t FileType, data []byte) (Record, error) {
	if t == FileUnknown {
		t = DetectFileTypeFromContent(data)
	}
	debug.Log("codec", "decoding %d bytes as %s", len(data), t)
	switch t {
	case FileBank:
		return DecodeBank(data)
	case FileArrangement:
		return DecodeArrangement(data)
	case FileProject:
		return DecodeProject(data)
	case FileAttributes:
		return DecodeSampleAttributes(data)
	}
	return nil, errors.New("cannot determine file type from content")
}

// Default returns the default record of type t
func Default(t FileType) (Record, error) {
	switch t {
	case FileBank:
		return DefaultBank(), nil
	case FileArrangement:
		return DefaultArrangement(), nil
	case FileProject:
		return DefaultProject(), nil
	case FileAttributes:
		return DefaultSampleAttributes(), nil
	}
	return nil, fmt.Errorf("no default for file type %q", t)
}

// ReadFile decodes the file at path, detecting its type by name then content
func ReadFile(path string) (Record, error) {
	data, err := fileio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := Decode(DetectFileType(path), data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return r, nil
}

// WriteFile encodes r and replaces path with it
func WriteFile(path string, r Record) error {
	data, err := r.Encode()
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", path)
	}
	debug.Log("codec", "writing %d bytes to %s", len(data), path)
	return fileio.WriteFile(path, data, 0644)
}

// ReadBankFile reads a bank file
func ReadBankFile(path string) (*Bank, error) {
	data, err := fileio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b, err := DecodeBank(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return b, nil
}

// ReadProjectFile reads a project file
func ReadProjectFile(path string) (*Project, error) {
	data, err := fileio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := DecodeProject(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return p, nil
}

// ReadArrangementFile reads an arrangement file
func ReadArrangementFile(path string) (*Arrangement, error) {
	data, err := fileio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := DecodeArrangement(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return a, nil
}

// ReadSampleAttributesFile reads an .ot file
func ReadSampleAttributesFile(path string) (*SampleAttributes, error) {
	data, err := fileio.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a, err := DecodeSampleAttributes(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return a, nil
}

// AttributesPath returns the .ot path paired with an audio file
func AttributesPath(audioPath string) string {
	return strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".ot"
}

// CreateProject writes a default project directory: project.work, 16 banks
// and 8 arrangements. Existing files are left alone unless force is set.
func CreateProject(dir string, force bool) error {
	files := map[string]Record{ProjectFileName: DefaultProject()}
	bank := DefaultBank()
	for n := 1; n <= BanksPerProject; n++ {
		files[BankFileName(n)] = bank
	}
	arr := DefaultArrangement()
	for n := 1; n <= ArrangementsPerProject; n++ {
		files[ArrangementFileName(n)] = arr
	}
	if err := fileio.MkdirAll(dir); err != nil {
		return err
	}
	if !force {
		for name := range files {
			if path := filepath.Join(dir, name); fileio.Exists(path) {
				return errors.Errorf("%s already exists", path)
			}
		}
	}
	for name, r := range files {
		if err := WriteFile(filepath.Join(dir, name), r); err != nil {
			return err
		}
	}
	return nil
}
