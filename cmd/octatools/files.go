package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dijksterhuis/octatools/pkg/fileio"
	"github.com/dijksterhuis/octatools/pkg/midiexport"
	"github.com/dijksterhuis/octatools/pkg/octatrack"
	"github.com/dijksterhuis/octatools/pkg/transcode"
)

var (
	fileType   string
	docFormat  string
	patternNum int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Print an Octatrack file as YAML or JSON",
	Long: `Decodes a bank, arrangement, project or .ot file and prints it as an
editable document. The file type is detected from the name, then from the
content; --type overrides both.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild <document>",
	Short: "Build an Octatrack file from a YAML or JSON document",
	Long: `Encodes a document written by inspect back into its binary file.
Fields missing from the document keep their default values.`,
	Args: cobra.ExactArgs(1),
	RunE: runRebuild,
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Write default Octatrack files",
}

var createProjectCmd = &cobra.Command{
	Use:   "project <dir>",
	Short: "Create a project directory with 16 banks and 8 arrangements",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreateProject,
}

var midiCmd = &cobra.Command{
	Use:   "midi <bank>",
	Short: "Export a bank pattern's trigs to a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runMIDI,
}

func init() {
	inspectCmd.Flags().StringVarP(&fileType, "type", "t", "", "File type: bank, arrangement, project or attributes")
	inspectCmd.Flags().StringVarP(&docFormat, "format", "f", "yaml", "Document format: yaml or json")
	inspectCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the document to a file instead of stdout")

	rebuildCmd.Flags().StringVarP(&fileType, "type", "t", "", "File type: bank, arrangement, project or attributes (required)")
	rebuildCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (required)")
	rebuildCmd.Flags().BoolVar(&force, "force", false, "Replace an existing output file")
	_ = rebuildCmd.MarkFlagRequired("type")
	_ = rebuildCmd.MarkFlagRequired("output")

	createProjectCmd.Flags().BoolVar(&force, "force", false, "Replace existing files")
	createCmd.AddCommand(createProjectCmd)
	for _, t := range []octatrack.FileType{octatrack.FileBank, octatrack.FileArrangement, octatrack.FileAttributes} {
		createCmd.AddCommand(createFileCmd(t))
	}

	midiCmd.Flags().IntVarP(&patternNum, "pattern", "p", 1, "Pattern 1-16")
	midiCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")
}

func createFileCmd(t octatrack.FileType) *cobra.Command {
	c := &cobra.Command{
		Use:   string(t) + " <file>",
		Short: fmt.Sprintf("Create a default %s file", t),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := octatrack.Default(t)
			if err != nil {
				return err
			}
			if err := writeRecord(args[0], r); err != nil {
				return err
			}
			fmt.Printf("Created %s %s\n", t, args[0])
			return nil
		},
	}
	c.Flags().BoolVar(&force, "force", false, "Replace an existing file")
	return c
}

func runInspect(cmd *cobra.Command, args []string) error {
	input := args[0]
	format, err := transcode.ParseFormat(docFormat)
	if err != nil {
		return err
	}

	var r octatrack.Record
	if fileType != "" {
		t, err := octatrack.ParseFileType(fileType)
		if err != nil {
			return err
		}
		data, err := fileio.ReadFile(input)
		if err != nil {
			return err
		}
		if r, err = octatrack.Decode(t, data); err != nil {
			return fmt.Errorf("failed to decode %s: %w", input, err)
		}
	} else if r, err = octatrack.ReadFile(input); err != nil {
		return err
	}

	doc, err := transcode.Marshal(r, format)
	if err != nil {
		return err
	}
	if outputFile == "" {
		_, err = os.Stdout.Write(doc)
		return err
	}
	if err := fileio.WriteFile(outputFile, doc, 0644); err != nil {
		return err
	}
	fmt.Printf("Converted %s -> %s\n", input, outputFile)
	return nil
}

func runRebuild(cmd *cobra.Command, args []string) error {
	input := args[0]
	t, err := octatrack.ParseFileType(fileType)
	if err != nil {
		return err
	}
	format, err := transcode.ParseFormat(strings.TrimPrefix(filepath.Ext(input), "."))
	if err != nil {
		return err
	}
	data, err := fileio.ReadFile(input)
	if err != nil {
		return err
	}
	r, err := transcode.Unmarshal(t, data, format)
	if err != nil {
		return fmt.Errorf("failed to rebuild %s: %w", input, err)
	}
	if err := writeRecord(outputFile, r); err != nil {
		return err
	}
	fmt.Printf("Converted %s -> %s\n", input, outputFile)
	return nil
}

func runCreateProject(cmd *cobra.Command, args []string) error {
	if err := octatrack.CreateProject(args[0], force); err != nil {
		return err
	}
	fmt.Printf("Created project %s\n", args[0])
	return nil
}

func runMIDI(cmd *cobra.Command, args []string) error {
	input := args[0]
	if patternNum < 1 || patternNum > octatrack.PatternsPerBank {
		return fmt.Errorf("pattern must be 1-%d, got %d", octatrack.PatternsPerBank, patternNum)
	}
	output := getOutputPath(input, fmt.Sprintf("-p%02d.mid", patternNum))

	bank, err := octatrack.ReadBankFile(input)
	if err != nil {
		return err
	}
	pattern := &bank.Patterns[patternNum-1]
	part := &bank.Parts[int(pattern.PartAssignment)%octatrack.PartsPerBank]
	result, err := midiexport.NewExporter().Export(pattern, part)
	if err != nil {
		return err
	}
	if err := fileio.WriteFile(output, result, 0644); err != nil {
		return err
	}

	fmt.Printf("Converted %s -> %s\n", input, output)
	return nil
}
