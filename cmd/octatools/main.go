// Package main is the entry point for the octatools CLI
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dijksterhuis/octatools/pkg/api"
	"github.com/dijksterhuis/octatools/pkg/debug"
	"github.com/dijksterhuis/octatools/pkg/octatrack"
	"github.com/dijksterhuis/octatools/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile string
	debugLog   bool
	force      bool
	serverPort int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "octatools",
	Short: "Work with Elektron Octatrack project, bank and sample files",
	Long: `octatools reads and writes the binary files of an Elektron Octatrack
project: banks, arrangements, project files and .ot sample attributes.

It builds sliced sample chains, moves banks between projects while
deduplicating and remapping sample slots, and exports patterns to MIDI.

Examples:
  octatools inspect bank01.work --format yaml
  octatools create project ./SET/NEW
  octatools chain build chains.yaml
  octatools transfer ./SET/OLD 1 ./SET/NEW 4
  octatools midi bank01.work --pattern 3 -o pattern.mid
  octatools tui
  octatools serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debugLog {
			return debug.Enable()
		}
		return nil
	},
	SilenceUsage: true,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Write a debug log to "+debug.DefaultPath())

	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(midiCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(transferCmd)
	rootCmd.AddCommand(referencesCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func getOutputPath(input, defaultExt string) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + defaultExt
}

// writeRecord refuses to replace an existing file unless --force is set
func writeRecord(path string, r octatrack.Record) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to replace it)", path)
		}
	}
	return octatrack.WriteFile(path, r)
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run()
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", serverPort)
	return api.StartServer(serverPort)
}
