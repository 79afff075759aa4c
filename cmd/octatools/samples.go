package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dijksterhuis/octatools/pkg/chain"
	"github.com/dijksterhuis/octatools/pkg/config"
	"github.com/dijksterhuis/octatools/pkg/octatrack"
)

var (
	outDir      string
	attrsFile   string
	sliceCount  int
	sliceSeed   int64
	bpm         float64
	gainDB      float64
	loopMode    string
	stretchMode string
	quantMode   string
	processing  chain.Processing
)

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Build, split and slice sample chains",
}

var chainBuildCmd = &cobra.Command{
	Use:   "build <config.yaml>",
	Short: "Build every chain in a chain config",
	Long: `Builds the chains of a YAML config in order. A failing chain is
reported and the remaining chains are still built.`,
	Args: cobra.ExactArgs(1),
	RunE: runChainBuild,
}

var chainCreateCmd = &cobra.Command{
	Use:   "create <name> <input.wav>...",
	Short: "Build one chain from WAV files",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runChainCreate,
}

var chainTemplateCmd = &cobra.Command{
	Use:   "template",
	Short: "Print an example chain config",
	Args:  cobra.NoArgs,
	RunE:  runChainTemplate,
}

var deconstructCmd = &cobra.Command{
	Use:   "deconstruct <chain.wav>",
	Short: "Split a chain into one WAV per slice",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeconstruct,
}

var sliceCmd = &cobra.Command{
	Use:   "slice",
	Short: "Write slice tables for a WAV file",
}

var sliceLinearCmd = &cobra.Command{
	Use:   "linear <input.wav>",
	Short: "Slice a WAV file into equal parts",
	Args:  cobra.ExactArgs(1),
	RunE:  runSliceLinear,
}

var sliceRandomCmd = &cobra.Command{
	Use:   "random <input.wav>",
	Short: "Slice a WAV file at random points",
	Args:  cobra.ExactArgs(1),
	RunE:  runSliceRandom,
}

func init() {
	for _, c := range []*cobra.Command{chainCreateCmd, sliceLinearCmd, sliceRandomCmd} {
		addSettingsFlags(c)
	}
	chainCreateCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	chainCreateCmd.Flags().Float64Var(&processing.FadeIn, "fade-in", 0, "Fade in over this fraction of each input (0-1)")
	chainCreateCmd.Flags().Float64Var(&processing.FadeOut, "fade-out", 0, "Fade out over this fraction of each input (0-1)")
	chainCreateCmd.Flags().BoolVar(&processing.Normalize, "normalize", false, "Normalize each input")
	chainCreateCmd.Flags().IntVar(&processing.Stretch, "stretch", 0, "Time-stretch factor (-127 to 127)")

	deconstructCmd.Flags().StringVar(&attrsFile, "ot", "", "Sample attributes file (default: next to the WAV)")
	deconstructCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")

	sliceLinearCmd.Flags().IntVarP(&sliceCount, "slices", "n", 16, "Number of slices")
	sliceRandomCmd.Flags().IntVarP(&sliceCount, "slices", "n", 16, "Number of slices")
	sliceRandomCmd.Flags().Int64Var(&sliceSeed, "seed", 0, "Random seed (default: current time)")

	sliceCmd.AddCommand(sliceLinearCmd, sliceRandomCmd)
	chainCmd.AddCommand(chainBuildCmd, chainCreateCmd, chainTemplateCmd, deconstructCmd, sliceCmd)
}

func addSettingsFlags(c *cobra.Command) {
	c.Flags().Float64Var(&bpm, "bpm", 120, "Tempo (30-300)")
	c.Flags().Float64Var(&gainDB, "gain", 0, "Gain in dB (-24 to 24)")
	c.Flags().StringVar(&loopMode, "loop", "off", "Loop mode: off, normal or pingpong")
	c.Flags().StringVar(&stretchMode, "timestretch", "normal", "Timestretch mode: off, normal or beat")
	c.Flags().StringVar(&quantMode, "quantization", "direct", "Trig quantization: direct, pattern or a step count")
}

func sampleSettings() (octatrack.SampleSettings, error) {
	s := octatrack.SampleSettings{Tempo: bpm, Gain: gainDB}
	var err error
	if s.Loop, err = octatrack.ParseLoopMode(loopMode); err != nil {
		return s, err
	}
	if s.Stretch, err = octatrack.ParseTimestretchMode(stretchMode); err != nil {
		return s, err
	}
	if s.Quantization, err = octatrack.ParseTrigQuantization(quantMode); err != nil {
		return s, err
	}
	return s, s.Validate()
}

func printOutputs(outputs []chain.Output) {
	for _, o := range outputs {
		fmt.Printf("Created %s (%d slices) + %s\n", o.AudioPath, len(o.Slices), o.AttributesPath)
	}
}

func runChainBuild(cmd *cobra.Command, args []string) error {
	c, err := config.LoadChains(args[0])
	if err != nil {
		return err
	}
	outputs, err := config.RunChains(c)
	printOutputs(outputs)
	return err
}

func runChainCreate(cmd *cobra.Command, args []string) error {
	s, err := sampleSettings()
	if err != nil {
		return err
	}
	outputs, err := chain.Build(chain.Chain{
		Name:       args[0],
		Inputs:     args[1:],
		Settings:   s,
		Processing: processing,
	}, outDir)
	if err != nil {
		return err
	}
	printOutputs(outputs)
	return nil
}

func runChainTemplate(cmd *cobra.Command, args []string) error {
	tempo, normalize := 120.0, true
	stretch := octatrack.StretchNormal
	c := config.DefaultChains()
	c.Global.Device = config.DeviceSettings{BPM: &tempo, Timestretch: &stretch}
	c.Global.Processing = config.ProcessingSettings{Normalize: &normalize}
	c.Chains = []config.ChainEntry{{
		Name:   "drums",
		Inputs: []string{"kick.wav", "snare.wav", "hat.wav"},
	}}
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func runDeconstruct(cmd *cobra.Command, args []string) error {
	paths, err := chain.Deconstruct(args[0], attrsFile, outDir)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Printf("Converted %s -> %s\n", args[0], p)
	}
	return nil
}

func runSliceLinear(cmd *cobra.Command, args []string) error {
	s, err := sampleSettings()
	if err != nil {
		return err
	}
	attrs, err := chain.SliceLinear(args[0], sliceCount, s)
	if err != nil {
		return err
	}
	fmt.Printf("Sliced %s into %d -> %s\n", args[0], attrs.SliceCount, octatrack.AttributesPath(args[0]))
	return nil
}

func runSliceRandom(cmd *cobra.Command, args []string) error {
	s, err := sampleSettings()
	if err != nil {
		return err
	}
	seed := sliceSeed
	if !cmd.Flags().Changed("seed") {
		seed = time.Now().UnixNano()
	}
	attrs, err := chain.SliceRandom(args[0], sliceCount, seed, s)
	if err != nil {
		return err
	}
	fmt.Printf("Sliced %s into %d (seed %d) -> %s\n", args[0], attrs.SliceCount, seed, octatrack.AttributesPath(args[0]))
	return nil
}
