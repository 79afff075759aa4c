package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dijksterhuis/octatools/pkg/config"
	"github.com/dijksterhuis/octatools/pkg/octatrack"
	"github.com/dijksterhuis/octatools/pkg/transfer"
)

var (
	override bool
	dryRun   bool
)

var transferCmd = &cobra.Command{
	Use:   "transfer <src-project> <src-bank> <dest-project> <dest-bank>",
	Short: "Copy a bank into another project",
	Long: `Copies a bank between projects. Samples the bank uses are added to the
destination project's slots, reusing slots that already hold the same sample
with the same settings, and the bank's slot references are rewritten to match.
Sample files are copied into the destination set's AUDIO directory.

The destination bank must be unused unless --override is given. The
destination project and bank are backed up before they are replaced.`,
	Args: cobra.ExactArgs(4),
	RunE: runTransfer,
}

var transferBatchCmd = &cobra.Command{
	Use:   "batch <config.yaml>",
	Short: "Run the bank transfers of a config in order",
	Args:  cobra.ExactArgs(1),
	RunE:  runTransferBatch,
}

var referencesCmd = &cobra.Command{
	Use:   "references <project-dir> <bank>",
	Short: "List the sample slots a bank uses",
	Args:  cobra.ExactArgs(2),
	RunE:  runReferences,
}

func init() {
	transferCmd.Flags().BoolVar(&override, "override", false, "Replace a destination bank that is in use")
	transferCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Plan the transfer without writing anything")
	transferCmd.AddCommand(transferBatchCmd)
}

func bankNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > octatrack.BanksPerProject {
		return 0, fmt.Errorf("bank must be 1-%d, got %q", octatrack.BanksPerProject, s)
	}
	return n, nil
}

func transferVerb() string {
	if dryRun {
		return "Planned"
	}
	return "Transferred"
}

func printResult(r *transfer.Result) {
	for _, c := range r.Copies {
		fmt.Printf("  copy %s -> %s\n", c.Src, c.Dst)
	}
	for _, h := range r.Hazards {
		fmt.Fprintf(os.Stderr, "  warning: %s\n", h.Error())
	}
	fmt.Printf("  %d slots reused, %d slots allocated\n", r.Reused, r.Allocated)
}

func runTransfer(cmd *cobra.Command, args []string) error {
	srcBank, err := bankNumber(args[1])
	if err != nil {
		return err
	}
	dstBank, err := bankNumber(args[3])
	if err != nil {
		return err
	}
	res, err := transfer.Transfer(args[0], srcBank, args[2], dstBank, override, transfer.Options{DryRun: dryRun})
	if err != nil {
		return err
	}
	fmt.Printf("%s bank %d of %s -> bank %d of %s\n", transferVerb(), srcBank, args[0], dstBank, args[2])
	printResult(res)
	return nil
}

func runTransferBatch(cmd *cobra.Command, args []string) error {
	t, err := config.LoadTransfers(args[0])
	if err != nil {
		return err
	}
	results, err := config.RunTransfers(t, transfer.Options{DryRun: dryRun})
	for i, res := range results {
		e := t.Transfers[i]
		fmt.Printf("%s bank %d of %s -> bank %d of %s\n", transferVerb(), e.Src.Bank, e.Src.Project, e.Dest.Bank, e.Dest.Project)
		printResult(res)
	}
	return err
}

func runReferences(cmd *cobra.Command, args []string) error {
	n, err := bankNumber(args[1])
	if err != nil {
		return err
	}
	project, err := octatrack.ReadProjectFile(filepath.Join(args[0], octatrack.ProjectFileName))
	if err != nil {
		return err
	}
	bank, err := octatrack.ReadBankFile(filepath.Join(args[0], octatrack.BankFileName(n)))
	if err != nil {
		return err
	}
	refs, err := transfer.ListReferences(project, bank)
	if err != nil {
		return err
	}
	for _, r := range refs {
		path := r.Path
		if !r.Loaded {
			path = "(empty)"
		}
		fmt.Printf("%-8s %3d  %-40s %d uses: %s\n", r.Class, r.ID, path, len(r.Uses), summarize(r.Uses, 3))
	}
	return nil
}

func summarize(uses []string, n int) string {
	if len(uses) <= n {
		return strings.Join(uses, ", ")
	}
	return strings.Join(uses[:n], ", ") + fmt.Sprintf(", +%d more", len(uses)-n)
}
