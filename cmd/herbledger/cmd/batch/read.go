package batch

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/herbledger/cmd/herbledger/cmd/cmdutil"
)

var getCmd = &cobra.Command{
	Use:   "get [batch-id]",
	Short: "Show a batch with its stage provenance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		_, bundle, err := cmdutil.Open()
		if err != nil {
			return err
		}
		defer bundle.Close()

		record, err := bundle.Ledger.GetBatchRecord(context.Background(), id)
		if err != nil {
			return err
		}
		return cmdutil.PrintJSON(cmd.OutOrStdout(), record)
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary [batch-id]",
	Short: "Show which stages of a batch are recorded",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		_, bundle, err := cmdutil.Open()
		if err != nil {
			return err
		}
		defer bundle.Close()

		summary, err := bundle.Ledger.GetBatchSummary(context.Background(), id)
		if err != nil {
			return err
		}
		return cmdutil.PrintJSON(cmd.OutOrStdout(), summary)
	},
}

var trailCmd = &cobra.Command{
	Use:   "trail [batch-id]",
	Short: "Assemble the custody trail with decoded stage metadata",
	Long: `Joins the ledger record with the metadata documents held by the local
content store. Stages whose content is unavailable are reported with an error.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		_, bundle, err := cmdutil.Open()
		if err != nil {
			return err
		}
		defer bundle.Close()

		t, err := bundle.Trail.Assemble(context.Background(), id)
		if err != nil {
			return err
		}
		return cmdutil.PrintJSON(cmd.OutOrStdout(), t)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, bundle, err := cmdutil.Open()
		if err != nil {
			return err
		}
		defer bundle.Close()

		batches, err := bundle.Ledger.ListBatches(context.Background(), filter, limit, offset)
		if err != nil {
			return err
		}

		last, err := bundle.Ledger.LastBatchID(context.Background())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tREFERENCE\tCOLLECTOR\tMIDDLEMAN\tLAB\tMANUFACTURER")
		for _, b := range batches {
			fmt.Fprintf(w, "%d\t%s\t%t\t%t\t%t\t%t\n", b.ID, b.Reference, b.HasCollector, b.HasMiddleman, b.HasLab, b.HasManufacturer)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d shown, %d batches recorded\n", len(batches), last)
		return nil
	},
}
