package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/herbledger/cmd/herbledger/cmd/cmdutil"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/services/ledger"
)

var (
	eventsBatch int64
	eventsKind  string
	eventsAfter int64
	eventsLimit int
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the ledger event log",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List committed events in commit order",
	RunE: func(cmd *cobra.Command, args []string) error {
		bundle, err := cmdutil.NewBundle(cfg, logger, cmdutil.BundleOptions{})
		if err != nil {
			return err
		}
		defer bundle.Close()

		q := ledger.EventQuery{Kind: eventsKind, AfterSeq: eventsAfter, Limit: eventsLimit}
		if cmd.Flags().Changed("batch") {
			q.BatchID = &eventsBatch
		}
		evs, err := bundle.Ledger.Events(context.Background(), q)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tKIND\tBATCH\tWRITER\tCONTENT_ID\tRECORDED_AT")
		for _, e := range evs {
			batch := "-"
			if e.BatchID != 0 {
				batch = fmt.Sprint(e.BatchID)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", e.Seq, e.Kind, batch, e.Writer, e.ContentID, e.RecordedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var eventsVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Recompute the event hash chain and report breaks",
	RunE: func(cmd *cobra.Command, args []string) error {
		bundle, err := cmdutil.NewBundle(cfg, logger, cmdutil.BundleOptions{})
		if err != nil {
			return err
		}
		defer bundle.Close()

		report, err := bundle.Ledger.VerifyEvents(context.Background())
		if err != nil {
			return err
		}
		if err := cmdutil.PrintJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
		if !report.Valid {
			return fmt.Errorf("event chain has %d break(s)", len(report.Errors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsVerifyCmd)

	eventsListCmd.Flags().Int64Var(&eventsBatch, "batch", 0, "Only events of this batch")
	eventsListCmd.Flags().StringVar(&eventsKind, "kind", "", "Only events of this kind, e.g. LabDataAdded")
	eventsListCmd.Flags().Int64Var(&eventsAfter, "after", 0, "Only events after this sequence number")
	eventsListCmd.Flags().IntVar(&eventsLimit, "limit", 0, "Maximum events to return")
}
