package batch

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/herbledger/cmd/herbledger/cmd/cmdutil"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a batch with its collector stage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, bundle, err := cmdutil.Open()
		if err != nil {
			return err
		}
		defer bundle.Close()

		who, err := caller()
		if err != nil {
			return err
		}
		created, err := bundle.Ledger.CreateBatch(context.Background(), who, reference, contentID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Batch %d created (ref %q)\n", created.BatchID, created.Reference)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add [batch-id] [stage]",
	Short: "Record a later stage of a batch",
	Example: `  herbledger batch add 1 middleman --as 0xB... --cid bafy...
  herbledger batch add 1 lab --as lab-7 --cid ipfs://bafy...`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		stage, err := custody.ParseStage(args[1])
		if err != nil {
			return err
		}
		who, err := caller()
		if err != nil {
			return err
		}

		_, bundle, err := cmdutil.Open()
		if err != nil {
			return err
		}
		defer bundle.Close()

		if err := bundle.Ledger.AddStageData(context.Background(), who, id, stage, contentID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Batch %d: %s recorded\n", id, stage)
		return nil
	},
}
