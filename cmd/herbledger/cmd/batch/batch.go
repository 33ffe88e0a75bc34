package batch

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
)

var (
	actingAs  string
	reference string
	contentID string
	filter    string
	limit     int
	offset    int
)

// BatchCmd is the parent command for batch ledger operations
var BatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Create, extend and inspect batches",
}

func init() {
	BatchCmd.AddCommand(createCmd)
	createCmd.Flags().StringVar(&actingAs, "as", "", "Collector principal creating the batch")
	createCmd.Flags().StringVar(&reference, "ref", "", "Human-readable batch reference")
	createCmd.Flags().StringVar(&contentID, "cid", "", "Collector stage content id")
	_ = createCmd.MarkFlagRequired("as")
	_ = createCmd.MarkFlagRequired("cid")

	BatchCmd.AddCommand(addCmd)
	addCmd.Flags().StringVar(&actingAs, "as", "", "Principal recording the stage")
	addCmd.Flags().StringVar(&contentID, "cid", "", "Stage content id")
	_ = addCmd.MarkFlagRequired("as")
	_ = addCmd.MarkFlagRequired("cid")

	BatchCmd.AddCommand(getCmd)
	BatchCmd.AddCommand(summaryCmd)
	BatchCmd.AddCommand(trailCmd)

	BatchCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&filter, "filter", "", `Filter expression, e.g. 'complete == true' or 'reference contains "ASH"'`)
	listCmd.Flags().IntVar(&limit, "limit", 0, "Maximum rows to return")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: batch id %q is not a number", custody.ErrInvalidInput, s)
	}
	return id, nil
}

func caller() (string, error) {
	return custody.NormalizePrincipal(actingAs)
}
