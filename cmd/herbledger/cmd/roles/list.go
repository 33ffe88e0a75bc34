package roles

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/herbledger/cmd/herbledger/cmd/cmdutil"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
)

var checkCmd = &cobra.Command{
	Use:   "check [principal] [role]",
	Short: "Report whether a principal holds a role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, bundle, err := cmdutil.Open()
		if err != nil {
			return err
		}
		defer bundle.Close()

		target, err := custody.NormalizePrincipal(args[0])
		if err != nil {
			return err
		}
		role, err := custody.ParseRole(args[1])
		if err != nil {
			return err
		}
		ok, err := bundle.Roles.HasRole(context.Background(), target, role)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ok)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List principals with their roles",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, bundle, err := cmdutil.Open()
		if err != nil {
			return err
		}
		defer bundle.Close()

		assignments, err := bundle.Roles.List(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list roles: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PRINCIPAL\tMASK\tROLES\tUPDATED_AT")
		for _, a := range assignments {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", a.Principal, a.Mask, strings.Join(a.Roles, ","), a.UpdatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}
