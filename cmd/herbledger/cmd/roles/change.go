package roles

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/terraconstructs/herbledger/cmd/herbledger/cmd/cmdutil"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
)

var grantCmd = &cobra.Command{
	Use:   "grant [principal] [role...]",
	Short: "Grant one or more roles to a principal",
	Example: `  herbledger roles grant 0xabc... collector
  herbledger roles grant lab-7 lab,middleman`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return change(cmd, args, true)
	},
}

var revokeCmd = &cobra.Command{
	Use:   "revoke [principal] [role...]",
	Short: "Revoke one or more roles from a principal",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return change(cmd, args, false)
	},
}

func change(cmd *cobra.Command, args []string, grant bool) error {
	cfg, bundle, err := cmdutil.Open()
	if err != nil {
		return err
	}
	defer bundle.Close()

	target, err := custody.NormalizePrincipal(args[0])
	if err != nil {
		return err
	}
	role, err := custody.ParseRoles(args[1:])
	if err != nil {
		return err
	}
	admin := cfg.AdminPrincipal
	if actingAs != "" {
		if admin, err = custody.NormalizePrincipal(actingAs); err != nil {
			return err
		}
	}

	ctx := context.Background()
	if grant {
		err = bundle.Roles.Grant(ctx, admin, target, role)
	} else {
		err = bundle.Roles.Revoke(ctx, admin, target, role)
	}
	if err != nil {
		return err
	}

	mask, err := bundle.Roles.Roles(ctx, target)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", target, mask)
	return nil
}
