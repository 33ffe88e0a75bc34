package roles

import "github.com/spf13/cobra"

var actingAs string

// RolesCmd is the parent command for role registry operations
var RolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Manage stage roles",
	Long:  `Commands for granting, revoking and inspecting the stage roles held by principals.`,
}

func init() {
	RolesCmd.AddCommand(grantCmd)
	RolesCmd.AddCommand(revokeCmd)
	RolesCmd.AddCommand(checkCmd)
	RolesCmd.AddCommand(listCmd)
	for _, c := range []*cobra.Command{grantCmd, revokeCmd} {
		c.Flags().StringVar(&actingAs, "as", "", "Principal performing the change (default: configured admin)")
	}
}
