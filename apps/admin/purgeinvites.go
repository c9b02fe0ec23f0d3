package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (cli *commandLine) purgeInvitesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purgeinvites",
		Short: "Delete expired invites",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := cli.grpSvc.PurgeExpiredInvites(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cli.out, "purged %d expired invite(s)\n", n)
			return nil
		},
	}
}
