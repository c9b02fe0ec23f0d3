package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password, the new password is prompted",
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.promptPassword("Enter password:")
			if err != nil {
				return err
			}
			usr, err := cli.usrSvc.SetPassword(cmd.Context(), email, pwd)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cli.out, "password updated for %s\n", usr.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "the user's email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
