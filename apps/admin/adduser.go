package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/grupka/grupka/core/user"
)

func (cli *commandLine) addUserCmd() *cobra.Command {
	var (
		email, name, phone string
		inactive           bool
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, the password is prompted",
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.promptPassword("Enter password:")
			if err != nil {
				return err
			}
			usr, err := cli.addUser(cmd.Context(), user.NewUser{
				Email:           email,
				DisplayName:     name,
				Phone:           phone,
				Password:        pwd,
				PasswordConfirm: pwd,
			}, !inactive)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cli.out, "created user %s (%s)\n", usr.Email, usr.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "the user's email")
	cmd.Flags().StringVar(&name, "name", "", "the user's display name")
	cmd.Flags().StringVar(&phone, "phone", "", "the user's phone number")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the account deactivated")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (cli *commandLine) addUser(ctx context.Context, nu user.NewUser, active bool) (user.User, error) {
	usr, err := cli.usrSvc.Register(ctx, nu)
	if err != nil {
		return user.User{}, err
	}
	if active {
		return usr, nil
	}
	usr.IsActive = false
	usr.UpdatedAt = time.Now().UTC()
	return cli.usrRepo.UpdateUser(ctx, usr)
}
