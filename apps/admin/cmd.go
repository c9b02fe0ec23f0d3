package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/grupka/grupka/core/group"
	"github.com/grupka/grupka/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp     = errors.New("help provided")
	errNoSQLDB  = errors.New("migrate needs the postgres database")
	errEmptyPwd = errors.New("password cannot be empty")
)

type commandLine struct {
	db      *sql.DB // nil with the in-memory store
	usrSvc  user.Service
	usrRepo user.Repository
	grpSvc  group.Service
	out     io.Writer
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Grupka administration commands",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(cli.migrateCmd())
	root.AddCommand(cli.addUserCmd())
	root.AddCommand(cli.resetPasswordCmd())
	root.AddCommand(cli.purgeInvitesCmd())
	return root
}

// run executes the command line; args[0] is the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	root.SetArgs(args[1:])
	return root.ExecuteContext(context.Background())
}

func (cli *commandLine) promptPassword(label string) (string, error) {
	_, _ = fmt.Fprint(cli.out, label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	if len(pwd) == 0 {
		return "", errEmptyPwd
	}
	return string(pwd), nil
}
