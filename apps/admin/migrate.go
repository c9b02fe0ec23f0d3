package main

import (
	"github.com/spf13/cobra"

	"github.com/grupka/grupka/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose command (up, up-to, down, down-to, redo, reset, status, version, create, fix)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			if cli.db == nil {
				return errNoSQLDB
			}
			return gooseRunFunc(cli.db, args[0], args[1:]...)
		},
	}
}
