package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"secureNotes/internal/audit"
	"secureNotes/internal/db"
)

func newResetCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the users and notes tables",
		Long: `Reset applies the schema from scratch. Both tables are dropped and
recreated and every row is lost. It is not an upgrade path; use "migrate up" for that.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes: all users and notes would be deleted")
			}
			d, err := a.connect()
			if err != nil {
				return err
			}
			defer d.Close()
			if err := a.audit.Record(audit.Reset, audit.Schema, "all", db.Reset(cmd.Context(), d)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema reset")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm that all data will be deleted")
	return cmd
}
