package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"secureNotes/internal/audit"
	"secureNotes/models"
	"secureNotes/repository"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage rows of the users table",
	}
	cmd.AddCommand(newUsersAddCmd(a), newUsersListCmd(a), newUsersSetRoleCmd(a), newUsersDeleteCmd(a))
	return cmd
}

func newUsersAddCmd(a *app) *cobra.Command {
	var credential, role string
	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Insert a user",
		Long: `Insert a user. The credential is stored exactly as given; pass the hash
produced by your authentication service, never a plaintext password.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := &models.User{Username: args[0], Password: credential}
			if role != "" {
				r, err := models.ParseRole(role)
				if err != nil {
					return err
				}
				u.Role = r
			}
			d, err := a.open()
			if err != nil {
				return err
			}
			defer d.Close()

			created, err := repository.NewUserRepository(d).Create(cmd.Context(), u)
			if err != nil {
				return a.audit.Record(audit.Create, audit.User, args[0], err)
			}
			a.audit.Record(audit.Create, audit.User, created.ID, nil)
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", created.ID, created.Username, created.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&credential, "password-hash", "", "opaque credential to store (required)")
	cmd.Flags().StringVar(&role, "role", "", "user, moderator or admin (default: store default)")
	_ = cmd.MarkFlagRequired("password-hash")
	return cmd
}

func newUsersListCmd(a *app) *cobra.Command {
	var (
		asJSON        bool
		limit, offset int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open()
			if err != nil {
				return err
			}
			defer d.Close()

			users, err := repository.NewUserRepository(d).List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			if asJSON {
				if users == nil {
					users = []models.User{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(users)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tROLE")
			for _, u := range users {
				fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Username, u.Role)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func newUsersSetRoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <username> <role>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := models.ParseRole(args[1])
			if err != nil {
				return err
			}
			d, err := a.open()
			if err != nil {
				return err
			}
			defer d.Close()

			err = repository.NewUserRepository(d).UpdateRoleByUsername(cmd.Context(), args[0], role)
			if err := a.audit.Record(audit.Update, audit.User, args[0], err); err != nil {
				return errors.Wrapf(err, "set role of %q", args[0])
			}
			a.log.WithFields(logrus.Fields{"username": args[0], "role": role}).Debug("role updated")
			return nil
		},
	}
}

func newUsersDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user and their notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid user id %q", args[0])
			}
			d, err := a.open()
			if err != nil {
				return err
			}
			defer d.Close()

			err = repository.NewUserRepository(d).Delete(cmd.Context(), id)
			if err := a.audit.Record(audit.Delete, audit.User, id, err); err != nil {
				return errors.Wrapf(err, "delete user %d", id)
			}
			return nil
		},
	}
}
