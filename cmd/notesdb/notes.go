package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"secureNotes/internal/audit"
	"secureNotes/models"
	"secureNotes/repository"
)

func newNotesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage rows of the notes table",
	}
	cmd.AddCommand(newNotesAddCmd(a), newNotesListCmd(a), newNotesUpdateCmd(a), newNotesDeleteCmd(a))
	return cmd
}

func newNotesAddCmd(a *app) *cobra.Command {
	var (
		userID         int64
		title, content string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Insert a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n := &models.Note{}
			if cmd.Flags().Changed("user-id") {
				n.UserID = &userID
			}
			if cmd.Flags().Changed("title") {
				n.Title = &title
			}
			if cmd.Flags().Changed("content") {
				n.Content = &content
			}
			d, err := a.open()
			if err != nil {
				return err
			}
			defer d.Close()

			created, err := repository.NewNoteRepository(d).Create(cmd.Context(), n)
			if err != nil {
				return a.audit.Record(audit.Create, audit.Note, "-", err)
			}
			a.audit.Record(audit.Create, audit.Note, created.ID, nil)
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", created.ID, created.CreatedAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 0, "owner id (omit for an unowned note)")
	cmd.Flags().StringVar(&title, "title", "", "note title")
	cmd.Flags().StringVar(&content, "content", "", "note body")
	return cmd
}

func newNotesListCmd(a *app) *cobra.Command {
	var (
		userID        int64
		asJSON        bool
		limit, offset int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		Long:  "List notes, newest first. Without --user-id every note is shown with its author.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.open()
			if err != nil {
				return err
			}
			defer d.Close()
			repo := repository.NewNoteRepository(d)

			var rows []models.NoteWithAuthor
			if cmd.Flags().Changed("user-id") {
				notes, err := repo.ListByUser(cmd.Context(), userID, limit, offset)
				if err != nil {
					return err
				}
				for _, n := range notes {
					rows = append(rows, models.NoteWithAuthor{Note: n})
				}
			} else {
				rows, err = repo.ListAll(cmd.Context(), limit, offset)
				if err != nil {
					return err
				}
			}

			if asJSON {
				if rows == nil {
					rows = []models.NoteWithAuthor{}
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tAUTHOR\tCREATED\tTITLE")
			for _, n := range rows {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", n.ID, deref(n.Username), n.CreatedAt.Format(time.RFC3339), deref(n.Title))
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 0, "only notes owned by this user")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func newNotesDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid note id %q", args[0])
			}
			d, err := a.open()
			if err != nil {
				return err
			}
			defer d.Close()

			err = repository.NewNoteRepository(d).Delete(cmd.Context(), id)
			if err := a.audit.Record(audit.Delete, audit.Note, id, err); err != nil {
				return errors.Wrapf(err, "delete note %d", id)
			}
			return nil
		},
	}
}

func newNotesUpdateCmd(a *app) *cobra.Command {
	var title, content string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace a note's title and content",
		Long:  "Replace a note's title and content. An omitted flag clears that column; created_at is left alone.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid note id %q", args[0])
			}
			var t, c *string
			if cmd.Flags().Changed("title") {
				t = &title
			}
			if cmd.Flags().Changed("content") {
				c = &content
			}
			d, err := a.open()
			if err != nil {
				return err
			}
			defer d.Close()

			err = repository.NewNoteRepository(d).Update(cmd.Context(), id, t, c)
			if err := a.audit.Record(audit.Update, audit.Note, id, err); err != nil {
				return errors.Wrapf(err, "update note %d", id)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", "new body")
	return cmd
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
