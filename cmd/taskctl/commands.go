package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fastygo/taskboard/client"
	"github.com/fastygo/taskboard/domain"
)

func (c *cli) registerCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register EMAIL",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := c.httpBackend().Register(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "registered %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login EMAIL",
		Short: "Log in and remember the access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := c.httpBackend().Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			path, err := c.saveToken(tokens.AccessToken)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "logged in as %s, token saved to %s\n", args[0], path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show your tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := c.board(cmd.Context())
			if err != nil {
				return err
			}
			tasks := board.Tasks()
			if len(tasks) == 0 {
				fmt.Fprintln(c.out, "no tasks")
				return nil
			}
			w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTATUS\tTITLE")
			for _, t := range tasks {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Status, t.Title)
			}
			return w.Flush()
		},
	}
}

func (c *cli) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add TITLE...",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := c.board(cmd.Context())
			if err != nil {
				return err
			}
			task, err := board.Add(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "added %s\n", task.ID)
			return nil
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status ID STATUS",
		Short: "Move a task to todo, in-progress or done",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := domain.ParseStatus(args[1])
			if err != nil {
				return fmt.Errorf("%w: want one of %v", err, domain.Statuses)
			}
			board, err := c.board(cmd.Context())
			if err != nil {
				return err
			}
			task, err := board.SetStatus(cmd.Context(), args[0], status)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s is now %s\n", task.ID, task.Status)
			return nil
		},
	}
}

func (c *cli) renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID TITLE...",
		Short: "Change a task title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := c.board(cmd.Context())
			if err != nil {
				return err
			}
			task, err := board.Rename(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%s renamed to %q\n", task.ID, task.Title)
			return nil
		},
	}
}

func (c *cli) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := c.board(cmd.Context())
			if err != nil {
				return err
			}
			if err := board.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "deleted %s\n", args[0])
			return nil
		},
	}
}

// board returns a board already synced with the backend.
func (c *cli) board(ctx context.Context) (*client.Board, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	backend, err := c.backend()
	if err != nil {
		return nil, err
	}
	board := client.NewBoard(backend, nil)
	if err := board.Sync(ctx); err != nil {
		if domain.IsDomainError(err, domain.ErrCodeUnauthorized) {
			return nil, errors.New("session expired or invalid: run `taskctl login`")
		}
		return nil, err
	}
	return board, nil
}
