package cli

import (
	"bufio"
	"fmt"

	"github.com/akarpov/taskdeck/internal/client/api"
	"github.com/spf13/cobra"
)

func (a *App) listCmd() *cobra.Command {
	var (
		term     string
		statuses []string
		limit    int
		page     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			result, err := client.ListTasks(cmd.Context(), api.ListQuery{
				Term:     term,
				Statuses: statuses,
				Limit:    limit,
				Page:     page,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, task := range result.Data {
				done := 0
				for _, td := range task.Todos {
					if td.Done {
						done++
					}
				}
				fmt.Fprintf(out, "%-12s %s  %s (%d/%d todos)\n", task.Status, task.ID, task.Title, done, len(task.Todos))
			}
			fmt.Fprintf(out, "page %d of %d, %d tasks total\n", result.Meta.CurrentPage, result.Meta.LastPage, result.Meta.Total)
			return nil
		},
	}

	cmd.Flags().StringVarP(&term, "query", "q", "", "search in title and description")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "filter by status (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size")
	cmd.Flags().IntVar(&page, "page", 0, "page number")

	return cmd
}

func (a *App) createCmd() *cobra.Command {
	var todoTitles []string

	cmd := &cobra.Command{
		Use:   "create [title]",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			reader := bufio.NewReader(cmd.InOrStdin())

			description, err := GetMultiline(reader, "Description", out)
			if err != nil {
				return err
			}

			todos := make([]api.TodoInput, 0, len(todoTitles))
			for _, title := range todoTitles {
				todos = append(todos, api.TodoInput{Title: title})
			}

			client, err := a.client()
			if err != nil {
				return err
			}
			task, err := client.CreateTask(cmd.Context(), args[0], description, todos)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Created %s\n", task.ID)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&todoTitles, "todo", nil, "add a todo (repeatable)")

	return cmd
}

func (a *App) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get [task-id]",
		Short: "Show one task with its todos and activity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			task, err := client.GetTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s [%s]\n", task.Title, task.Status)
			if task.Description != "" {
				fmt.Fprintln(out, task.Description)
			}
			if task.Deadline != nil {
				fmt.Fprintf(out, "deadline: %s\n", task.Deadline.Format("2006-01-02"))
			}
			for _, td := range task.Todos {
				mark := " "
				if td.Done {
					mark = "x"
				}
				fmt.Fprintf(out, "  [%s] %s  %s\n", mark, td.ID, td.Title)
			}
			for _, entry := range task.Logs {
				fmt.Fprintf(out, "  -- %s (%s)\n", entry.Log, entry.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func (a *App) doneCmd() *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "done [todo-id]",
		Short: "Mark a todo as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			todo, err := client.SetTodoDone(cmd.Context(), args[0], !undo)
			if err != nil {
				return err
			}
			state := "done"
			if !todo.Done {
				state = "open"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", todo.Title, state)
			return nil
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "reopen the todo instead")

	return cmd
}

func (a *App) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [task-id] [todo|in_progress|done|archived]",
		Short: "Move a task to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			task, err := client.SetTaskStatus(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", task.Title, task.Status)
			return nil
		},
	}
}

func (a *App) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [task-id]",
		Short: "Delete a task and its todos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			if err := client.DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
			return nil
		},
	}
}
