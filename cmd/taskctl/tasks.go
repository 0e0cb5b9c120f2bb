package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/task-tracker-api/pkg/client"
)

func (a *app) tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Work with tasks",
	}
	cmd.AddCommand(
		a.listCmd(),
		a.getCmd(),
		a.createCmd(),
		a.updateCmd(),
		a.deleteCmd(),
		a.allCmd(),
		a.statsCmd(),
	)
	return cmd
}

func (a *app) printTable(tasks []client.Task) error {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tDUE\tCREATED BY\tASSIGNED TO")
	for _, t := range tasks {
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Format("2006-01-02")
		}
		assignee := "-"
		if t.AssignedTo != nil {
			assignee = t.AssignedTo.DisplayName()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Title, t.Status, t.Priority, due, t.CreatedBy.DisplayName(), assignee)
	}
	return tw.Flush()
}

func (a *app) listCmd() *cobra.Command {
	var opts client.ListOptions
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tasks you created or are assigned to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.client().ListTasks(cmd.Context(), opts)
			if err != nil {
				return explain(err)
			}
			if asJSON {
				return a.print(page)
			}
			if err := a.printTable(page.Tasks); err != nil {
				return err
			}
			p := page.Pagination
			fmt.Fprintf(a.out, "page %d of %d (%d tasks)\n", p.Page, p.Pages, p.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Status, "status", "", "pending, in-progress or completed")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "low, medium or high")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "tasks per page (max 100)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := a.client().GetTask(cmd.Context(), args[0])
			if err != nil {
				return explain(err)
			}
			return a.print(task)
		},
	}
}

func (a *app) createCmd() *cobra.Command {
	var in client.CreateTaskRequest
	var due, key string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if due != "" {
				d, err := client.ParseDate(due)
				if err != nil {
					return fmt.Errorf("--due: %w", err)
				}
				in.DueDate = &d
			}
			task, err := a.client().CreateTask(cmd.Context(), in, key)
			if err != nil {
				return explain(err)
			}
			return a.print(task)
		},
	}
	cmd.Flags().StringVar(&in.Title, "title", "", "task title")
	cmd.Flags().StringVar(&in.Description, "description", "", "task description")
	cmd.Flags().StringVar(&in.Status, "status", "", "initial status (default pending)")
	cmd.Flags().StringVar(&in.Priority, "priority", "", "priority (default medium)")
	cmd.Flags().StringVar(&due, "due", "", "due date, YYYY-MM-DD or RFC 3339")
	cmd.Flags().StringVar(&in.AssignedTo, "assign", "", "user id to assign the task to")
	cmd.Flags().StringVar(&key, "idempotency-key", "", "retry-safe key for this creation")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var title, description, status, priority, due, assign string
	var clearDue, unassign bool

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a task you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := map[string]any{}
			flags := cmd.Flags()
			for name, value := range map[string]string{
				"title":       title,
				"description": description,
				"status":      status,
				"priority":    priority,
			} {
				if flags.Changed(name) {
					fields[name] = value
				}
			}
			switch {
			case clearDue:
				fields["dueDate"] = nil
			case flags.Changed("due"):
				fields["dueDate"] = due
			}
			switch {
			case unassign:
				fields["assignedTo"] = nil
			case flags.Changed("assign"):
				fields["assignedTo"] = assign
			}
			if len(fields) == 0 {
				return fmt.Errorf("nothing to update")
			}

			task, err := a.client().UpdateTask(cmd.Context(), args[0], fields)
			if err != nil {
				return explain(err)
			}
			return a.print(task)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&status, "status", "", "pending, in-progress or completed")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium or high")
	cmd.Flags().StringVar(&due, "due", "", "new due date")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "remove the due date")
	cmd.Flags().StringVar(&assign, "assign", "", "user id to assign the task to")
	cmd.Flags().BoolVar(&unassign, "unassign", false, "remove the assignee")
	cmd.MarkFlagsMutuallyExclusive("due", "clear-due")
	cmd.MarkFlagsMutuallyExclusive("assign", "unassign")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client().DeleteTask(cmd.Context(), args[0]); err != nil {
				return explain(err)
			}
			fmt.Fprintln(a.out, "Task deleted successfully")
			return nil
		},
	}
}

func (a *app) allCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "List every task (admin only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := a.client().ListAllTasks(cmd.Context())
			if err != nil {
				return explain(err)
			}
			return a.printTable(tasks)
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show task counts by status and priority (admin only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.client().Stats(cmd.Context())
			if err != nil {
				return explain(err)
			}
			return a.print(stats)
		},
	}
}
