package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamiazya/scopes/internal/contextview"
)

// NewContextCommand groups the context subcommands.
func NewContextCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Manage saved filter contexts",
	}
	cmd.AddCommand(newContextCreateCommand(opts))
	cmd.AddCommand(newContextListCommand(opts))
	cmd.AddCommand(newContextSwitchCommand(opts))
	cmd.AddCommand(newContextCurrentCommand(opts))
	return cmd
}

func newContextCreateCommand(opts *RootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create <key> <filter>",
		Short: "Create a context from a filter expression",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx := cmd.Context()

			if name == "" {
				name = args[0]
			}
			view, err := contextview.NewView(args[0], name, args[1], time.Now())
			if err != nil {
				return err
			}

			if exists, err := app.Store.ContextViews().ExistsByKey(ctx, view.Key); err != nil {
				return err
			} else if exists {
				return &contextview.Error{
					Code:    contextview.ErrCodeDuplicate,
					Message: "a context with this key already exists",
					Key:     view.Key.String(),
				}
			}
			if exists, err := app.Store.ContextViews().ExistsByName(ctx, view.Name); err != nil {
				return err
			} else if exists {
				return &contextview.Error{
					Code:    contextview.ErrCodeDuplicate,
					Message: "a context with this name already exists",
					Key:     view.Name,
				}
			}

			if err := app.Store.ContextViews().Save(ctx, view); err != nil {
				return err
			}
			return app.Out.Emit(
				map[string]string{"key": view.Key.String(), "name": view.Name, "filter": view.Filter},
				fmt.Sprintf("created context %s", view.Key),
			)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "display name (defaults to the key)")
	return cmd
}

func newContextListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved contexts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			views, err := app.Store.ContextViews().FindAll(cmd.Context())
			if err != nil {
				return err
			}
			if len(views) == 0 {
				return app.Out.Emit([]any{}, "no contexts")
			}

			var lines []string
			var payload []map[string]string
			for _, v := range views {
				lines = append(lines, fmt.Sprintf("%-20s %-20s %s", v.Key, v.Name, v.Filter))
				payload = append(payload, map[string]string{
					"key":    v.Key.String(),
					"name":   v.Name,
					"filter": v.Filter,
				})
			}
			return app.Out.Emit(payload, strings.Join(lines, "\n"))
		},
	}
}

func newContextSwitchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "switch <name>",
		Short: "Make a context active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			view, err := app.Contexts.SwitchByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return app.Out.Emit(
				map[string]string{"key": view.Key.String(), "name": view.Name},
				fmt.Sprintf("switched to %s", view.Name),
			)
		},
	}
}

func newContextCurrentCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the active context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			status := app.Contexts.Status()
			if !status.Active {
				return app.Out.Emit(map[string]bool{"active": false}, "no active context")
			}
			return app.Out.Emit(status, fmt.Sprintf("%s (%s)", status.Name, status.Filter))
		},
	}
}
