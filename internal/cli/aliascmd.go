package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamiazya/scopes/internal/alias"
)

// NewAliasCommand groups the alias subcommands.
func NewAliasCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage scope aliases",
	}
	cmd.AddCommand(newAliasAddCommand(opts))
	cmd.AddCommand(newAliasRemoveCommand(opts))
	cmd.AddCommand(newAliasSetCanonicalCommand(opts))
	cmd.AddCommand(newAliasResolveCommand(opts))
	cmd.AddCommand(newAliasRenameCommand(opts))
	return cmd
}

func newAliasAddCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <scope> <name>",
		Short: "Add a custom alias to a scope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx := cmd.Context()

			id, err := app.resolveScope(ctx, args[0])
			if err != nil {
				return err
			}
			name, err := alias.NewName(args[1])
			if err != nil {
				return err
			}
			record, err := app.Aliases.AddCustom(ctx, id, name)
			if err != nil {
				return err
			}
			return app.Out.Emit(
				map[string]string{"name": record.Name.String(), "scope": id.String()},
				fmt.Sprintf("added alias %s", record.Name),
			)
		},
	}
}

func newAliasRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a custom alias",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			name, err := alias.NewName(args[0])
			if err != nil {
				return err
			}
			if err := app.Aliases.Remove(cmd.Context(), name); err != nil {
				return err
			}
			return app.Out.Emit(map[string]string{"name": name.String()}, fmt.Sprintf("removed alias %s", name))
		},
	}
}

func newAliasSetCanonicalCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-canonical <scope> <name>",
		Short: "Make a name the scope's canonical alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx := cmd.Context()

			id, err := app.resolveScope(ctx, args[0])
			if err != nil {
				return err
			}
			name, err := alias.NewName(args[1])
			if err != nil {
				return err
			}
			record, err := app.Aliases.SetCanonical(ctx, id, name)
			if err != nil {
				return err
			}
			return app.Out.Emit(
				map[string]string{"name": record.Name.String(), "scope": id.String()},
				fmt.Sprintf("canonical alias is now %s", record.Name),
			)
		},
	}
}

func newAliasResolveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name-or-prefix>",
		Short: "Resolve an alias to its scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()
			ctx := cmd.Context()

			id, err := app.Aliases.ResolvePrefix(ctx, strings.ToLower(args[0]))
			if err != nil {
				return err
			}
			return app.Out.Emit(map[string]string{"scope": id.String()}, id.String())
		},
	}
}

func newAliasRenameCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename an alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(opts)
			if err != nil {
				return err
			}
			defer app.Close()

			old, err := alias.NewName(args[0])
			if err != nil {
				return err
			}
			new, err := alias.NewName(args[1])
			if err != nil {
				return err
			}
			if err := app.Aliases.Rename(cmd.Context(), old, new); err != nil {
				return err
			}
			return app.Out.Emit(
				map[string]string{"old": old.String(), "new": new.String()},
				fmt.Sprintf("renamed %s to %s", old, new),
			)
		},
	}
}
