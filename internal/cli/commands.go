package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/todo"
	"github.com/idilsaglam/tada/internal/tui"
	"github.com/idilsaglam/tada/internal/ui"
)

const indexHint = "Hint: run `tada ls` to see valid indexes"

func (a *app) addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a new item (text can be multiple words)",
		Args:  minArgs(1, "usage: tada add <text...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return a.mutate(cmd.Context(), "added", func(s *todo.Store) error {
				if _, ok := s.Add(text); !ok {
					return usageErr("add: empty text")
				}
				return nil
			})
		},
	}
}

func (a *app) doneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "done <index>",
		Short: "Toggle done for item at 1-based index",
		Args:  exactArgs(1, "usage: tada done <index>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd.Context(), "toggled", func(s *todo.Store) error {
				it, err := itemAt(s, "done", args[0])
				if err != nil {
					return err
				}
				s.Toggle(it.ID)
				return nil
			})
		},
	}
}

func (a *app) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <index>",
		Short: "Remove item at 1-based index",
		Args:  exactArgs(1, "usage: tada rm <index>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.mutate(cmd.Context(), "removed", func(s *todo.Store) error {
				it, err := itemAt(s, "rm", args[0])
				if err != nil {
					return err
				}
				s.Remove(it.ID)
				return nil
			})
		},
	}
}

func (a *app) editCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <index> <text...>",
		Short: "Replace the text of the item at 1-based index",
		Args:  minArgs(2, "usage: tada edit <index> <text...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			return a.mutate(cmd.Context(), "edited", func(s *todo.Store) error {
				it, err := itemAt(s, "edit", args[0])
				if err != nil {
					return err
				}
				s.StartEdit(it.ID)
				s.SetDraft(text)
				s.CommitEdit()
				return nil
			})
		},
	}
}

func (a *app) listCommand() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List items (interactive unless --plain or not a terminal)",
		Args:  exactArgs(0, "usage: tada ls [--plain]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if plain || !ui.IsTTY() {
				return a.printList(cmd.Context())
			}
			return a.interactive(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print the list instead of opening the TUI")
	return cmd
}

func (a *app) configCommand() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  exactArgs(0, "usage: tada config [--write]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if write {
				if err := a.cfg.Save(a.configPath); err != nil {
					return runtimeErr("config: %v", err)
				}
				ui.OK(a.stdout, "wrote "+a.configPath)
				return nil
			}
			data, err := a.cfg.Marshal()
			if err != nil {
				return runtimeErr("config: %v", err)
			}
			_, err = a.stdout.Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "save the effective configuration to --config")
	return cmd
}

// -------------- subcommand impls ----------------

// mutate opens the store, applies fn, and waits for the write to land.
func (a *app) mutate(ctx context.Context, okMsg string, fn func(*todo.Store) error) error {
	sess, err := a.open(ctx, false)
	if err != nil {
		return err
	}
	fnErr := fn(sess.store)
	if err := sess.close(ctx); err != nil && fnErr == nil {
		return runtimeErr("save: %v", err)
	}
	if fnErr != nil {
		return fnErr
	}
	ui.OK(a.stdout, okMsg)
	return nil
}

func (a *app) printList(ctx context.Context) error {
	sess, err := a.open(ctx, false, todo.WithPolicy(todo.Manual()))
	if err != nil {
		return err
	}
	items := sess.store.Items()
	_ = sess.close(ctx)

	ui.Panel(a.stdout, ui.ListLines(items, a.cfg.UI.Group))
	return nil
}

func (a *app) interactive(ctx context.Context) error {
	errs := make(chan error, 8)
	report := func(op todo.Op, err error) {
		select {
		case errs <- fmt.Errorf("%s: %w", op, err):
		default:
		}
	}
	sess, err := a.open(ctx, true, todo.WithErrorHandler(report))
	if err != nil {
		return err
	}

	runErr := tui.Run(sess.store, errs)
	closeErr := sess.close(ctx)
	if runErr != nil {
		return runtimeErr("tui: %v", runErr)
	}
	if closeErr != nil {
		return runtimeErr("save: %v", closeErr)
	}
	return nil
}

// itemAt resolves a 1-based index argument against the loaded list.
func itemAt(s *todo.Store, verb, arg string) (model.Item, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return model.Item{}, usageErr("%s: not a number: %s", verb, arg)
	}
	items := s.Items()
	if n < 1 || n > len(items) {
		return model.Item{}, &exitError{
			code: ExitUsage,
			msg:  fmt.Sprintf("index out of range: have %d, got %d", len(items), n),
			hint: indexHint,
		}
	}
	return items[n-1], nil
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageErr("%s", usage)
		}
		return nil
	}
}

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usageErr("%s", usage)
		}
		return nil
	}
}
