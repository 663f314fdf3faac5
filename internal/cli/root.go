package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/idilsaglam/tada/internal/config"
	"github.com/idilsaglam/tada/internal/ids"
	"github.com/idilsaglam/tada/internal/logging"
	"github.com/idilsaglam/tada/internal/store"
	"github.com/idilsaglam/tada/internal/todo"
	"github.com/idilsaglam/tada/internal/ui"
)

// app carries root flags and what PersistentPreRunE resolved from them.
type app struct {
	stdout, stderr io.Writer

	configPath string
	backend    string
	group      bool
	verbose    bool

	cfg *config.Config
	log *zap.Logger
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "tada",
		Short: "tada - a tiny todo list",
		Long: `tada keeps a todo list in a single key-value slot and rewrites the
whole list after every change.

Examples:
  tada add "Buy milk"
  tada ls
  tada done 2
  tada edit 2 "Buy oat milk"
  tada rm 3`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", config.DefaultPath, "config file")
	pf.StringVar(&a.backend, "backend", "", "storage backend (file, sqlite, memory)")
	pf.BoolVar(&a.group, "group", false, "group output by pending/done")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.addCommand(),
		a.listCommand(),
		a.doneCommand(),
		a.editCommand(),
		a.removeCommand(),
		a.configCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return runtimeErr("config: %v", err)
	}
	if a.backend != "" {
		cfg.Storage.Backend = a.backend
		if err := cfg.Validate(); err != nil {
			return usageErr("%v", err)
		}
	}
	if cmd.Flags().Changed("group") {
		cfg.UI.Group = a.group
	}
	a.cfg = cfg
	ui.SetTheme(cfg.UI.Theme)
	return nil
}

// session is an open store plus what must be released with it.
type session struct {
	store *todo.Store
	slot  store.Slot
	log   *zap.Logger
}

// open builds logger, slot and store, and loads the list. A load failure is
// fatal here: carrying on with an empty list would overwrite what's stored.
func (a *app) open(ctx context.Context, interactive bool, opts ...todo.Option) (*session, error) {
	var (
		log *zap.Logger
		err error
	)
	if interactive {
		log, err = logging.ForTUI(a.cfg.Logging, a.verbose, a.dataDir())
	} else {
		log, err = logging.New(a.cfg.Logging, a.verbose)
	}
	if err != nil {
		return nil, runtimeErr("logger: %v", err)
	}
	a.log = log

	slot, err := store.Open(a.cfg.Storage)
	if err != nil {
		return nil, runtimeErr("open %s: %v", store.Describe(a.cfg.Storage), err)
	}

	policy, err := policyFromConfig(a.cfg)
	if err != nil {
		_ = slot.Close()
		return nil, usageErr("%v", err)
	}

	base := []todo.Option{
		todo.WithKey(a.cfg.Storage.Key),
		todo.WithLogger(log.Named("todo")),
		todo.WithPolicy(policy),
		todo.WithIDs(generatorFromConfig(a.cfg)),
	}
	s := todo.New(slot, append(base, opts...)...)
	sess := &session{store: s, slot: slot, log: log}

	log.Debug("opened store",
		zap.String("backend", a.cfg.Storage.Backend),
		zap.String("location", store.Describe(a.cfg.Storage)),
		zap.Stringer("policy", policy))

	if err := s.Load(ctx); err != nil {
		_ = sess.close(ctx)
		return nil, runtimeErr("load: %v", err)
	}
	return sess, nil
}

// close flushes pending writes and releases the slot. The returned error is
// the first write failure, if any.
func (s *session) close(ctx context.Context) error {
	err := s.store.Close(ctx)
	if cerr := s.slot.Close(); cerr != nil {
		s.log.Warn("close slot", zap.Error(cerr))
		err = errors.Join(err, cerr)
	}
	return err
}

func (a *app) dataDir() string {
	switch a.cfg.Storage.Backend {
	case config.BackendFile:
		return a.cfg.Storage.Dir
	case config.BackendSQLite:
		return filepath.Dir(a.cfg.Storage.Path)
	}
	return os.TempDir()
}

func policyFromConfig(cfg *config.Config) (todo.Policy, error) {
	switch cfg.Persist.Policy {
	case config.PolicyDebounce:
		d, err := cfg.DebounceInterval()
		if err != nil {
			return todo.Policy{}, err
		}
		return todo.Debounce(d), nil
	case config.PolicyManual:
		return todo.Manual(), nil
	case config.PolicyImmediate:
		return todo.Immediate(), nil
	}
	return todo.Policy{}, fmt.Errorf("persist.policy: unknown policy %q", cfg.Persist.Policy)
}

func generatorFromConfig(cfg *config.Config) ids.Generator {
	if cfg.IDs.Generator == config.GeneratorRandom {
		return ids.NewRandom()
	}
	return ids.NewMonotonic(nil)
}
