// Package cli implements the maildir command line tool.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/infodancer/mailstore/internal/config"
	"github.com/infodancer/mailstore/internal/logging"
	"github.com/infodancer/mailstore/maildir"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

// NewRootCmd builds the command tree. Each call returns an independent
// tree with its own configuration.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "maildir",
		Short: "Inspect and modify Maildir mailboxes",
		Long: `maildir reads and writes mailboxes in Maildir format: one file per
message under tmp/, new/ and cur/, with flags encoded in the file name.
No locks are taken; it is safe to run while mail is being delivered.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/mailstore/config.yaml)")
	flags.StringP("maildir", "m", "", "maildir to operate on")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	_ = a.v.BindPFlag("maildir.path", flags.Lookup("maildir"))
	_ = a.v.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", flags.Lookup("log-format"))

	root.AddCommand(
		a.explainCmd(),
		a.countCmd(),
		a.storeCmd(),
		a.showCmd(),
		a.seenCmd(),
		a.flagsCmd(),
		a.deleteCmd(),
		a.copyCmd(),
		a.moveCmd(),
		a.mkdirCmd(),
		a.cleanCmd(),
		a.foldersCmd(),
		a.deliverCmd(),
		a.keygenCmd(),
		a.sieveCmd(),
	)
	return root
}

// Execute runs the maildir command.
func Execute() error {
	return NewRootCmd().Execute()
}

// setup loads configuration and installs the logger before any subcommand.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := config.Init(a.v, a.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	a.cfg = cfg
	return nil
}

// maildir opens the configured maildir.
func (a *app) maildir() (*maildir.Maildir, error) {
	if a.cfg.Maildir.Path == "" {
		return nil, fmt.Errorf("no maildir given: use --maildir or set maildir.path")
	}
	return a.open(a.cfg.Maildir.Path), nil
}

func (a *app) open(path string) *maildir.Maildir {
	return maildir.New(path, a.cfg.MaildirOptions()...)
}
