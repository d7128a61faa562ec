package main

import (
	"context"
	"fmt"
	"io"
	"regexp"

	"github.com/goliatone/go-mdmigrate"
	"github.com/spf13/cobra"
)

type cli struct {
	configFile string
	module     *mdmigrate.Module
	config     mdmigrate.Config
}

// run builds the command tree, executes args and always releases the module.
func run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	c, root := newCLI()
	root.SetArgs(relativeTargets(args))
	root.SetIn(in)
	root.SetOut(out)
	err := root.ExecuteContext(ctx)
	if closeErr := c.close(); err == nil {
		err = closeErr
	}
	return err
}

var relativeTarget = regexp.MustCompile(`^-[1-9][0-9]*$`)

// relativeTargets rewrites `downgrade -N` as `downgrade --steps=N` so the
// target is not read as a shorthand flag.
func relativeTargets(args []string) []string {
	out := make([]string, 0, len(args))
	seen := false
	for _, arg := range args {
		if seen && relativeTarget.MatchString(arg) {
			arg = "--steps=" + arg[1:]
		}
		if arg == "downgrade" {
			seen = true
		}
		out = append(out, arg)
	}
	return out
}

func newCLI() (*cli, *cobra.Command) {
	c := &cli{}
	root := &cobra.Command{
		Use:           "grc-migrate",
		Short:         "Versioned rich-text to Markdown migration for GRC data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[annotationOffline] == "true" {
				return nil
			}
			return c.open(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default: ./grc-migrate.yaml)")
	flags.String("driver", "", "database driver: sqlite3, postgres or mysql")
	flags.String("dsn", "", "database connection string")
	flags.String("version-table", "", "table holding the applied head")
	flags.String("log-provider", "", "logging provider: console or gologger")
	flags.String("log-level", "", "minimum log level")
	flags.String("log-format", "", "gologger format: json, console or pretty")

	root.AddCommand(
		newUpgradeCmd(c),
		newDowngradeCmd(c),
		newCurrentCmd(c),
		newHistoryCmd(c),
		newHeadsCmd(c),
		newStampCmd(c),
		newMappingsCmd(c),
		newPreviewCmd(),
	)
	return c, root
}

// annotationOffline marks commands that never touch the database.
const annotationOffline = "offline"

func (c *cli) open(cmd *cobra.Command) error {
	cfg, err := loadConfig(c.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	module, err := mdmigrate.New(cfg)
	if err != nil {
		return fmt.Errorf("open module: %w", err)
	}
	c.config = cfg
	c.module = module
	return nil
}

func (c *cli) close() error {
	if c.module == nil {
		return nil
	}
	err := c.module.Close()
	c.module = nil
	return err
}
