package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/goliatone/go-mdmigrate"
	"github.com/spf13/cobra"
)

func newUpgradeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade [target]",
		Short: "Apply episodes up to target (default: configured target, usually head)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := c.config.Migrations.Target
			if len(args) == 1 {
				target = args[0]
			}
			applied, err := c.module.Upgrade(cmd.Context(), target)
			printRevisions(cmd.OutOrStdout(), "applied", applied)
			return err
		},
	}
}

func newDowngradeCmd(c *cli) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "downgrade <target>",
		Short: "Revert episodes down to target: a revision, base or -N",
		Long: "Revert episodes down to target. The target is a revision, base, or\n" +
			"-N to step back N episodes (the same as --steps N).",
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case steps < 0:
				return fmt.Errorf("--steps must be positive, got %d", steps)
			case steps > 0 && len(args) > 0:
				return fmt.Errorf("downgrade takes a target or --steps, not both")
			case steps == 0 && len(args) != 1:
				return fmt.Errorf("downgrade requires a target or --steps")
			}
			return cobra.MaximumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := fmt.Sprintf("-%d", steps)
			if len(args) == 1 {
				target = args[0]
			}
			reverted, err := c.module.Downgrade(cmd.Context(), target)
			printRevisions(cmd.OutOrStdout(), "reverted", reverted)
			return err
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "number of episodes to step back")
	return cmd
}

func newCurrentCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Print the applied head revision",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := c.module.Current(cmd.Context())
			if err != nil {
				return err
			}
			if current == "" {
				current = mdmigrate.TargetBase
			}
			fmt.Fprintln(cmd.OutOrStdout(), current)
			return nil
		},
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	var (
		markers bool
		filter  mdmigrate.MarkerFilter
		action  string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List episodes from root to head",
		Long: `List episodes from root to head. The applied head is starred.

With --markers the revisionless-modification log follows the chain: the
newest batch and every marker matching --type, --action and --batch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := c.module.Current(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, ep := range c.module.History() {
				marker := " "
				if ep.Revision == current {
					marker = "*"
				}
				mode := "one-way"
				if ep.Reversible() {
					mode = "reversible"
				}
				fmt.Fprintf(out, "%s %s  %-10s %s\n", marker, ep.Revision, mode, ep.Description)
			}
			if !markers {
				return nil
			}
			if action != "" {
				filter.Action = mdmigrate.MarkerAction(action)
				if err := filter.Action.Validate(); err != nil {
					return fmt.Errorf("--action: %w", err)
				}
			}
			return printMarkers(cmd, c.module, filter)
		},
	}
	cmd.Flags().BoolVar(&markers, "markers", false, "also list revisionless-modification markers")
	cmd.Flags().StringVar(&filter.ObjectType, "type", "", "only markers of this object type")
	cmd.Flags().StringVar(&action, "action", "", "only markers with this action: created, modified or deleted")
	cmd.Flags().Int64Var(&filter.BatchID, "batch", 0, "only markers of this batch id")
	return cmd
}

func printMarkers(cmd *cobra.Command, module *mdmigrate.Module, filter mdmigrate.MarkerFilter) error {
	out := cmd.OutOrStdout()
	batch, err := module.LatestBatch(cmd.Context())
	if err != nil {
		return err
	}
	if batch == nil {
		fmt.Fprintln(out, "no revisionless batches")
		return nil
	}
	fmt.Fprintf(out, "latest batch %d %s at %s\n", batch.ID, batch.UID, batch.CreatedAt.UTC().Format(time.RFC3339))
	list, err := module.Markers(cmd.Context(), filter)
	if err != nil {
		return err
	}
	for _, m := range list {
		fmt.Fprintf(out, "%s %d %s batch=%d\n", m.ObjType, m.ObjID, m.Action, m.BatchID)
	}
	return nil
}

func newMappingsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mappings <object_type> <object_id>",
		Short: "List the external mappings of one object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			objectID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || objectID <= 0 {
				return fmt.Errorf("object id must be a positive integer, got %q", args[1])
			}
			mappings, total, err := c.module.Mappings(cmd.Context(), args[0], objectID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range mappings {
				fmt.Fprintf(out, "%s %d\n", m.ExternalType, m.ExternalID)
			}
			fmt.Fprintf(out, "%d of %d mappings\n", len(mappings), total)
			return nil
		},
	}
}

func newHeadsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "heads",
		Short: "Print the tip revisions of the chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, head := range c.module.Heads() {
				fmt.Fprintln(cmd.OutOrStdout(), head)
			}
			return nil
		},
	}
}

func newStampCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stamp <revision>",
		Short: "Record revision as the head without running episodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.module.Stamp(cmd.Context(), args[0])
		},
	}
}

func printRevisions(out io.Writer, verb string, revisions []string) {
	for _, rev := range revisions {
		fmt.Fprintf(out, "%s %s\n", verb, rev)
	}
}
