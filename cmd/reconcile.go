package cmd

import (
	"fmt"

	validate "github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/canonical/ingress-configurator/config"
	"github.com/canonical/ingress-configurator/reconciler"
	"github.com/canonical/ingress-configurator/relation"
)

type reconcileOpts struct {
	ConfigSnapshot   string `validate:"required"`
	RelationSnapshot string `validate:"required"`
	StatusFile       string
	Write            bool
	Debug            bool
}

const (
	configSnapshot   = "config-snapshot"
	relationSnapshot = "relation-snapshot"
	statusFile       = "status-file"
	writeBack        = "write"
	debug            = "debug"
)

func (o *reconcileOpts) setupFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.ConfigSnapshot, configSnapshot, "", "path to the configuration snapshot YAML")
	flags.StringVar(&o.RelationSnapshot, relationSnapshot, "", "path to the relation snapshot YAML")
	flags.StringVar(&o.StatusFile, statusFile, "", "write the resulting status as JSON to this file")
	flags.BoolVar(&o.Write, writeBack, false, "write updated relation databags back to the snapshot")
	flags.BoolVar(&o.Debug, debug, false, "enable debug logging")
}

// Validate checks the options.
func (o *reconcileOpts) Validate() error {
	return validate.New().Struct(o)
}

// ReconcileCommand runs a single reconciliation pass over the given
// snapshots.
func ReconcileCommand() (*cobra.Command, error) {
	opts := new(reconcileOpts)
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "recompute the routing state and publish it over the bound relations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := viperWalk(cmd.Flags()); err != nil {
				return err
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			return runReconcile(cmd, opts)
		},
	}
	opts.setupFlags(cmd.Flags())
	return cmd, nil
}

func runReconcile(cmd *cobra.Command, opts *reconcileOpts) error {
	logger := setupLogger(opts.Debug)
	ctx := logger.WithContext(cmd.Context())

	bag, err := config.Load(opts.ConfigSnapshot)
	if err != nil {
		return err
	}
	relations, err := relation.LoadSnapshot(opts.RelationSnapshot)
	if err != nil {
		return err
	}

	reporter := reconciler.MultiReporter{reconciler.LogReporter{}}
	if opts.StatusFile != "" {
		reporter = append(reporter, reconciler.FileReporter{Path: opts.StatusFile})
	}

	r := &reconciler.Reconciler{Reporter: reporter}
	status := r.Reconcile(ctx, &reconciler.Snapshot{Config: bag, Relations: relations})

	if opts.Write {
		if err := relation.WriteSnapshot(opts.RelationSnapshot, relations); err != nil {
			return err
		}
	}

	// a blocked status is a valid outcome, not a command failure
	fmt.Fprintf(cmd.OutOrStdout(), "%s", formatStatus(status))
	return nil
}

func formatStatus(status reconciler.Status) string {
	if status.Message == "" {
		return fmt.Sprintf("%s\n", status.Kind)
	}
	return fmt.Sprintf("%s: %s\n", status.Kind, status.Message)
}
