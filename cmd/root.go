package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootCommand assembles the configurator CLI.
func RootCommand() (*cobra.Command, error) {
	root := cobra.Command{
		Use:          "ingress-configurator",
		Short:        "derive, validate and publish reverse proxy backend routes",
		SilenceUsage: true,
	}

	for name, fn := range map[string]func() (*cobra.Command, error){
		"reconcile":             ReconcileCommand,
		"get-proxied-endpoints": GetProxiedEndpointsCommand,
	} {
		cmd, err := fn()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		root.AddCommand(cmd)
	}

	return &root, nil
}
