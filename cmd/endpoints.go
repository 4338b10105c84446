package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canonical/ingress-configurator/relation"
	"github.com/canonical/ingress-configurator/relation/haproxyroute"
)

// GetProxiedEndpointsCommand prints the endpoint URLs the proxy currently
// serves this application's routes on, as advertised over the haproxy-route
// relation.
func GetProxiedEndpointsCommand() (*cobra.Command, error) {
	var snapshotPath string
	cmd := &cobra.Command{
		Use:   "get-proxied-endpoints",
		Short: "query the endpoints currently proxied for this application",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := viperWalk(cmd.Flags()); err != nil {
				return err
			}
			relations, err := relation.LoadSnapshot(snapshotPath)
			if err != nil {
				return err
			}
			routeRel := relation.Find(relations, haproxyroute.Name)
			if routeRel == nil {
				return errors.New("Missing haproxy-route relation.")
			}
			endpoints, err := haproxyroute.ProxiedEndpoints(routeRel)
			if err != nil {
				return err
			}
			out, err := formatEndpoints(endpoints)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&snapshotPath, relationSnapshot, "", "path to the relation snapshot YAML")
	return cmd, nil
}

// formatEndpoints renders the action result: the endpoints key carries a JSON
// encoded URL list, or an empty object when the proxy advertised nothing.
func formatEndpoints(endpoints []string) (string, error) {
	result := map[string]any{"endpoints": map[string]any{}}
	if len(endpoints) > 0 {
		list, err := json.Marshal(endpoints)
		if err != nil {
			return "", err
		}
		result["endpoints"] = string(list)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
