package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/teslashibe/go-roulette/pkg/discovery"
)

func newBrowseCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List roulette dashboards advertised on the local network",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			found, err := discovery.Browse(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(found) == 0 {
				_, err := fmt.Fprintln(out, "no dashboards found")
				return err
			}
			for _, d := range found {
				fmt.Fprintf(out, "%s\t%s\tsession=%s\tversion=%s\n", d.Instance, d.URL(), d.Meta["session"], d.Meta["version"])
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "how long to listen for adverts")
	return cmd
}
