package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check that the configured provider answers",
		Long:  "Sends a one-word probe to the primary provider (and the fallback, when enabled, if the primary is slow).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{providers: true})
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if a.settings.TestMode {
				fmt.Fprintln(out, "Test mode is on: no request sent.")
				return nil
			}
			p := a.dispatcher.Primary()
			fmt.Fprintf(out, "Testing %s (%s)...\n", p.Name(), p.DefaultModel())
			if err := newEnhanceService(a).TestConnection(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(out, "Connection OK.")
			return nil
		},
	}
}
