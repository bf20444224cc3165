package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/traffisense/core/cli"
	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/logging"
	"github.com/traffisense/core/pkg/backend"
)

type healthReport struct {
	URL    string `json:"url"`
	Stream string `json:"stream"`
	Status string `json:"status"`
	OK     bool   `json:"ok"`
}

// NewHealthCmd creates the `health` command.
func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			client := backend.New(cfg)
			defer client.Close()

			out := healthReport{URL: client.BaseURL(), Stream: cfg.Backend.StreamBase()}
			status, err := client.Health(ctx)
			if status != nil {
				out.Status = status.Status
				out.OK = status.OK()
			}

			if cli.GetOptions(cmd).JSONOutput {
				data, _ := json.MarshalIndent(out, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			} else if out.OK {
				console := logging.NewConsole(cmd.OutOrStdout())
				console.Success("Backend at " + out.URL + " is healthy")
				console.Fields("status", out.Status, "stream", out.Stream)
			}

			if err != nil {
				return err
			}
			if !out.OK {
				return errors.BackendUnavailable(out.URL).WithDetail("status", out.Status)
			}
			return nil
		},
	}
}
