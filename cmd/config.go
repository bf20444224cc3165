package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/traffisense/core/cli"
	"github.com/traffisense/core/config"
	"github.com/traffisense/core/errors"
	"github.com/traffisense/core/internal/archive"
	"github.com/traffisense/core/pkg/paths"
	"github.com/traffisense/core/tui/components/table"
)

// NewConfigCmd creates the `config` command and its subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Prints the configuration after merging its layers:
1. Global config (~/.config/traffisense/traffisense.yml)
2. Project config (traffisense.yml, searched upwards from the current directory)
3. Override files (traffisense.override.yml)
Defaults fill everything no layer sets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if cwd, err := os.Getwd(); err == nil {
				if path, err := config.FindConfigFile(cwd); err == nil {
					fmt.Fprintf(w, "# Source: %s\n", path)
				} else {
					fmt.Fprintln(w, "# Source: defaults")
				}
			}
			if cli.GetOptions(cmd).JSONOutput {
				data, err := json.MarshalIndent(cfg, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(w, string(data))
				return nil
			}
			fmt.Fprint(w, cfg.String())
			return nil
		},
	}

	cmd.AddCommand(newConfigInitCmd(), newConfigSchemaCmd(), newConfigPathsCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a traffisense.yml with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			path := filepath.Join(dir, "traffisense.yml")
			if _, err := os.Stat(path); err == nil && !force {
				return errors.InvalidInput(path + " already exists; use --force to overwrite")
			}
			data, err := yaml.Marshal(config.Default())
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to write config").WithDetail("path", path)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func newConfigSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of traffisense.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

// PathsOutput lists the XDG locations traffisense uses.
type PathsOutput struct {
	ConfigDir     string `json:"config_dir"`
	DataDir       string `json:"data_dir"`
	StateDir      string `json:"state_dir"`
	GlobalConfig  string `json:"global_config"`
	Archive       string `json:"archive"`
	RecordingsDir string `json:"recordings_dir"`
}

func newConfigPathsCmd() *cobra.Command {
	var create bool
	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Print the directories traffisense uses",
		Long: `Prints the XDG-compliant paths:
- config_dir: configuration files (traffisense.yml)
- data_dir: the report archive and recordings
- state_dir: logs and the last job`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if create {
				if err := paths.EnsureDirs(); err != nil {
					return errors.Wrap(err, errors.ErrCodeInternal, "failed to create directories")
				}
			}
			archivePath := cfg.Archive.Path
			if archivePath == "" {
				archivePath = archive.DefaultPath()
			}
			out := PathsOutput{
				ConfigDir:     paths.ConfigDir(),
				DataDir:       paths.DataDir(),
				StateDir:      paths.StateDir(),
				GlobalConfig:  paths.GlobalConfigFile(),
				Archive:       archivePath,
				RecordingsDir: paths.RecordingsDir(),
			}
			if !cli.GetOptions(cmd).JSONOutput {
				fmt.Fprintln(cmd.OutOrStdout(), table.KeyValue([][2]string{
					{"Config dir", out.ConfigDir},
					{"Data dir", out.DataDir},
					{"State dir", out.StateDir},
					{"Global config", out.GlobalConfig},
					{"Archive", out.Archive},
					{"Recordings", out.RecordingsDir},
				}))
				return nil
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal paths to JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&create, "create", false, "Create the directories that do not exist yet")
	return cmd
}
