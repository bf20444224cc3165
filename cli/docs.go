package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// CommandDoc is the structured description of one command.
type CommandDoc struct {
	Name        string       `json:"name"`
	Path        string       `json:"path"`
	Short       string       `json:"short,omitempty"`
	Long        string       `json:"long,omitempty"`
	Flags       []FlagDoc    `json:"flags,omitempty"`
	Subcommands []CommandDoc `json:"subcommands,omitempty"`
}

// FlagDoc describes one flag.
type FlagDoc struct {
	Name      string `json:"name"`
	Shorthand string `json:"shorthand,omitempty"`
	Usage     string `json:"usage"`
	Default   string `json:"default,omitempty"`
}

// Describe walks the command tree below cmd.
func Describe(cmd *cobra.Command) CommandDoc {
	doc := CommandDoc{
		Name:  cmd.Name(),
		Path:  cmd.CommandPath(),
		Short: cmd.Short,
		Long:  cmd.Long,
	}
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		doc.Flags = append(doc.Flags, FlagDoc{Name: f.Name, Shorthand: f.Shorthand, Usage: f.Usage, Default: f.DefValue})
	})
	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			doc.Subcommands = append(doc.Subcommands, Describe(sub))
		}
	}
	return doc
}

// NewDocsCommand prints the JSON description of the root command tree.
func NewDocsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "docs",
		Short: "Print the structured JSON documentation for this tool",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(Describe(cmd.Root()), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
