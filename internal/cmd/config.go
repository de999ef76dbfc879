package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/casepro/gmailbot/internal/config"
	"github.com/casepro/gmailbot/internal/outfmt"
	"github.com/casepro/gmailbot/internal/ui"
)

func newConfigCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write the config file",
	}
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigShowCmd(flags))
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{"path": path})
			}
			_, err = fmt.Fprintln(os.Stdout, path)
			return err
		},
	}
}

// newConfigShowCmd prints the effective settings (defaults, then config
// file, then env, then flags).
func newConfigShowCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := resolveSettings(flags)
			if err != nil {
				return err
			}
			rows := [][2]string{
				{"credentials_file", s.CredentialsFile},
				{"subject", s.Subject},
				{"spreadsheet_id", s.SpreadsheetID},
				{"alternate_spreadsheet_id", s.AlternateSpreadsheetID},
				{"service_account", s.ServiceAccount},
				{"keyring_backend", s.KeyringBackend},
			}
			if outfmt.IsJSON(cmd.Context()) {
				out := make(map[string]string, len(rows))
				for _, r := range rows {
					out[r[0]] = r[1]
				}
				return outfmt.WriteJSON(os.Stdout, out)
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1])
			}
			return tw.Flush()
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a value stored in the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readConfig()
			if err != nil {
				return err
			}
			v, err := config.Get(cfg, args[0])
			if err != nil {
				return usage(err.Error())
			}
			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{"key": args[0], "value": v})
			}
			_, err = fmt.Fprintln(os.Stdout, v)
			return err
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> [value]",
		Short: "Store a value in the config file (omit value to unset)",
		Long:  "Store a value in the config file (omit value to unset).\nKeys: " + fmt.Sprint(config.Keys()),
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ""
			if len(args) == 2 {
				value = args[1]
			}
			cfg, err := readConfig()
			if err != nil {
				return err
			}
			cfg, err = config.Set(cfg, args[0], value)
			if err != nil {
				return usage(err.Error())
			}
			if args[0] == "subject" && value != "" {
				s := config.Resolve(cfg, func(string) string { return "" })
				if err := s.Validate(); err != nil {
					return usage(err.Error())
				}
			}
			if err := writeConfig(cfg); err != nil {
				return err
			}
			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{"key": args[0], "value": value})
			}
			u := ui.FromContext(cmd.Context())
			if value == "" {
				u.Out().Successf("Unset %s", args[0])
				return nil
			}
			u.Out().Successf("Set %s", args[0])
			return nil
		},
	}
}
