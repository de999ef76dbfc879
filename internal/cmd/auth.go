package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/casepro/gmailbot/internal/googleauth"
	"github.com/casepro/gmailbot/internal/outfmt"
	"github.com/casepro/gmailbot/internal/secrets"
	"github.com/casepro/gmailbot/internal/ui"
)

func newAuthCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Service account keys and delegation status",
	}
	cmd.AddCommand(newAuthStatusCmd(flags))
	cmd.AddCommand(newAuthImportCmd())
	cmd.AddCommand(newAuthListCmd())
	cmd.AddCommand(newAuthRemoveCmd(flags))
	return cmd
}

func newAuthStatusCmd(flags *rootFlags) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show who gets impersonated, with which key and scopes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, s, src, err := resolveDelegation(flags)
			if err != nil {
				return err
			}
			key, err := googleauth.ParseKey(d.KeyJSON)
			if err != nil {
				return err
			}

			services, err := scopesByService()
			if err != nil {
				return err
			}

			var expiry time.Time
			if check {
				ts, err := newTokenSource(cmd.Context(), d.KeyJSON, d.Subject, d.Scopes)
				if err != nil {
					return err
				}
				tok, err := ts.Token()
				if err != nil {
					return err
				}
				expiry = tok.Expiry
			}

			if outfmt.IsJSON(cmd.Context()) {
				out := map[string]any{
					"subject":                  d.Subject,
					"scopes":                   d.Scopes,
					"services":                 services,
					"key_source":               src.Kind,
					"key_location":             src.Where,
					"client_email":             key.ClientEmail,
					"client_id":                key.ClientID,
					"project_id":               key.ProjectID,
					"spreadsheet_id":           s.SpreadsheetID,
					"alternate_spreadsheet_id": s.AlternateSpreadsheetID,
				}
				if check {
					out["token_ok"] = true
					if !expiry.IsZero() {
						out["token_expiry"] = expiry.UTC().Format(time.RFC3339)
					}
				}
				return outfmt.WriteJSON(os.Stdout, out)
			}

			u := ui.FromContext(cmd.Context())
			u.Out().Printf("subject\t%s", d.Subject)
			u.Out().Printf("scopes\t%s", strings.Join(d.Scopes, ","))
			for _, svc := range googleauth.AllServices() {
				u.Out().Printf("  %s\t%s", svc, strings.Join(services[string(svc)], ","))
			}
			u.Out().Printf("key\t%s (%s)", src.Where, src.Kind)
			u.Out().Printf("client_email\t%s", key.ClientEmail)
			u.Out().Printf("client_id\t%s", key.ClientID)
			u.Out().Printf("project_id\t%s", key.ProjectID)
			u.Out().Printf("spreadsheet_id\t%s", s.SpreadsheetID)
			if s.AlternateSpreadsheetID != "" {
				u.Out().Printf("alternate_spreadsheet_id\t%s", s.AlternateSpreadsheetID)
			}
			if check {
				u.Out().Successf("Delegation OK: token issued for %s", d.Subject)
			} else {
				u.Err().Warnf("Delegation not verified; run: gmailbot auth status --check")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Request an access token to verify delegation is granted")
	return cmd
}

func scopesByService() (map[string][]string, error) {
	out := make(map[string][]string)
	for _, svc := range googleauth.AllServices() {
		scopes, err := googleauth.Scopes(svc)
		if err != nil {
			return nil, err
		}
		out[string(svc)] = scopes
	}
	return out, nil
}

func newAuthImportCmd() *cobra.Command {
	var makeDefault bool

	cmd := &cobra.Command{
		Use:   "import <key.json>",
		Short: "Store a service account key file in the keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := googleauth.ReadKeyFile(args[0])
			if err != nil {
				return fmt.Errorf("read key file: %w", err)
			}
			key, err := googleauth.ParseKey(data)
			if err != nil {
				return usage(err.Error())
			}

			store, _, err := openStore()
			if err != nil {
				return err
			}
			if err := store.SetKey(key.ClientEmail, secrets.ServiceAccountSecret{
				Email:      key.ClientEmail,
				ProjectID:  key.ProjectID,
				ImportedAt: time.Now().UTC(),
				KeyJSON:    data,
			}); err != nil {
				return err
			}

			if makeDefault {
				cfg, err := readConfig()
				if err != nil {
					return err
				}
				cfg.ServiceAccount = key.ClientEmail
				if err := writeConfig(cfg); err != nil {
					return err
				}
			}

			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{
					"stored":     true,
					"email":      key.ClientEmail,
					"project_id": key.ProjectID,
					"default":    makeDefault,
				})
			}
			u := ui.FromContext(cmd.Context())
			u.Out().Successf("Stored key for %s", key.ClientEmail)
			if makeDefault {
				u.Out().Printf("service_account\t%s", key.ClientEmail)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&makeDefault, "default", false, "Also set config service_account to this key")
	return cmd
}

func newAuthListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List imported service account keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, s, err := openStore()
			if err != nil {
				return err
			}
			keys, err := store.ListKeys()
			if err != nil {
				return err
			}

			if outfmt.IsJSON(cmd.Context()) {
				type item struct {
					Email      string `json:"email"`
					ProjectID  string `json:"project_id,omitempty"`
					ImportedAt string `json:"imported_at,omitempty"`
					Default    bool   `json:"default"`
				}
				items := make([]item, 0, len(keys))
				for _, k := range keys {
					it := item{Email: k.Email, ProjectID: k.ProjectID, Default: strings.EqualFold(k.Email, s.ServiceAccount)}
					if !k.ImportedAt.IsZero() {
						it.ImportedAt = k.ImportedAt.UTC().Format(time.RFC3339)
					}
					items = append(items, it)
				}
				return outfmt.WriteJSON(os.Stdout, map[string]any{"keys": items})
			}

			if len(keys) == 0 {
				ui.FromContext(cmd.Context()).Err().Println("No keys stored")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, k := range keys {
				mark := ""
				if strings.EqualFold(k.Email, s.ServiceAccount) {
					mark = "default"
				}
				imported := ""
				if !k.ImportedAt.IsZero() {
					imported = k.ImportedAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.Email, k.ProjectID, imported, mark)
			}
			return tw.Flush()
		},
	}
}

func newAuthRemoveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <email>",
		Short: "Remove an imported service account key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := strings.TrimSpace(args[0])
			if email == "" {
				return usage("empty email")
			}
			if err := confirm(flags, fmt.Sprintf("Remove stored key for %s?", email)); err != nil {
				return err
			}
			store, _, err := openStore()
			if err != nil {
				return err
			}
			if err := store.DeleteKey(email); err != nil {
				return err
			}
			if outfmt.IsJSON(cmd.Context()) {
				return outfmt.WriteJSON(os.Stdout, map[string]any{"deleted": true, "email": email})
			}
			ui.FromContext(cmd.Context()).Out().Successf("Removed key for %s", email)
			return nil
		},
	}
}
