package config

import (
	"fmt"
	"net/mail"
	"os"
	"strings"
)

const (
	EnvCredentials    = "GMAILBOT_CREDENTIALS"
	EnvSubject        = "GMAILBOT_SUBJECT"
	EnvSpreadsheet    = "GMAILBOT_SPREADSHEET"
	EnvServiceAccount = "GMAILBOT_SERVICE_ACCOUNT"
	EnvKeyringBackend = "GMAILBOT_KEYRING_BACKEND"
)

// Settings is the resolved configuration for one run.
type Settings struct {
	CredentialsFile        string
	Subject                string
	SpreadsheetID          string
	AlternateSpreadsheetID string
	ServiceAccount         string
	KeyringBackend         string
}

func Defaults() Settings {
	return Settings{
		CredentialsFile:        DefaultCredentialsFile,
		Subject:                DefaultSubject,
		SpreadsheetID:          DefaultSpreadsheetID,
		AlternateSpreadsheetID: DefaultAlternateSpreadsheetID,
		KeyringBackend:         "auto",
	}
}

// Resolve layers env over file over defaults.
func Resolve(f File, getenv func(string) string) Settings {
	if getenv == nil {
		getenv = os.Getenv
	}
	s := Defaults()
	pick := func(dst *string, fileVal, envKey string) {
		if v := strings.TrimSpace(fileVal); v != "" {
			*dst = v
		}
		if v := strings.TrimSpace(getenv(envKey)); v != "" {
			*dst = v
		}
	}
	pick(&s.CredentialsFile, f.CredentialsFile, EnvCredentials)
	pick(&s.Subject, f.Subject, EnvSubject)
	pick(&s.SpreadsheetID, f.SpreadsheetID, EnvSpreadsheet)
	pick(&s.ServiceAccount, f.ServiceAccount, EnvServiceAccount)
	pick(&s.KeyringBackend, f.KeyringBackend, EnvKeyringBackend)
	if v := strings.TrimSpace(f.AlternateSpreadsheetID); v != "" {
		s.AlternateSpreadsheetID = v
	}
	return s
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.Subject) == "" {
		return fmt.Errorf("missing subject (set %s or config key subject)", EnvSubject)
	}
	addr, err := mail.ParseAddress(s.Subject)
	if err != nil || addr.Address != s.Subject {
		return fmt.Errorf("invalid subject %q: expected a bare email address", s.Subject)
	}
	if strings.TrimSpace(s.SpreadsheetID) == "" {
		return fmt.Errorf("missing spreadsheet id (set %s or config key spreadsheet_id)", EnvSpreadsheet)
	}
	return nil
}

func (s Settings) ActiveSpreadsheet(useAlternate bool) (string, error) {
	if !useAlternate {
		return s.SpreadsheetID, nil
	}
	if strings.TrimSpace(s.AlternateSpreadsheetID) == "" {
		return "", fmt.Errorf("no alternate spreadsheet configured")
	}
	return s.AlternateSpreadsheetID, nil
}
