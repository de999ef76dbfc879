package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/casepro/gmailbot/internal/config"
	"github.com/casepro/gmailbot/internal/googleapi"
	"github.com/casepro/gmailbot/internal/googleauth"
	"github.com/casepro/gmailbot/internal/mail"
	"github.com/casepro/gmailbot/internal/secrets"
	"github.com/casepro/gmailbot/internal/sheet"
)

// Injection points for tests.
var (
	readConfig       = config.ReadConfig
	writeConfig      = config.WriteConfig
	configPath       = config.ConfigPath
	openSecretsStore = secrets.OpenDefault
	newSheetsService = googleapi.NewSheets
	newGmailService  = googleapi.NewGmail
	newTokenSource   = googleauth.DelegatedTokenSource
)

const (
	keySourceFile    = "file"
	keySourceKeyring = "keyring"
)

type keySource struct {
	Kind  string
	Where string
}

func resolveSettings(flags *rootFlags) (config.Settings, error) {
	f, err := readConfig()
	if err != nil {
		return config.Settings{}, err
	}
	s := config.Resolve(f, os.Getenv)
	if v := strings.TrimSpace(flags.Subject); v != "" {
		s.Subject = v
	}
	if v := strings.TrimSpace(flags.Credentials); v != "" {
		s.CredentialsFile = v
	}
	if err := s.Validate(); err != nil {
		return config.Settings{}, usage(err.Error())
	}
	return s, nil
}

// openStore opens the keyring without validating subject or spreadsheet, so
// keys can be managed before the rest of the config is in place.
func openStore() (secrets.Store, config.Settings, error) {
	f, err := readConfig()
	if err != nil {
		return nil, config.Settings{}, err
	}
	s := config.Resolve(f, os.Getenv)
	store, err := openSecretsStore(s.KeyringBackend)
	if err != nil {
		return nil, config.Settings{}, err
	}
	return store, s, nil
}

// loadKey reads the configured key file, falling back to a key imported into
// the keyring when the file does not exist.
func loadKey(s config.Settings) ([]byte, keySource, error) {
	data, err := googleauth.ReadKeyFile(s.CredentialsFile)
	if err == nil {
		return data, keySource{Kind: keySourceFile, Where: s.CredentialsFile}, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, keySource{}, fmt.Errorf("read service account key: %w", err)
	}
	slog.Debug("key file not found, trying keyring", "path", s.CredentialsFile)

	store, serr := openSecretsStore(s.KeyringBackend)
	if serr != nil {
		return nil, keySource{}, &config.CredentialsMissingError{Path: s.CredentialsFile, Cause: errors.Join(err, serr)}
	}

	if email := strings.TrimSpace(s.ServiceAccount); email != "" {
		sec, gerr := store.GetKey(email)
		if gerr != nil {
			return nil, keySource{}, fmt.Errorf("service account %s: %w", email, gerr)
		}
		return sec.KeyJSON, keySource{Kind: keySourceKeyring, Where: sec.Email}, nil
	}

	keys, lerr := store.ListKeys()
	if lerr != nil {
		return nil, keySource{}, &config.CredentialsMissingError{Path: s.CredentialsFile, Cause: errors.Join(err, lerr)}
	}
	switch len(keys) {
	case 0:
		return nil, keySource{}, &config.CredentialsMissingError{Path: s.CredentialsFile, Cause: err}
	case 1:
		return keys[0].KeyJSON, keySource{Kind: keySourceKeyring, Where: keys[0].Email}, nil
	default:
		return nil, keySource{}, usage(fmt.Sprintf("%d service account keys in keyring; pick one with: gmailbot config set service_account <email>", len(keys)))
	}
}

func resolveDelegation(flags *rootFlags) (googleapi.Delegation, config.Settings, keySource, error) {
	s, err := resolveSettings(flags)
	if err != nil {
		return googleapi.Delegation{}, config.Settings{}, keySource{}, err
	}
	keyJSON, src, err := loadKey(s)
	if err != nil {
		return googleapi.Delegation{}, config.Settings{}, keySource{}, err
	}
	d := googleapi.Delegation{
		KeyJSON: keyJSON,
		Subject: s.Subject,
		Scopes:  googleauth.DefaultScopes(),
		Trace:   flags.Trace,
	}
	return d, s, src, nil
}

type sheetFlags struct {
	Spreadsheet string
	Alternate   bool
}

func openSpreadsheet(ctx context.Context, flags *rootFlags, sf *sheetFlags) (*sheet.Handle, error) {
	d, s, _, err := resolveDelegation(flags)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSpace(sf.Spreadsheet)
	if id == "" {
		id, err = s.ActiveSpreadsheet(sf.Alternate)
		if err != nil {
			return nil, usage(err.Error())
		}
	} else if sf.Alternate {
		return nil, usage("--spreadsheet and --alternate are mutually exclusive")
	}

	svc, err := newSheetsService(ctx, d)
	if err != nil {
		return nil, err
	}
	return sheet.Open(svc, id)
}

func openMail(ctx context.Context, flags *rootFlags) (*mail.Client, error) {
	d, _, _, err := resolveDelegation(flags)
	if err != nil {
		return nil, err
	}
	svc, err := newGmailService(ctx, d)
	if err != nil {
		return nil, err
	}
	return mail.New(svc), nil
}
