package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

const AppName = "gmailbot"

const (
	DefaultCredentialsFile        = "gmail-bot-448408-6b6ec76b9622.json"
	DefaultSubject                = "praveen@casepro.club"
	DefaultSpreadsheetID          = "1lrpRn1gxp_oZqy1NMEwC0G8Y84wS6ZtQldQDoENOflI"
	DefaultAlternateSpreadsheetID = "185KK9sBs0oPDp7NrMIXIpY_kR1CHvzdxVPmu8TJRB_8"
)

// File is the on-disk config. Empty fields fall through to env and defaults.
type File struct {
	CredentialsFile        string `json:"credentials_file,omitempty"`
	Subject                string `json:"subject,omitempty"`
	SpreadsheetID          string `json:"spreadsheet_id,omitempty"`
	AlternateSpreadsheetID string `json:"alternate_spreadsheet_id,omitempty"`
	ServiceAccount         string `json:"service_account,omitempty"`
	KeyringBackend         string `json:"keyring_backend,omitempty"`
}

type CredentialsMissingError struct {
	Path  string
	Cause error
}

func (e *CredentialsMissingError) Error() string {
	return fmt.Sprintf("service account key missing (%s)", e.Path)
}

func (e *CredentialsMissingError) Unwrap() error {
	return e.Cause
}

func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppName), nil
}

func EnsureDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("ensure config dir: %w", err)
	}
	return dir, nil
}

// EnsureKeyringDir is where the file keyring backend keeps its encrypted items.
func EnsureKeyringDir() (string, error) {
	dir, err := EnsureDir()
	if err != nil {
		return "", err
	}
	keyringDir := filepath.Join(dir, "keyring")
	if err := os.MkdirAll(keyringDir, 0o700); err != nil {
		return "", fmt.Errorf("ensure keyring dir: %w", err)
	}
	return keyringDir, nil
}

func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func ReadConfig() (File, error) {
	path, err := ConfigPath()
	if err != nil {
		return File{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("read config: %w", err)
	}

	var cfg File
	if err := json5.Unmarshal(data, &cfg); err != nil {
		return File{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func WriteConfig(cfg File) error {
	if _, err := EnsureDir(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit config: %w", err)
	}
	return nil
}

type key struct {
	get func(*File) *string
}

var keys = map[string]key{
	"credentials_file":         {get: func(f *File) *string { return &f.CredentialsFile }},
	"subject":                  {get: func(f *File) *string { return &f.Subject }},
	"spreadsheet_id":           {get: func(f *File) *string { return &f.SpreadsheetID }},
	"alternate_spreadsheet_id": {get: func(f *File) *string { return &f.AlternateSpreadsheetID }},
	"service_account":          {get: func(f *File) *string { return &f.ServiceAccount }},
	"keyring_backend":          {get: func(f *File) *string { return &f.KeyringBackend }},
}

func Keys() []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func Get(cfg File, name string) (string, error) {
	k, ok := keys[strings.TrimSpace(name)]
	if !ok {
		return "", fmt.Errorf("unknown config key %q (expected %s)", name, strings.Join(Keys(), "|"))
	}
	return *k.get(&cfg), nil
}

// Set returns a copy of cfg with name set to value. An empty value unsets it.
func Set(cfg File, name, value string) (File, error) {
	k, ok := keys[strings.TrimSpace(name)]
	if !ok {
		return cfg, fmt.Errorf("unknown config key %q (expected %s)", name, strings.Join(Keys(), "|"))
	}
	*k.get(&cfg) = strings.TrimSpace(value)
	return cfg, nil
}
