package googleauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ServiceAccountKey is the subset of a downloaded service account key file
// that the CLI inspects. The raw bytes are what get handed to oauth2.
type ServiceAccountKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`
}

var (
	errNotServiceAccount = errors.New("key is not a service account key")
	errMissingClient     = errors.New("key has no client_email")
	errMissingPrivateKey = errors.New("key has no private_key")
)

func ReadKeyFile(path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("empty key path: %w", os.ErrNotExist)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func ParseKey(data []byte) (ServiceAccountKey, error) {
	var k ServiceAccountKey
	if err := json.Unmarshal(data, &k); err != nil {
		return ServiceAccountKey{}, fmt.Errorf("decode service account key: %w", err)
	}
	if k.Type != "service_account" {
		return ServiceAccountKey{}, fmt.Errorf("%w (type %q)", errNotServiceAccount, k.Type)
	}
	if strings.TrimSpace(k.ClientEmail) == "" {
		return ServiceAccountKey{}, errMissingClient
	}
	if strings.TrimSpace(k.PrivateKey) == "" {
		return ServiceAccountKey{}, errMissingPrivateKey
	}
	return k, nil
}
