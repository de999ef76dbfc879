package secrets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"golang.org/x/term"

	"github.com/casepro/gmailbot/internal/config"
)

const keyringPasswordEnv = "GMAILBOT_KEYRING_PASSWORD"

var (
	errInvalidKeyringBackend = errors.New("invalid keyring backend")
	errNoTTY                 = errors.New("keyring password required: set " + keyringPasswordEnv + " or run in a terminal")
)

type Store interface {
	Keys() ([]string, error)
	SetKey(email string, key ServiceAccountSecret) error
	GetKey(email string) (ServiceAccountSecret, error)
	DeleteKey(email string) error
	ListKeys() ([]ServiceAccountSecret, error)
}

type KeyringStore struct {
	ring keyring.Keyring
}

// ServiceAccountSecret is an imported service account key. KeyJSON is the
// downloaded key file verbatim.
type ServiceAccountSecret struct {
	Email      string    `json:"email"`
	ProjectID  string    `json:"project_id,omitempty"`
	ImportedAt time.Time `json:"imported_at,omitempty"`
	KeyJSON    []byte    `json:"-"`
}

type storedKey struct {
	KeyJSON    json.RawMessage `json:"key_json"`
	ProjectID  string          `json:"project_id,omitempty"`
	ImportedAt time.Time       `json:"imported_at,omitempty"`
}

func OpenDefault(backend string) (Store, error) {
	// On Linux/WSL/containers, OS keychains (secret-service/kwallet) may be unavailable.
	// In that case github.com/99designs/keyring falls back to the "file" backend,
	// which *requires* both a directory and a password prompt function.
	keyringDir, err := config.EnsureKeyringDir()
	if err != nil {
		return nil, err
	}
	backends, err := allowedBackends(backend)
	if err != nil {
		return nil, err
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:      config.AppName,
		AllowedBackends:  backends,
		FileDir:          keyringDir,
		FilePasswordFunc: fileKeyringPasswordFunc(),
	})
	if err != nil {
		return nil, err
	}
	return &KeyringStore{ring: ring}, nil
}

func allowedBackends(name string) ([]keyring.BackendType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return nil, nil
	case "keychain":
		return []keyring.BackendType{keyring.KeychainBackend}, nil
	case "secret-service":
		return []keyring.BackendType{keyring.SecretServiceBackend}, nil
	case "kwallet":
		return []keyring.BackendType{keyring.KWalletBackend}, nil
	case "wincred":
		return []keyring.BackendType{keyring.WinCredBackend}, nil
	case "pass":
		return []keyring.BackendType{keyring.PassBackend}, nil
	case "file":
		return []keyring.BackendType{keyring.FileBackend}, nil
	default:
		return nil, fmt.Errorf("%w %q (expected auto|keychain|secret-service|kwallet|wincred|pass|file)", errInvalidKeyringBackend, name)
	}
}

func fileKeyringPasswordFunc() keyring.PromptFunc {
	return fileKeyringPasswordFuncFrom(os.Getenv(keyringPasswordEnv), term.IsTerminal(int(os.Stdin.Fd())))
}

func fileKeyringPasswordFuncFrom(password string, isTTY bool) keyring.PromptFunc {
	if password != "" {
		return keyring.FixedStringPrompt(password)
	}
	if isTTY {
		return keyring.TerminalPrompt
	}
	return func(string) (string, error) {
		return "", errNoTTY
	}
}

func (s *KeyringStore) Keys() ([]string, error) {
	return s.ring.Keys()
}

func (s *KeyringStore) SetKey(email string, key ServiceAccountSecret) error {
	email = normalize(email)
	if email == "" {
		return fmt.Errorf("missing email")
	}
	if len(key.KeyJSON) == 0 {
		return fmt.Errorf("missing key material")
	}
	if !json.Valid(key.KeyJSON) {
		return fmt.Errorf("key material is not JSON")
	}
	if key.ImportedAt.IsZero() {
		key.ImportedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(storedKey{
		KeyJSON:    key.KeyJSON,
		ProjectID:  key.ProjectID,
		ImportedAt: key.ImportedAt,
	})
	if err != nil {
		return err
	}

	return s.ring.Set(keyring.Item{
		Key:   secretKey(email),
		Data:  payload,
		Label: config.AppName + " service account " + email,
	})
}

func (s *KeyringStore) GetKey(email string) (ServiceAccountSecret, error) {
	email = normalize(email)
	if email == "" {
		return ServiceAccountSecret{}, fmt.Errorf("missing email")
	}
	it, err := s.ring.Get(secretKey(email))
	if err != nil {
		return ServiceAccountSecret{}, err
	}
	var st storedKey
	if err := json.Unmarshal(it.Data, &st); err != nil {
		return ServiceAccountSecret{}, err
	}
	return ServiceAccountSecret{
		Email:      email,
		ProjectID:  st.ProjectID,
		ImportedAt: st.ImportedAt,
		KeyJSON:    []byte(st.KeyJSON),
	}, nil
}

func (s *KeyringStore) DeleteKey(email string) error {
	email = normalize(email)
	if email == "" {
		return fmt.Errorf("missing email")
	}
	return s.ring.Remove(secretKey(email))
}

func (s *KeyringStore) ListKeys() ([]ServiceAccountSecret, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}
	out := make([]ServiceAccountSecret, 0)
	for _, k := range keys {
		email, ok := ParseSecretKey(k)
		if !ok {
			continue
		}
		sec, err := s.GetKey(email)
		if err != nil {
			return nil, err
		}
		out = append(out, sec)
	}
	return out, nil
}

func ParseSecretKey(k string) (email string, ok bool) {
	const prefix = "sa:"
	if !strings.HasPrefix(k, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(k, prefix)
	if strings.TrimSpace(rest) == "" {
		return "", false
	}
	return rest, true
}

func secretKey(email string) string {
	return fmt.Sprintf("sa:%s", email)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
