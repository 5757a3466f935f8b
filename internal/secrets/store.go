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

	"github.com/steipete/gogsa/internal/config"
)

const (
	envKeyringPassword = "GOGSA_KEYRING_PASSWORD"
	defaultAccountKey  = "default_account"
)

var errNoKeyringPassword = errors.New("no TTY for keyring password prompt (set " + envKeyringPassword + ")")

// Store keeps service-account key documents, keyed by client email.
type Store interface {
	Keys() ([]string, error)
	SetCredential(email string, cred Credential) error
	GetCredential(email string) (Credential, error)
	DeleteCredential(email string) error
	ListCredentials() ([]Credential, error)
	SetDefaultAccount(email string) error
	GetDefaultAccount() (string, error)
}

type KeyringStore struct {
	ring keyring.Keyring
}

type Credential struct {
	Email      string    `json:"email"`
	ProjectID  string    `json:"project_id,omitempty"`
	ImportedAt time.Time `json:"imported_at,omitempty"`
	Document   []byte    `json:"-"`
}

func OpenDefault() (Store, error) {
	// On Linux/WSL/containers, OS keychains (secret-service/kwallet) may be unavailable.
	// In that case github.com/99designs/keyring falls back to the "file" backend,
	// which *requires* both a directory and a password prompt function.
	keyringDir, err := config.EnsureKeyringDir()
	if err != nil {
		return nil, err
	}

	backends, err := parseBackends(os.Getenv(config.EnvKeyringBackend))
	if err != nil {
		return nil, err
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:      config.AppName,
		AllowedBackends:  backends,
		FileDir:          keyringDir,
		FilePasswordFunc: fileKeyringPasswordFuncFrom(os.Getenv(envKeyringPassword), term.IsTerminal(int(os.Stdin.Fd()))),
	})
	if err != nil {
		return nil, err
	}
	return &KeyringStore{ring: ring}, nil
}

func parseBackends(raw string) ([]keyring.BackendType, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == "auto" {
		return nil, nil
	}
	var out []keyring.BackendType
	for _, part := range strings.Split(raw, ",") {
		switch b := keyring.BackendType(strings.TrimSpace(part)); b {
		case keyring.FileBackend, keyring.KeychainBackend, keyring.SecretServiceBackend,
			keyring.KWalletBackend, keyring.PassBackend, keyring.WinCredBackend, keyring.KeyCtlBackend:
			out = append(out, b)
		default:
			return nil, fmt.Errorf("unknown keyring backend %q", part)
		}
	}
	return out, nil
}

func fileKeyringPasswordFuncFrom(password string, isTTY bool) keyring.PromptFunc {
	if password != "" {
		return keyring.FixedStringPrompt(password)
	}
	if isTTY {
		return keyring.TerminalPrompt
	}
	return func(string) (string, error) {
		return "", errNoKeyringPassword
	}
}

func (s *KeyringStore) Keys() ([]string, error) {
	return s.ring.Keys()
}

type storedCredential struct {
	Document   json.RawMessage `json:"document"`
	ProjectID  string          `json:"project_id,omitempty"`
	ImportedAt time.Time       `json:"imported_at,omitempty"`
}

func (s *KeyringStore) SetCredential(email string, cred Credential) error {
	email = normalize(email)
	if email == "" {
		return fmt.Errorf("missing email")
	}
	if len(cred.Document) == 0 {
		return fmt.Errorf("missing credential document")
	}
	if !json.Valid(cred.Document) {
		return fmt.Errorf("credential document is not valid JSON")
	}
	if cred.ImportedAt.IsZero() {
		cred.ImportedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(storedCredential{
		Document:   json.RawMessage(cred.Document),
		ProjectID:  cred.ProjectID,
		ImportedAt: cred.ImportedAt,
	})
	if err != nil {
		return err
	}

	return s.ring.Set(keyring.Item{
		Key:   credentialKey(email),
		Data:  payload,
		Label: fmt.Sprintf("%s service account %s", config.AppName, email),
	})
}

func (s *KeyringStore) GetCredential(email string) (Credential, error) {
	email = normalize(email)
	if email == "" {
		return Credential{}, fmt.Errorf("missing email")
	}
	it, err := s.ring.Get(credentialKey(email))
	if err != nil {
		return Credential{}, err
	}
	var sc storedCredential
	if err := json.Unmarshal(it.Data, &sc); err != nil {
		return Credential{}, err
	}
	return Credential{
		Email:      email,
		ProjectID:  sc.ProjectID,
		ImportedAt: sc.ImportedAt,
		Document:   []byte(sc.Document),
	}, nil
}

func (s *KeyringStore) DeleteCredential(email string) error {
	email = normalize(email)
	if email == "" {
		return fmt.Errorf("missing email")
	}
	return s.ring.Remove(credentialKey(email))
}

func (s *KeyringStore) ListCredentials() ([]Credential, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}
	out := make([]Credential, 0)
	for _, k := range keys {
		email, ok := ParseCredentialKey(k)
		if !ok {
			continue
		}
		cred, err := s.GetCredential(email)
		if err != nil {
			return nil, err
		}
		out = append(out, cred)
	}
	return out, nil
}

func (s *KeyringStore) SetDefaultAccount(email string) error {
	email = normalize(email)
	if email == "" {
		return fmt.Errorf("missing email")
	}
	return s.ring.Set(keyring.Item{Key: defaultAccountKey, Data: []byte(email)})
}

func (s *KeyringStore) GetDefaultAccount() (string, error) {
	it, err := s.ring.Get(defaultAccountKey)
	if err != nil {
		return "", err
	}
	return normalize(string(it.Data)), nil
}

func ParseCredentialKey(k string) (email string, ok bool) {
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

func credentialKey(email string) string {
	return fmt.Sprintf("sa:%s", email)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
