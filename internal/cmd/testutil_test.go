package cmd

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/99designs/keyring"

	"github.com/steipete/gogsa/internal/secrets"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	return captureFile(t, &os.Stdout, fn)
}

func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	return captureFile(t, &os.Stderr, fn)
}

func captureFile(t *testing.T, target **os.File, fn func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	orig := *target
	*target = w

	done := make(chan string)
	go func() {
		b, _ := io.ReadAll(r)
		done <- string(b)
	}()

	defer func() {
		*target = orig
	}()
	fn()
	_ = w.Close()
	out := <-done
	_ = r.Close()
	return out
}

var (
	testKeyOnce sync.Once
	testKeyPEM  string
)

func testPrivateKeyPEM(t *testing.T) string {
	t.Helper()
	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKeyPEM = string(pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(key),
		}))
	})
	return testKeyPEM
}

func serviceAccountJSON(t *testing.T, email, tokenURI string) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]string{
		"type":         "service_account",
		"project_id":   "proj",
		"client_email": email,
		"private_key":  testPrivateKeyPEM(t),
		"token_uri":    tokenURI,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func writeServiceAccount(t *testing.T, email, tokenURI string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, serviceAccountJSON(t, email, tokenURI), 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}
	return path
}

type memSecretsStore struct {
	creds map[string]secrets.Credential
	def   string
}

func newMemSecretsStore() *memSecretsStore {
	return &memSecretsStore{creds: map[string]secrets.Credential{}}
}

func (s *memSecretsStore) Keys() ([]string, error) {
	keys := make([]string, 0, len(s.creds)+1)
	for email := range s.creds {
		keys = append(keys, "sa:"+email)
	}
	if s.def != "" {
		keys = append(keys, "default_account")
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *memSecretsStore) SetCredential(email string, cred secrets.Credential) error {
	email = strings.ToLower(strings.TrimSpace(email))
	cred.Email = email
	s.creds[email] = cred
	return nil
}

func (s *memSecretsStore) GetCredential(email string) (secrets.Credential, error) {
	cred, ok := s.creds[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return secrets.Credential{}, keyring.ErrKeyNotFound
	}
	return cred, nil
}

func (s *memSecretsStore) DeleteCredential(email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := s.creds[email]; !ok {
		return keyring.ErrKeyNotFound
	}
	delete(s.creds, email)
	return nil
}

func (s *memSecretsStore) ListCredentials() ([]secrets.Credential, error) {
	out := make([]secrets.Credential, 0, len(s.creds))
	for _, c := range s.creds {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *memSecretsStore) SetDefaultAccount(email string) error {
	s.def = strings.ToLower(strings.TrimSpace(email))
	return nil
}

func (s *memSecretsStore) GetDefaultAccount() (string, error) {
	if s.def == "" {
		return "", keyring.ErrKeyNotFound
	}
	return s.def, nil
}
