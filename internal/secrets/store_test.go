package secrets

import (
	"errors"
	"testing"
	"time"

	"github.com/99designs/keyring"
)

func TestCredentialKey(t *testing.T) {
	if got := credentialKey("a@b.com"); got != "sa:a@b.com" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestParseCredentialKey(t *testing.T) {
	email, ok := ParseCredentialKey("sa:a@b.com")
	if !ok {
		t.Fatalf("expected ok")
	}

	if email != "a@b.com" {
		t.Fatalf("unexpected: %q", email)
	}

	if _, ok := ParseCredentialKey("nope"); ok {
		t.Fatalf("expected not ok")
	}
	if _, ok := ParseCredentialKey(defaultAccountKey); ok {
		t.Fatalf("default account key is not a credential")
	}
}

func TestKeyringStore_CredentialRoundtrip(t *testing.T) {
	s := &KeyringStore{ring: keyring.NewArrayKeyring(nil)}

	importedAt := time.Date(2025, 12, 12, 0, 0, 0, 0, time.UTC)
	doc := []byte(`{"client_email":"Bot@P1.iam.gserviceaccount.com","private_key":"k","token_uri":"https://t"}`)
	if err := s.SetCredential("Bot@P1.iam.gserviceaccount.com", Credential{
		ProjectID:  "p1",
		ImportedAt: importedAt,
		Document:   doc,
	}); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}

	got, err := s.GetCredential("bot@p1.iam.gserviceaccount.com")
	if err != nil {
		t.Fatalf("GetCredential: %v", err)
	}

	if got.Email != "bot@p1.iam.gserviceaccount.com" || got.ProjectID != "p1" {
		t.Fatalf("unexpected: %#v", got)
	}
	if string(got.Document) != string(doc) {
		t.Fatalf("document mismatch: %s", got.Document)
	}
	if !got.ImportedAt.Equal(importedAt) {
		t.Fatalf("importedAt: %v", got.ImportedAt)
	}

	if err := s.SetDefaultAccount("bot@p1.iam.gserviceaccount.com"); err != nil {
		t.Fatalf("SetDefaultAccount: %v", err)
	}

	list, err := s.ListCredentials()
	if err != nil {
		t.Fatalf("ListCredentials: %v", err)
	}
	if len(list) != 1 || list[0].Email != "bot@p1.iam.gserviceaccount.com" {
		t.Fatalf("unexpected list: %#v", list)
	}

	if def, err := s.GetDefaultAccount(); err != nil || def != "bot@p1.iam.gserviceaccount.com" {
		t.Fatalf("default: %q %v", def, err)
	}

	if err := s.DeleteCredential("bot@p1.iam.gserviceaccount.com"); err != nil {
		t.Fatalf("DeleteCredential: %v", err)
	}

	if _, err := s.GetCredential("bot@p1.iam.gserviceaccount.com"); !errors.Is(err, keyring.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after delete, got %v", err)
	}
}
