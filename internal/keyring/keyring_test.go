package keyring

import (
	"errors"
	"strings"
	"testing"

	"github.com/99designs/keyring"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStoreWith(keyring.NewArrayKeyring(nil))

	if store.HasPassword("pi") {
		t.Fatal("expected no password before set")
	}

	got, err := store.GetPassword("pi")
	if err != nil {
		t.Fatalf("expected missing password to be empty, got error %v", err)
	}
	if got != "" {
		t.Errorf("expected empty password, got %q", got)
	}

	if err := store.SetPassword("pi", "s3cret"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	if !store.HasPassword("pi") {
		t.Error("expected password to be stored")
	}

	got, err = store.GetPassword("pi")
	if err != nil {
		t.Fatalf("GetPassword failed: %v", err)
	}
	if got != "s3cret" {
		t.Errorf("expected %q, got %q", "s3cret", got)
	}

	if err := store.DeletePassword("pi"); err != nil {
		t.Fatalf("DeletePassword failed: %v", err)
	}
	if store.HasPassword("pi") {
		t.Error("expected password to be removed")
	}
}

func TestDeleteMissingPassword(t *testing.T) {
	store := NewStoreWith(keyring.NewArrayKeyring(nil))

	err := store.DeletePassword("nobody")
	if err == nil {
		t.Fatal("expected error deleting a missing password")
	}
	if !strings.Contains(err.Error(), "no password stored for 'nobody'") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStoreOpenFailure(t *testing.T) {
	boom := errors.New("no secret service")
	store := &Store{open: func() (keyring.Keyring, error) { return nil, boom }}

	if _, err := store.GetPassword("pi"); !errors.Is(err, boom) {
		t.Errorf("expected open error to be wrapped, got %v", err)
	}
	if err := store.SetPassword("pi", "x"); !errors.Is(err, boom) {
		t.Errorf("expected open error to be wrapped, got %v", err)
	}
	if store.HasPassword("pi") {
		t.Error("expected HasPassword to be false when the keyring cannot be opened")
	}
}
