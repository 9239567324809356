package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/geopost/geopost-cli/internal/secrets"
)

func TestMaskSecret(t *testing.T) {
	for in, want := range map[string]string{
		"":           "",
		"abc":        "***",
		"abcdefgh":   "****efgh",
		"0123456789": "******6789",
	} {
		if got := maskSecret(in); got != want {
			t.Errorf("maskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSecretsList(t *testing.T) {
	env := setupTestEnv(t, newRouteHandler())
	env.storeSecret(2, "secret-two")
	env.storeSecret(1, "secret-one")

	out, _, err := runCmd(t, "secrets", "list")
	if err != nil {
		t.Fatalf("secrets list: %v", err)
	}
	if strings.Contains(out, "secret-one") || !strings.Contains(out, "******-one") {
		t.Fatalf("secrets not masked:\n%s", out)
	}
	if strings.Index(out, "\n1 ") > strings.Index(out, "\n2 ") {
		t.Fatalf("entries not ordered by post:\n%s", out)
	}

	out, _, err = runCmd(t, "secrets", "list", "--reveal", "--json")
	if err != nil {
		t.Fatalf("secrets list --reveal: %v", err)
	}
	var entries []secrets.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(entries) != 2 || entries[0].PostID != 1 || entries[0].Secret != "secret-one" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestSecretsList_Empty(t *testing.T) {
	setupTestEnv(t, newRouteHandler())

	_, errOut, err := runCmd(t, "secrets", "list")
	if err != nil {
		t.Fatalf("secrets list: %v", err)
	}
	if !strings.Contains(errOut, "No stored secrets") {
		t.Fatalf("stderr = %q", errOut)
	}
}

func TestSecretsSetAndForget(t *testing.T) {
	env := setupTestEnv(t, newRouteHandler())
	store := env.secretStore()

	if _, _, err := runCmd(t, "secrets", "set", "8", "restored"); err != nil {
		t.Fatalf("secrets set: %v", err)
	}
	entry, err := store.Get(context.Background(), 8)
	if err != nil || entry.Secret != "restored" {
		t.Fatalf("entry = %+v, %v", entry, err)
	}

	out, errOut, err := runCmd(t, "secrets", "forget", "8", "9", "--yes")
	if err != nil {
		t.Fatalf("secrets forget: %v", err)
	}
	if !strings.Contains(out, "Forgot secret for post 8") || !strings.Contains(errOut, "No secret stored for post 9") {
		t.Fatalf("stdout = %q stderr = %q", out, errOut)
	}
	if _, err := store.Get(context.Background(), 8); !errors.Is(err, secrets.ErrNotFound) {
		t.Fatalf("secret 8 still stored: %v", err)
	}
}

func TestSecrets_UnsupportedStore(t *testing.T) {
	setupTestEnv(t, newRouteHandler())

	_, errOut, err := runCmd(t, "secrets", "list", "--secret-store", "memcached://x")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(errOut, "unsupported GEOPOST_SECRET_STORE") {
		t.Fatalf("stderr = %q", errOut)
	}
}
