package password

import (
	"strings"
	"testing"
)

// Small costs keep the tests fast; production defaults are much higher.
func testConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
}

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()

	h, err := NewHasher(testConfig())
	if err != nil {
		t.Fatalf("new hasher failed: %v", err)
	}
	return h
}

func TestHashVerifyRoundTrip(t *testing.T) {
	h := newTestHasher(t)

	encoded, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("unexpected PHC shape: %s", encoded)
	}

	ok, err := h.Verify("correct horse battery staple", encoded)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !ok {
		t.Fatal("expected match for correct password")
	}
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	h := newTestHasher(t)

	encoded, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	ok, err := h.Verify("wrong horse battery staple", encoded)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if ok {
		t.Fatal("expected mismatch for wrong password")
	}
}

func TestHashSaltsAreFresh(t *testing.T) {
	h := newTestHasher(t)

	first, err := h.Hash("same password twice")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	second, err := h.Hash("same password twice")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct hashes from fresh salts")
	}
}

func TestVerifyRejectsMalformedHashes(t *testing.T) {
	h := newTestHasher(t)

	malformed := []string{
		"",
		"plainhash",
		"$bcrypt$v=19$m=8192,t=1,p=1$AAAA$AAAA",
		"$argon2id$v=18$m=8192,t=1,p=1$AAAA$AAAA",
		"$argon2id$v=19$m=8192,t=1$AAAA$AAAA",
		"$argon2id$v=19$m=8192,t=1,p=1$not base64$AAAA",
	}
	for _, encoded := range malformed {
		if _, err := h.Verify("password", encoded); err == nil {
			t.Errorf("expected parse error for %q", encoded)
		}
	}
}

func TestNewHasherRejectsWeakParameters(t *testing.T) {
	weak := testConfig()
	weak.Memory = 1024

	if _, err := NewHasher(weak); err == nil {
		t.Fatal("expected rejection of sub-minimum memory")
	}
}
