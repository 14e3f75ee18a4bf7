package auth

import (
	"strings"
	"testing"
)

// testHasherConfig はテストを高速化するための最小コストのパラメータ。
func testHasherConfig() HasherConfig {
	return HasherConfig{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
}

func newTestHasher(t *testing.T) *Argon2Hasher {
	t.Helper()
	h, err := NewArgon2Hasher(testHasherConfig())
	if err != nil {
		t.Fatalf("NewArgon2Hasher() error = %v", err)
	}
	return h
}

func TestArgon2Hasher_HashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	encoded, err := h.Hash("panDulce2024")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Errorf("unexpected PHC string: %q", encoded)
	}

	ok, err := h.Verify("panDulce2024", encoded)
	if err != nil || !ok {
		t.Errorf("Verify(correct) = %v, %v", ok, err)
	}
	ok, err = h.Verify("panDulce2025", encoded)
	if err != nil || ok {
		t.Errorf("Verify(wrong) = %v, %v", ok, err)
	}
}

func TestArgon2Hasher_SaltDiffers(t *testing.T) {
	h := newTestHasher(t)
	a, _ := h.Hash("same-password1")
	b, _ := h.Hash("same-password1")
	if a == b {
		t.Error("hashes of the same password should differ by salt")
	}
}

// TestArgon2Hasher_VerifyOldParams はパラメータ変更前のハッシュも検証できることを検証する。
func TestArgon2Hasher_VerifyOldParams(t *testing.T) {
	old := newTestHasher(t)
	encoded, _ := old.Hash("legacy-pass1")

	cfg := testHasherConfig()
	cfg.Time = 2
	cfg.KeyLength = 32
	current, err := NewArgon2Hasher(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := current.Verify("legacy-pass1", encoded); err != nil || !ok {
		t.Errorf("Verify(old hash) = %v, %v", ok, err)
	}
}

func TestArgon2Hasher_InvalidHash(t *testing.T) {
	h := newTestHasher(t)
	for _, encoded := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
	} {
		if _, err := h.Verify("x", encoded); err == nil {
			t.Errorf("expected error for %q", encoded)
		}
	}
}

func TestNewArgon2Hasher_RejectsWeakConfig(t *testing.T) {
	cfg := testHasherConfig()
	cfg.Memory = 1024
	if _, err := NewArgon2Hasher(cfg); err == nil {
		t.Error("expected error for low memory")
	}
	cfg = testHasherConfig()
	cfg.SaltLength = 8
	if _, err := NewArgon2Hasher(cfg); err == nil {
		t.Error("expected error for short salt")
	}
}
