package keys

import (
	"testing"
	"time"

	"github.com/ansybl/ansybl-go/sign"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(NewMemStore())
}

func TestCreateKeyPair(t *testing.T) {
	m := newTestManager(t)
	rec, err := m.CreateKeyPair("site", map[string]string{"owner": "alice"})
	if err != nil {
		t.Fatalf("CreateKeyPair: %v", err)
	}
	if rec.Status != StatusActive || rec.Version != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Metadata["owner"] != "alice" {
		t.Fatalf("metadata lost: %+v", rec.Metadata)
	}
	if _, err := m.CreateKeyPair("site", nil); err == nil {
		t.Fatal("duplicate keyID must fail")
	}
}

func TestLookup_AbsentIsNilNotError(t *testing.T) {
	m := newTestManager(t)
	priv, err := m.GetPrivateKey("nope")
	if err != nil || priv != "" {
		t.Fatalf("absent key: got (%q, %v), want empty and nil", priv, err)
	}
	pub, err := m.GetPublicKey("nope")
	if err != nil || pub != "" {
		t.Fatalf("absent key: got (%q, %v), want empty and nil", pub, err)
	}
}

func TestLookup_StampsLastUsed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(NewMemStore(), WithClock(func() time.Time { return now }))
	if _, err := m.CreateKeyPair("site", nil); err != nil {
		t.Fatalf("CreateKeyPair: %v", err)
	}
	if _, err := m.GetPublicKey("site"); err != nil {
		t.Fatalf("GetPublicKey: %v", err)
	}
	rec, err := m.GetKeyRecord("site")
	if err != nil {
		t.Fatalf("GetKeyRecord: %v", err)
	}
	if rec.LastUsedAt == nil || !rec.LastUsedAt.Equal(now) {
		t.Fatalf("last-used not stamped: %+v", rec.LastUsedAt)
	}
}

func TestRotateKey(t *testing.T) {
	m := newTestManager(t)
	first, err := m.CreateKeyPair("site", nil)
	if err != nil {
		t.Fatalf("CreateKeyPair: %v", err)
	}
	second, err := m.RotateKey("site", map[string]string{"reason": "scheduled"})
	if err != nil {
		t.Fatalf("RotateKey: %v", err)
	}
	if second.KeyID != "site_v2" || second.Version != 2 {
		t.Fatalf("unexpected successor: %+v", second)
	}
	if second.PreviousKeyID != "site" {
		t.Fatalf("missing backlink: %+v", second)
	}

	family, err := m.ListKeyFamily("site")
	if err != nil {
		t.Fatalf("ListKeyFamily: %v", err)
	}
	if len(family) != 2 {
		t.Fatalf("expected 2 family members, got %d", len(family))
	}
	activeCount := 0
	for _, rec := range family {
		if rec.Status == StatusActive {
			activeCount++
		}
	}
	if activeCount != 1 {
		t.Fatalf("expected exactly one active record, got %d", activeCount)
	}

	old, err := m.GetKeyRecord("site")
	if err != nil {
		t.Fatalf("GetKeyRecord: %v", err)
	}
	if old.Status != StatusDeprecated || old.DeprecatedAt == nil {
		t.Fatalf("superseded record not deprecated: %+v", old)
	}
	if old.PublicKey != first.PublicKey {
		t.Fatal("rotation must not replace the deprecated key material")
	}
}

func TestRotateKey_HistoricalSignaturesStillVerify(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.CreateKeyPair("site", nil); err != nil {
		t.Fatalf("CreateKeyPair: %v", err)
	}
	priv, err := m.GetPrivateKey("site")
	if err != nil {
		t.Fatalf("GetPrivateKey: %v", err)
	}
	content := map[string]any{"id": "old-item"}
	sig, err := sign.Sign(content, priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if _, err := m.RotateKey("site", nil); err != nil {
		t.Fatalf("RotateKey: %v", err)
	}
	oldPub, err := m.GetPublicKey("site")
	if err != nil {
		t.Fatalf("GetPublicKey: %v", err)
	}
	if !sign.Verify(content, sig, oldPub) {
		t.Fatal("historical signature must verify against the deprecated key")
	}
	newPub, err := m.GetPublicKey("site_v2")
	if err != nil {
		t.Fatalf("GetPublicKey: %v", err)
	}
	if sign.Verify(content, sig, newPub) {
		t.Fatal("historical signature must not verify against the successor key")
	}
}

func TestRotateKey_ChainsAcrossGenerations(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.CreateKeyPair("site", nil); err != nil {
		t.Fatalf("CreateKeyPair: %v", err)
	}
	if _, err := m.RotateKey("site", nil); err != nil {
		t.Fatalf("RotateKey v2: %v", err)
	}
	third, err := m.RotateKey("site", nil)
	if err != nil {
		t.Fatalf("RotateKey v3: %v", err)
	}
	if third.KeyID != "site_v3" || third.Version != 3 || third.PreviousKeyID != "site_v2" {
		t.Fatalf("unexpected third generation: %+v", third)
	}
}

func TestRotateKey_MissingFamily(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.RotateKey("ghost", nil); err == nil {
		t.Fatal("rotation of an absent family must fail")
	}
}

func TestValidateKey_DetectsCorruption(t *testing.T) {
	store := NewMemStore()
	m := NewManager(store)
	if _, err := m.CreateKeyPair("site", nil); err != nil {
		t.Fatalf("CreateKeyPair: %v", err)
	}
	if err := m.ValidateKey("site"); err != nil {
		t.Fatalf("ValidateKey on healthy record: %v", err)
	}

	// Corrupt the stored public key out-of-band.
	rec, err := store.Load("site")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	other, err := sign.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	rec.PublicKey = other.PublicKey
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := m.ValidateKey("site"); err == nil {
		t.Fatal("expected corruption to be detected")
	}
}

func TestDeleteKeyPair(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.CreateKeyPair("site", nil); err != nil {
		t.Fatalf("CreateKeyPair: %v", err)
	}
	if err := m.DeleteKeyPair("site"); err != nil {
		t.Fatalf("DeleteKeyPair: %v", err)
	}
	if pub, err := m.GetPublicKey("site"); err != nil || pub != "" {
		t.Fatalf("deleted key still resolvable: (%q, %v)", pub, err)
	}
	if err := m.DeleteKeyPair("site"); err == nil {
		t.Fatal("double delete must fail")
	}
}

func TestBaseKeyID(t *testing.T) {
	cases := map[string]string{
		"site":     "site",
		"site_v2":  "site",
		"site_v10": "site",
		"site_v1":  "site_v1", // v1 is never a rotation suffix
		"site_vx":  "site_vx",
		"a_v2_v3":  "a_v2",
	}
	for in, want := range cases {
		if got := BaseKeyID(in); got != want {
			t.Errorf("BaseKeyID(%q) = %q, want %q", in, got, want)
		}
	}
}
