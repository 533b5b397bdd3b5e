package keys

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ansybl/ansybl-go/sign"
)

// Manager wraps a KeyStorage with the key lifecycle: creation, lookup,
// rotation, and explicit deletion.
//
// Mutations of one family are serialized by a mutex; the legacy unguarded
// read-modify-write during rotation is not replicated. Rotation and deletion
// are irreversible and never retried.
type Manager struct {
	storage KeyStorage
	log     *zap.Logger
	now     func() time.Time

	mu sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger attaches a structured logger for key mutations. The default is a
// nop logger; the host application owns logging policy.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(storage KeyStorage, opts ...Option) *Manager {
	m := &Manager{
		storage: storage,
		log:     zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateKeyPair generates and persists a new active ed25519 record. It fails
// if keyID already exists.
func (m *Manager) CreateKeyPair(keyID string, metadata map[string]string) (*KeyRecord, error) {
	if err := CheckKeyID(keyID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.storage.Load(keyID); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, keyID)
	} else if !IsNotFound(err) {
		return nil, err
	}
	rec, err := m.newRecord(keyID, 1, "", metadata)
	if err != nil {
		return nil, err
	}
	if err := m.storage.Save(rec); err != nil {
		return nil, err
	}
	m.log.Info("key created",
		zap.String("key_id", rec.KeyID),
		zap.String("fingerprint", rec.Fingerprint))
	return rec.Clone(), nil
}

func (m *Manager) newRecord(keyID string, version int, previous string, metadata map[string]string) (*KeyRecord, error) {
	kp, err := sign.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	fp, err := sign.Fingerprint(kp.PublicKey)
	if err != nil {
		return nil, err
	}
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	return &KeyRecord{
		KeyID:         keyID,
		PrivateKey:    kp.PrivateKey,
		PublicKey:     kp.PublicKey,
		Fingerprint:   fp,
		Status:        StatusActive,
		Version:       version,
		PreviousKeyID: previous,
		CreatedAt:     m.now(),
		Metadata:      md,
	}, nil
}

// GetPrivateKey returns the stored private key, or "" (with nil error) if the
// record is absent. The record's last-used timestamp is stamped as a side
// effect.
func (m *Manager) GetPrivateKey(keyID string) (string, error) {
	rec, err := m.touch(keyID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", nil
	}
	return rec.PrivateKey, nil
}

// GetPublicKey returns the stored public key, or "" (with nil error) if the
// record is absent.
func (m *Manager) GetPublicKey(keyID string) (string, error) {
	rec, err := m.touch(keyID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", nil
	}
	return rec.PublicKey, nil
}

// GetKeyRecord returns a copy of the stored record without stamping usage.
func (m *Manager) GetKeyRecord(keyID string) (*KeyRecord, error) {
	rec, err := m.storage.Load(keyID)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (m *Manager) touch(keyID string) (*KeyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, err := m.storage.Load(keyID)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	ts := m.now()
	rec.LastUsedAt = &ts
	// Usage stamping is best effort; a failed write must not block lookups.
	if err := m.storage.Save(rec); err != nil {
		m.log.Warn("last-used stamp failed", zap.String("key_id", keyID), zap.Error(err))
	}
	return rec, nil
}

// familyMembers resolves the key family for baseKeyID: baseKeyID, then
// baseKeyID_v2, baseKeyID_v3, ... up to the first gap.
func (m *Manager) familyMembers(baseKeyID string) ([]*KeyRecord, error) {
	var out []*KeyRecord
	for n := 1; ; n++ {
		id := FamilyMemberID(baseKeyID, n)
		rec, err := m.storage.Load(id)
		if err != nil {
			if IsNotFound(err) {
				break
			}
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// FamilyMemberID returns the keyID of the nth family member (1-based):
// base for n=1, base_v2 for n=2, and so on.
func FamilyMemberID(baseKeyID string, n int) string {
	if n <= 1 {
		return baseKeyID
	}
	return baseKeyID + "_v" + strconv.Itoa(n)
}

// BaseKeyID strips the _vN rotation suffix, if any.
func BaseKeyID(keyID string) string {
	i := strings.LastIndex(keyID, "_v")
	if i < 0 {
		return keyID
	}
	if n, err := strconv.Atoi(keyID[i+2:]); err == nil && n >= 2 {
		return keyID[:i]
	}
	return keyID
}

// RotateKey deprecates the family's active record and creates a new active
// record with the next version and a backlink to the superseded one.
// Deprecated records are never deleted by rotation, so historical signatures
// remain verifiable.
func (m *Manager) RotateKey(baseKeyID string, metadata map[string]string) (*KeyRecord, error) {
	if err := CheckKeyID(baseKeyID); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	family, err := m.familyMembers(baseKeyID)
	if err != nil {
		return nil, err
	}
	if len(family) == 0 {
		return nil, fmt.Errorf("%w: key family %s", ErrNotFound, baseKeyID)
	}
	var active *KeyRecord
	for _, rec := range family {
		if rec.Status == StatusActive {
			active = rec
			break
		}
	}
	if active == nil {
		return nil, fmt.Errorf("keys: no active record in family %s", baseKeyID)
	}

	ts := m.now()
	active.Status = StatusDeprecated
	active.DeprecatedAt = &ts
	if err := m.storage.Save(active); err != nil {
		return nil, err
	}

	next, err := m.newRecord(FamilyMemberID(baseKeyID, len(family)+1), active.Version+1, active.KeyID, metadata)
	if err != nil {
		return nil, err
	}
	if err := m.storage.Save(next); err != nil {
		return nil, err
	}
	m.log.Info("key rotated",
		zap.String("family", baseKeyID),
		zap.String("deprecated", active.KeyID),
		zap.String("active", next.KeyID),
		zap.Int("version", next.Version))
	return next.Clone(), nil
}

// ListKeyFamily returns the family's records in version order.
func (m *Manager) ListKeyFamily(baseKeyID string) ([]*KeyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.familyMembers(baseKeyID)
}

// ValidateKey checks stored key formats and that the public key is
// cryptographically derivable from the stored private key, detecting storage
// corruption.
func (m *Manager) ValidateKey(keyID string) error {
	rec, err := m.storage.Load(keyID)
	if err != nil {
		return err
	}
	if err := sign.ValidateKeyFormat(rec.PrivateKey, sign.RolePrivate); err != nil {
		return fmt.Errorf("keys: %s private key: %w", keyID, err)
	}
	if err := sign.ValidateKeyFormat(rec.PublicKey, sign.RolePublic); err != nil {
		return fmt.Errorf("keys: %s public key: %w", keyID, err)
	}
	derived, err := sign.PublicKeyFromPrivate(rec.PrivateKey)
	if err != nil {
		return fmt.Errorf("keys: %s derivation: %w", keyID, err)
	}
	if derived != rec.PublicKey {
		return fmt.Errorf("keys: %s public key does not match its private key (storage corruption)", keyID)
	}
	return nil
}

// DeleteKeyPair removes a record permanently. Explicit and irreversible;
// never called implicitly by any other operation.
func (m *Manager) DeleteKeyPair(keyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.storage.Delete(keyID); err != nil {
		return err
	}
	m.log.Warn("key deleted", zap.String("key_id", keyID))
	return nil
}
