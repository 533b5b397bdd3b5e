package keys

import "errors"

var (
	ErrNotFound = errors.New("keys: record not found")
	ErrExists   = errors.New("keys: record already exists")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// KeyStorage persists key records, one record per keyID.
//
// Contract:
// - Save with a new keyID MUST create; Save with an existing keyID MUST update.
// - Load MUST return ErrNotFound when the keyID is absent.
// - Implementations MUST NOT hand out records that alias internal state.
type KeyStorage interface {
	Save(rec *KeyRecord) error
	Load(keyID string) (*KeyRecord, error)
	Delete(keyID string) error
	List() ([]string, error)
}
