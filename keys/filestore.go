package keys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// FileStore keeps one JSON record per keyID under a directory.
//
// Writes go through a temp-file-plus-rename so a record file is always either
// the old version or the new one, never a torn write.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed. Key material is written with
// 0600 permissions.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("keys: store directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// CheckKeyID restricts identifiers to characters safe as file names.
func CheckKeyID(keyID string) error {
	if keyID == "" {
		return errors.New("keys: keyID cannot be empty")
	}
	for _, char := range keyID {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' || char == '.' {
			continue
		}
		return fmt.Errorf("keys: invalid character %q in keyID", char)
	}
	return nil
}

func (s *FileStore) pathFor(keyID string) string {
	return filepath.Join(s.dir, keyID+".json")
}

func (s *FileStore) Save(rec *KeyRecord) error {
	if rec == nil {
		return errors.New("keys: nil record")
	}
	if err := CheckKeyID(rec.KeyID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	path := s.pathFor(rec.KeyID)
	tmp, err := os.CreateTemp(s.dir, "."+rec.KeyID+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *FileStore) Load(keyID string) (*KeyRecord, error) {
	if err := CheckKeyID(keyID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.pathFor(keyID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var rec KeyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("keys: corrupt record %s: %w", keyID, err)
	}
	return &rec, nil
}

func (s *FileStore) Delete(keyID string) error {
	if err := CheckKeyID(keyID); err != nil {
		return err
	}
	err := os.Remove(s.pathFor(keyID))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

func (s *FileStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
