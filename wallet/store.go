package wallet

import (
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// providerFile is the single durable key: the id of the last connected
// provider, read by AutoConnect and cleared by Disconnect.
const providerFile = "last_provider"

// Store persists the last connected provider id.
type Store interface {
	// Get returns the persisted id, "" when none is recorded.
	Get() (string, error)
	Put(id string) error
	Clear() error
}

var _ Store = (*FileStore)(nil)

// FileStore keeps the provider id in a file under a repo directory.
type FileStore struct {
	path string
}

func NewFileStore(dir string) (*FileStore, error) {
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "expand store dir %s", dir)
	}
	if err := os.MkdirAll(expanded, 0755); err != nil {
		return nil, errors.Wrapf(err, "create store dir %s", expanded)
	}
	return &FileStore{path: filepath.Join(expanded, providerFile)}, nil
}

func (s *FileStore) Get() (string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "read provider store")
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileStore) Put(id string) error {
	return errors.Wrap(os.WriteFile(s.path, []byte(id+"\n"), 0644), "write provider store")
}

func (s *FileStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "clear provider store")
	}
	return nil
}
