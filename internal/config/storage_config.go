package config

import (
	"os"
	"path/filepath"
)

const (
	sessionStoreVar      = "SESSION_STORE"
	sessionPathVar       = "SESSION_PATH"
	sessionPassphraseVar = "SESSION_PASSPHRASE"
)

// Session store kinds.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

type StorageConfig interface {
	GetSessionStore() string
	GetSessionPath() string
	GetSessionPassphrase() string
}

type Storage struct {
	file *fileValues
}

var _ StorageConfig = Storage{}

func (s Storage) GetSessionStore() string {
	return GetEnv(sessionStoreVar, orDefault(s.file.Session.Store, StoreFile))
}

// GetSessionPath defaults to a file under the user's config directory, named for the store
// kind.
func (s Storage) GetSessionPath() string {
	if path := GetEnv(sessionPathVar, s.file.Session.Path); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	name := "session.json"
	if s.GetSessionStore() == StoreSQLite {
		name = "session.db"
	}
	return filepath.Join(dir, "prayer-journal", name)
}

func (s Storage) GetSessionPassphrase() string {
	return GetEnv(sessionPassphraseVar, s.file.Session.Passphrase)
}
