package auth

import (
	"os"
	"time"
)

// APIKeyEnv holds an API key supplied through the environment
const APIKeyEnv = "WALLHEAVEN_SYNC_API_KEY"

// EnvironmentStore is a read-only store over WALLHEAVEN_SYNC_API_KEY.
// The key applies to whichever username asks for it.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Retrieve(username string) (*Credential, error) {
	key := os.Getenv(APIKeyEnv)
	if key == "" {
		return nil, ErrCredentialsNotFound
	}
	if username == "" {
		username = "default"
	}
	return &Credential{Username: username, APIKey: key, LastModified: time.Now()}, nil
}

func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve("")
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(username string) bool {
	return os.Getenv(APIKeyEnv) != ""
}
