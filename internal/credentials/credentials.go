package credentials

import (
	"context"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Keys of the persisted entries.
const (
	KeyAPIURL = "apiUrl"
	KeyAPIKey = "apiKey"
)

// Credentials authenticate calls to the messaging API. APIURL is optional;
// when empty the configured default base URL is used.
type Credentials struct {
	APIURL string
	APIKey string
}

// HasKey reports whether an API key is present.
func (c Credentials) HasKey() bool {
	return c.APIKey != ""
}

// String never includes the API key.
func (c Credentials) String() string {
	key := "<unset>"
	if c.HasKey() {
		key = "<redacted>"
	}
	return fmt.Sprintf("{apiUrl:%q apiKey:%s}", c.APIURL, key)
}

func (c Credentials) GoString() string {
	return c.String()
}

// Backend persists key/value entries under a scope.
type Backend interface {
	Load(ctx context.Context, scope string) (map[string]string, error)
	Save(ctx context.Context, scope string, values map[string]string) error
}

// Store reads and writes Credentials through a Backend.
type Store struct {
	backend Backend
	scope   string
	logger  log.Logger
}

func NewStore(backend Backend, scope string, logger log.Logger) *Store {
	return &Store{backend: backend, scope: scope, logger: logger}
}

// Get returns the stored credentials. Missing entries, and backend failures,
// yield empty fields.
func (s *Store) Get(ctx context.Context) Credentials {
	values, err := s.backend.Load(ctx, s.scope)
	if err != nil {
		level.Error(s.logger).Log("msg", "failed to load credentials", "scope", s.scope, "err", err)
		return Credentials{}
	}
	return Credentials{
		APIURL: values[KeyAPIURL],
		APIKey: values[KeyAPIKey],
	}
}

// Set overwrites both stored entries.
func (s *Store) Set(ctx context.Context, c Credentials) error {
	err := s.backend.Save(ctx, s.scope, map[string]string{
		KeyAPIURL: c.APIURL,
		KeyAPIKey: c.APIKey,
	})
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	level.Info(s.logger).Log("msg", "credentials updated", "scope", s.scope, "credentials", c)
	return nil
}
