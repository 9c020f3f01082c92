package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvPrefix is prepended to the upper-cased secret name.
const EnvPrefix = "KBAUTH_SECRET_"

// EnvStore resolves a secret from KBAUTH_SECRET_<NAME>, or from the file
// named by KBAUTH_SECRET_<NAME>_FILE (docker and kubernetes secret mounts).
// The inline variable wins when both are set.
type EnvStore struct {
	LookupEnv func(string) (string, bool)
	ReadFile  func(string) ([]byte, error)
}

// NewEnvStore reads the process environment and filesystem.
func NewEnvStore() *EnvStore {
	return &EnvStore{LookupEnv: os.LookupEnv, ReadFile: os.ReadFile}
}

// EnvName maps a secret name such as "signing-key" to KBAUTH_SECRET_SIGNING_KEY.
func EnvName(name string) string {
	return EnvPrefix + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}

func (s *EnvStore) Get(_ context.Context, name string) ([]byte, error) {
	key := EnvName(name)
	if v, ok := s.LookupEnv(key); ok && v != "" {
		return []byte(v), nil
	}
	if path, ok := s.LookupEnv(key + "_FILE"); ok && path != "" {
		b, err := s.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("secrets: read %s: %w", key+"_FILE", err)
		}
		return trimNewline(b), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// trimNewline drops the trailing newline editors and echo leave behind.
// PEM blocks survive because their final newline is optional.
func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
