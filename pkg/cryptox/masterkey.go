package cryptox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MasterKeyEnv is consulted when no key file is configured.
const MasterKeyEnv = "HEALTHIFY_MASTER_KEY"

const masterKeySize = 32

// LoadMasterKey returns the master secret used to derive storage keys.
//
// Lookup order:
//  1. the file at path, when path is set and the file exists
//  2. the HEALTHIFY_MASTER_KEY environment variable
//  3. a fresh random key, written to path (0600) when path is set
//
// Without a path or env var the generated key is ephemeral and encrypted data
// does not survive a restart.
func LoadMasterKey(path string) (key []byte, generated bool, err error) {
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			data = []byte(strings.TrimSpace(string(data)))
			if len(data) == 0 {
				return nil, false, fmt.Errorf("master key file %s is empty", path)
			}
			return data, false, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, false, fmt.Errorf("failed to read master key file: %w", err)
		}
	}

	if env := os.Getenv(MasterKeyEnv); env != "" {
		return []byte(env), false, nil
	}

	tok, err := GenerateToken(masterKeySize)
	if err != nil {
		return nil, false, err
	}

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, false, fmt.Errorf("failed to create master key dir: %w", err)
		}
		if err := os.WriteFile(path, []byte(tok), 0o600); err != nil {
			return nil, false, fmt.Errorf("failed to persist master key: %w", err)
		}
	}

	return []byte(tok), true, nil
}
