// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package token resolves and stores the Quandela Cloud platform token.
//
// The preferred storage is sealed: the token encrypted to an age
// identity generated at login, both files living under the config
// directory with 0600 permissions. A plaintext token file (config
// cloud.token_file) is supported for CI environments where a sealed
// store cannot be provisioned, and the PCVL_INTEROP_TOKEN environment
// variable works as a last resort for one-off invocations.
package token

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Quandela/Perceval-Interop/lib/sealed"
)

// EnvToken is the environment variable consulted when no stored token
// exists.
const EnvToken = "PCVL_INTEROP_TOKEN"

// ErrNotFound means no token is stored anywhere the store looks.
var ErrNotFound = errors.New("no platform token found (run 'perceval-interop auth login')")

// Token sources, as reported by Resolve.
const (
	SourceSealed      = "sealed"
	SourceFile        = "token_file"
	SourceEnvironment = "environment"
)

// Store locates the token across its three sources.
type Store struct {
	// SealedPath is the age-encrypted token file.
	SealedPath string

	// IdentityPath is the age identity that decrypts SealedPath.
	IdentityPath string

	// PlainPath is the optional plaintext token file from the
	// configuration. Empty disables the plaintext source.
	PlainPath string
}

// Resolve returns the platform token and the source it came from.
// Sealed storage wins over the plaintext file, which wins over the
// environment. A sealed store that exists but cannot be decrypted is
// an error, not a fall-through: silently ignoring it would mask a
// corrupt or half-written login.
func (s *Store) Resolve() (token, source string, err error) {
	if s.HasSealed() {
		plaintext, err := s.readSealed()
		if err != nil {
			return "", "", err
		}
		return plaintext, SourceSealed, nil
	}

	if s.PlainPath != "" {
		data, err := os.ReadFile(s.PlainPath)
		if err == nil {
			value := strings.TrimSpace(string(data))
			if value != "" {
				return value, SourceFile, nil
			}
		} else if !os.IsNotExist(err) {
			return "", "", fmt.Errorf("token: reading %s: %w", s.PlainPath, err)
		}
	}

	if value := strings.TrimSpace(os.Getenv(EnvToken)); value != "" {
		return value, SourceEnvironment, nil
	}

	return "", "", ErrNotFound
}

// HasSealed reports whether both sealed files exist.
func (s *Store) HasSealed() bool {
	if _, err := os.Stat(s.SealedPath); err != nil {
		return false
	}
	if _, err := os.Stat(s.IdentityPath); err != nil {
		return false
	}
	return true
}

func (s *Store) readSealed() (string, error) {
	identity, err := os.ReadFile(s.IdentityPath)
	if err != nil {
		return "", fmt.Errorf("token: reading identity: %w", err)
	}
	ciphertext, err := os.ReadFile(s.SealedPath)
	if err != nil {
		return "", fmt.Errorf("token: reading sealed token: %w", err)
	}
	plaintext, err := sealed.Decrypt(
		strings.TrimSpace(string(ciphertext)),
		strings.TrimSpace(string(identity)),
	)
	if err != nil {
		return "", fmt.Errorf("token: unsealing: %w", err)
	}
	return string(plaintext), nil
}

// Save seals the token to a freshly generated identity and writes
// both files with 0600 permissions. An existing sealed token is
// replaced along with its identity.
func (s *Store) Save(tokenValue string) error {
	if strings.TrimSpace(tokenValue) == "" {
		return fmt.Errorf("token: refusing to store an empty token")
	}

	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}
	ciphertext, err := sealed.Encrypt([]byte(tokenValue), []string{keypair.PublicKey})
	if err != nil {
		return fmt.Errorf("token: %w", err)
	}

	if err := os.WriteFile(s.IdentityPath, []byte(keypair.PrivateKey+"\n"), 0o600); err != nil {
		return fmt.Errorf("token: writing identity: %w", err)
	}
	if err := os.WriteFile(s.SealedPath, []byte(ciphertext+"\n"), 0o600); err != nil {
		return fmt.Errorf("token: writing sealed token: %w", err)
	}
	return nil
}

// Clear removes the sealed token and its identity. Missing files are
// not an error: logout is idempotent.
func (s *Store) Clear() error {
	var errs []error
	for _, path := range []string{s.SealedPath, s.IdentityPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("token: removing %s: %w", path, err))
		}
	}
	return errors.Join(errs...)
}

// Mask hides the middle of a token for display: the first and last
// four characters survive. Short tokens are fully masked.
func Mask(tokenValue string) string {
	if len(tokenValue) <= 12 {
		return strings.Repeat("*", len(tokenValue))
	}
	return tokenValue[:4] + strings.Repeat("*", len(tokenValue)-8) + tokenValue[len(tokenValue)-4:]
}
