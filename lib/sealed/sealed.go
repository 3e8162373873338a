// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package sealed provides age encryption for the platform token at
// rest. It wraps filippo.io/age for the three operations the auth
// commands need: generate an x25519 keypair, encrypt plaintext to
// recipients, decrypt with an identity.
//
// Ciphertext is base64-encoded for storage in small text files under
// the config directory. The base64 encoding is handled internally —
// callers pass plaintext bytes in and get base64 strings out, and vice
// versa for decryption.
package sealed

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"

	"filippo.io/age"
)

// Keypair holds an age x25519 keypair. The private key must never be
// logged or passed on a command line; auth login writes it to a 0600
// file and nothing else reads it back except Decrypt.
type Keypair struct {
	// PrivateKey is the identity in AGE-SECRET-KEY-1... format.
	PrivateKey string

	// PublicKey is the corresponding recipient in age1... format.
	// Safe to display.
	PublicKey string
}

// GenerateKeypair generates a new age x25519 keypair.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("sealed: generating age keypair: %w", err)
	}
	return &Keypair{
		PrivateKey: identity.String(),
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// Encrypt encrypts plaintext to one or more recipients given by their
// age public key strings (age1... format). Returns standard base64
// ciphertext. At least one recipient is required.
func Encrypt(plaintext []byte, recipientKeys []string) (string, error) {
	if len(recipientKeys) == 0 {
		return "", fmt.Errorf("sealed: at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return "", fmt.Errorf("sealed: parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return "", fmt.Errorf("sealed: creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return "", fmt.Errorf("sealed: writing plaintext: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("sealed: finalizing encryption: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext.Bytes()), nil
}

// Decrypt decrypts base64 ciphertext using the given private key
// (AGE-SECRET-KEY-1... format) and returns the plaintext.
func Decrypt(ciphertext string, privateKey string) ([]byte, error) {
	identity, err := age.ParseX25519Identity(privateKey)
	if err != nil {
		return nil, fmt.Errorf("sealed: parsing private key: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("sealed: decoding base64 ciphertext: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(raw), identity)
	if err != nil {
		return nil, fmt.Errorf("sealed: decrypting: %w", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("sealed: reading decrypted plaintext: %w", err)
	}
	return plaintext, nil
}
