// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Argon2Params are the argon2id cost parameters.
type Argon2Params struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8  // parallelism
	SaltLen uint32 // salt length in bytes
	KeyLen  uint32 // output length in bytes
}

// DefaultArgon2Params are the OWASP-recommended argon2id parameters.
var DefaultArgon2Params = Argon2Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
	SaltLen: 16,
	KeyLen:  32,
}

// Ceilings on argon2id cost. They bound the work a stored hash can demand
// from Verify as well as what the hasher may be configured with.
const (
	MaxArgon2Memory uint32 = 1 << 20 // KiB, 1 GiB
	MaxArgon2Time   uint32 = 10
)

// Validate reports whether the parameters can produce a hash.
func (p Argon2Params) Validate() error {
	switch {
	case p.Time == 0:
		return oops.Code(CodeInvalidSettings).Errorf("argon2 time must be positive")
	case p.Time > MaxArgon2Time:
		return oops.Code(CodeInvalidSettings).
			With("time", p.Time).
			Errorf("argon2 time must be at most %d", MaxArgon2Time)
	case p.Memory > MaxArgon2Memory:
		return oops.Code(CodeInvalidSettings).
			With("memory", p.Memory).
			Errorf("argon2 memory must be at most %d KiB", MaxArgon2Memory)
	case p.Threads == 0:
		return oops.Code(CodeInvalidSettings).Errorf("argon2 threads must be positive")
	case p.Memory < 8*uint32(p.Threads):
		return oops.Code(CodeInvalidSettings).
			With("memory", p.Memory).
			Errorf("argon2 memory must be at least 8 KiB per thread")
	case p.SaltLen < 8:
		return oops.Code(CodeInvalidSettings).Errorf("argon2 salt must be at least 8 bytes")
	case p.KeyLen < 16:
		return oops.Code(CodeInvalidSettings).Errorf("argon2 key must be at least 16 bytes")
	}
	return nil
}

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted one-way hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch or an empty hash,
	// or an error wrapping ErrHashFormat when the hash cannot be interpreted.
	Verify(password, hash string) (bool, error)

	// NeedsUpgrade returns true if the hash should be recomputed with the
	// hasher's current scheme and parameters.
	NeedsUpgrade(hash string) bool
}

// Argon2idHasher implements PasswordHasher using argon2id. Legacy bcrypt
// hashes are accepted by Verify and reported by NeedsUpgrade.
type Argon2idHasher struct {
	params Argon2Params
}

// NewArgon2idHasher creates an Argon2idHasher with DefaultArgon2Params.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{params: DefaultArgon2Params}
}

// NewArgon2idHasherWithParams creates an Argon2idHasher with custom cost
// parameters.
func NewArgon2idHasherWithParams(params Argon2Params) (*Argon2idHasher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Argon2idHasher{params: params}, nil
}

// Params returns the hasher's cost parameters.
func (h *Argon2idHasher) Params() Argon2Params {
	return h.params
}

// Hash produces an argon2id hash of the password in PHC string format:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func (h *Argon2idHasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks if the password matches the hash.
func (h *Argon2idHasher) Verify(password, encodedHash string) (bool, error) {
	switch {
	case encodedHash == "":
		return false, nil
	case strings.HasPrefix(encodedHash, "$argon2id$"):
		return verifyArgon2id(password, encodedHash)
	case isBcryptHash(encodedHash):
		return verifyBcrypt(password, encodedHash)
	default:
		return false, hashFormatError("unsupported hash scheme")
	}
}

// NeedsUpgrade returns true if the hash is not argon2id, or is argon2id with
// parameters other than the hasher's.
func (h *Argon2idHasher) NeedsUpgrade(encodedHash string) bool {
	params, _, _, err := decodeArgon2id(encodedHash)
	if err != nil {
		return true
	}
	return params.Time != h.params.Time ||
		params.Memory != h.params.Memory ||
		params.Threads != h.params.Threads
}

func verifyArgon2id(password, encodedHash string) (bool, error) {
	params, salt, expected, err := decodeArgon2id(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, params.KeyLen)

	return subtle.ConstantTimeCompare(computed, expected) == 1, nil
}

// decodeArgon2id parses a PHC-formatted argon2id hash.
func decodeArgon2id(encodedHash string) (Argon2Params, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return Argon2Params{}, nil, nil, hashFormatError("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return Argon2Params{}, nil, nil, hashFormatError("unsupported hash algorithm: " + parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Argon2Params{}, nil, nil, hashFormatError("invalid version segment")
	}
	if version != argon2.Version {
		return Argon2Params{}, nil, nil, hashFormatError(fmt.Sprintf("unsupported argon2 version: %d", version))
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return Argon2Params{}, nil, nil, hashFormatError("invalid parameter segment")
	}
	if threads == 0 || threads > 255 {
		return Argon2Params{}, nil, nil, hashFormatError(fmt.Sprintf("threads value %d out of range", threads))
	}
	if time == 0 || time > MaxArgon2Time || memory < 8*threads || memory > MaxArgon2Memory {
		return Argon2Params{}, nil, nil, hashFormatError("cost parameters out of range")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Argon2Params{}, nil, nil, hashFormatError("invalid salt encoding")
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Argon2Params{}, nil, nil, hashFormatError("invalid hash encoding")
	}
	if len(key) == 0 || len(key) > 1<<10 {
		return Argon2Params{}, nil, nil, hashFormatError(fmt.Sprintf("invalid hash key length: %d", len(key)))
	}

	params := Argon2Params{
		Time:    time,
		Memory:  memory,
		Threads: uint8(threads),
		SaltLen: uint32(len(salt)),
		KeyLen:  uint32(len(key)),
	}
	return params, salt, key, nil
}

func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}

func verifyBcrypt(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword),
		errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, oops.Code(CodeHashFormat).
			With("scheme", "bcrypt").
			Wrap(errors.Join(ErrHashFormat, err))
	}
}

func hashFormatError(reason string) error {
	return newKindError(ErrHashFormat, "reason", reason)
}
