// Package password checks passwords against stored hashes. It understands
// the werkzeug formats "pbkdf2:<digest>[:<iterations>]$salt$hex" and
// "scrypt:<n>:<r>:<p>$salt$hex", and bcrypt "$2a$"/"$2b$"/"$2y$" hashes.
package password

import (
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // legacy werkzeug hashes
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

const (
	// DefaultIterations is used by Generate.
	DefaultIterations = 600_000
	// legacyIterations applies to "pbkdf2:<digest>" hashes without a count.
	legacyIterations = 260_000
	saltLength       = 16
	scryptKeyLength  = 64
	saltChars        = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Check reports whether password matches stored. It fails only when stored
// cannot be interpreted.
func Check(stored, password string) (bool, error) {
	if strings.HasPrefix(stored, "$2") {
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, fmt.Errorf("%w: %w", ErrMalformedHash, err)
		}
	}

	method, salt, want, err := split(stored)
	if err != nil {
		return false, err
	}
	got, err := derive(method, salt, password)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1, nil
}

// Generate returns a werkzeug pbkdf2:sha256 hash of password.
func Generate(password string) (string, error) {
	return GenerateWith(password, "pbkdf2:sha256:"+strconv.Itoa(DefaultIterations))
}

// GenerateWith hashes password with an explicit werkzeug method, e.g.
// "scrypt:32768:8:1" or "pbkdf2:sha512:1000".
func GenerateWith(password, method string) (string, error) {
	salt, err := randomSalt(saltLength)
	if err != nil {
		return "", err
	}
	sum, err := derive(method, salt, password)
	if err != nil {
		return "", err
	}
	return method + "$" + salt + "$" + sum, nil
}

func split(stored string) (method, salt, sum string, err error) {
	parts := strings.Split(stored, "$")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("%w: expected method$salt$hash", ErrMalformedHash)
	}
	return parts[0], parts[1], parts[2], nil
}

func derive(method, salt, password string) (string, error) {
	fields := strings.Split(method, ":")
	switch fields[0] {
	case "pbkdf2":
		return derivePBKDF2(fields[1:], salt, password)
	case "scrypt":
		return deriveScrypt(fields[1:], salt, password)
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedHash, fields[0])
}

func derivePBKDF2(args []string, salt, password string) (string, error) {
	if len(args) == 0 || len(args) > 2 {
		return "", fmt.Errorf("%w: pbkdf2 parameters", ErrMalformedHash)
	}
	newHash, size, err := digest(args[0])
	if err != nil {
		return "", err
	}
	iterations := legacyIterations
	if len(args) == 2 {
		if iterations, err = positive(args[1]); err != nil {
			return "", err
		}
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, size, newHash)
	return hex.EncodeToString(key), nil
}

func deriveScrypt(args []string, salt, password string) (string, error) {
	n, r, p := 1<<15, 8, 1
	if len(args) != 0 && len(args) != 3 {
		return "", fmt.Errorf("%w: scrypt parameters", ErrMalformedHash)
	}
	if len(args) == 3 {
		var err error
		if n, err = positive(args[0]); err != nil {
			return "", err
		}
		if r, err = positive(args[1]); err != nil {
			return "", err
		}
		if p, err = positive(args[2]); err != nil {
			return "", err
		}
	}
	key, err := scrypt.Key([]byte(password), []byte(salt), n, r, p, scryptKeyLength)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedHash, err)
	}
	return hex.EncodeToString(key), nil
}

func digest(name string) (func() hash.Hash, int, error) {
	switch name {
	case "sha256":
		return sha256.New, sha256.Size, nil
	case "sha512":
		return sha512.New, sha512.Size, nil
	case "sha1":
		return sha1.New, sha1.Size, nil
	}
	return nil, 0, fmt.Errorf("%w: digest %q", ErrUnsupportedHash, name)
}

func positive(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: parameter %q", ErrMalformedHash, s)
	}
	return v, nil
}

func randomSalt(n int) (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(saltChars)))
	for range n {
		i, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate salt: %w", err)
		}
		b.WriteByte(saltChars[i.Int64()])
	}
	return b.String(), nil
}
