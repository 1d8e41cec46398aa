package backend

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"hash"
	"strings"
)

// Password scheme prefixes as used by common LDAP implementations.
const (
	SchemeSSHA256   = "{SSHA256}"
	SchemeSHA256    = "{SHA256}"
	SchemeSSHA512   = "{SSHA512}"
	SchemeSHA512    = "{SHA512}"
	SchemeCleartext = "{CLEARTEXT}"
)

// Password verification errors.
var (
	ErrInvalidPasswordFormat = errors.New("backend: invalid password format")
	ErrUnsupportedScheme     = errors.New("backend: unsupported password scheme")
	ErrPasswordMismatch      = errors.New("backend: password mismatch")
)

const saltLength = 16

// VerifyPassword checks plaintext against a stored userPassword value of the
// form {SCHEME}base64. A value without a scheme prefix is compared as
// cleartext.
func VerifyPassword(plaintext, stored string) error {
	if stored == "" {
		return ErrInvalidPasswordFormat
	}

	end := strings.Index(stored, "}")
	if end == -1 || !strings.HasPrefix(stored, "{") {
		return compareCleartext(plaintext, stored)
	}

	scheme := strings.ToUpper(stored[:end+1])
	encoded := stored[end+1:]

	switch scheme {
	case SchemeCleartext:
		return compareCleartext(plaintext, encoded)
	case SchemeSHA256:
		return verifyDigest(sha256.New, sha256.Size, false, plaintext, encoded)
	case SchemeSSHA256:
		return verifyDigest(sha256.New, sha256.Size, true, plaintext, encoded)
	case SchemeSHA512:
		return verifyDigest(sha512.New, sha512.Size, false, plaintext, encoded)
	case SchemeSSHA512:
		return verifyDigest(sha512.New, sha512.Size, true, plaintext, encoded)
	default:
		return ErrUnsupportedScheme
	}
}

// HashPassword encodes plaintext with the given scheme. Salted schemes use
// a random salt.
func HashPassword(plaintext, scheme string) (string, error) {
	scheme = strings.ToUpper(scheme)

	switch scheme {
	case SchemeCleartext:
		return SchemeCleartext + plaintext, nil
	case SchemeSHA256:
		return scheme + digest(sha256.New, plaintext, nil), nil
	case SchemeSHA512:
		return scheme + digest(sha512.New, plaintext, nil), nil
	case SchemeSSHA256, SchemeSSHA512:
		salt := make([]byte, saltLength)
		if _, err := rand.Read(salt); err != nil {
			return "", err
		}
		if scheme == SchemeSSHA256 {
			return scheme + digest(sha256.New, plaintext, salt), nil
		}
		return scheme + digest(sha512.New, plaintext, salt), nil
	default:
		return "", ErrUnsupportedScheme
	}
}

func compareCleartext(plaintext, stored string) error {
	if subtle.ConstantTimeCompare([]byte(plaintext), []byte(stored)) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}

// digest returns base64(H(plaintext || salt) || salt).
func digest(newHash func() hash.Hash, plaintext string, salt []byte) string {
	h := newHash()
	h.Write([]byte(plaintext))
	h.Write(salt)
	sum := h.Sum(nil)
	return base64.StdEncoding.EncodeToString(append(sum, salt...))
}

func verifyDigest(newHash func() hash.Hash, size int, salted bool, plaintext, encoded string) error {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ErrInvalidPasswordFormat
	}
	if (salted && len(data) <= size) || (!salted && len(data) != size) {
		return ErrInvalidPasswordFormat
	}

	h := newHash()
	h.Write([]byte(plaintext))
	h.Write(data[size:])
	if subtle.ConstantTimeCompare(h.Sum(nil), data[:size]) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}
