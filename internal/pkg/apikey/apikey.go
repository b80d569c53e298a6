// Package apikey issues and checks tenant API keys of the form
// "<key id>.<secret>". Only a bcrypt hash of the secret is stored.
package apikey

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var ErrMalformed = errors.New("malformed api key")

type Issued struct {
	ID     string
	Secret string
	Hash   string
}

// Plain is the value handed to the client once.
func (i Issued) Plain() string {
	return i.ID + "." + i.Secret
}

func Generate() (Issued, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return Issued{}, err
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return Issued{}, err
	}
	return Issued{ID: uuid.NewString(), Secret: secret, Hash: string(hash)}, nil
}

// Split separates the key id from the secret.
func Split(raw string) (id, secret string, err error) {
	id, secret, ok := strings.Cut(strings.TrimSpace(raw), ".")
	if !ok || id == "" || secret == "" {
		return "", "", ErrMalformed
	}
	return id, secret, nil
}

func Matches(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
