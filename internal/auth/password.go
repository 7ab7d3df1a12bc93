package auth

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	accessKeyLength = 20
	secretKeyLength = 40

	// Access key IDs use the base32 alphabet so they are safe to embed in
	// policy ARNs; secrets draw from the wider base64 alphabet.
	accessKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"
	secretKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
)

// HashPassword returns the bcrypt hash of a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the plaintext password matches the stored
// bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateKeyPair returns a new storage access-key pair for a user. The
// access key is the principal named in the user's bucket policies.
func GenerateKeyPair() (accessKey, secretKey string, err error) {
	accessKey, err = randomString(accessKeyLength, accessKeyAlphabet)
	if err != nil {
		return "", "", fmt.Errorf("generate access key: %w", err)
	}

	secretKey, err = randomString(secretKeyLength, secretKeyAlphabet)
	if err != nil {
		return "", "", fmt.Errorf("generate secret key: %w", err)
	}

	return accessKey, secretKey, nil
}

func randomString(length int, alphabet string) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}
