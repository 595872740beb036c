package hasher

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// Hash возвращает SHA-256 хэш входной строки в виде hex.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func Verify(pass, hash string) bool {
	return Hash(pass) == hash
}

// SumBytes — та же функция, но на вход принимает []byte.
func SumBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// HMACSHA256 returns the base64-encoded HMAC-SHA256 of body under key,
// the form the presence webhook signature uses.
func HMACSHA256(key, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifyHMACSHA256 constant-time compares sig against the HMAC-SHA256
// of body under key.
func VerifyHMACSHA256(key, body []byte, sig string) bool {
	expected := HMACSHA256(key, body)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) == 1
}
