package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// CertificateSigner issues and checks verification tokens printed on issued certificates.
type CertificateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCertificateSigner constructs a signer with the provided secret and TTL.
func NewCertificateSigner(secret string, ttl time.Duration) *CertificateSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CertificateSigner{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Generate returns a token binding the student id to the stored certificate file.
func (s *CertificateSigner) Generate(studentID, fileName string) (string, time.Time, error) {
	if studentID == "" || fileName == "" {
		return "", time.Time{}, fmt.Errorf("studentID and fileName required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl)
	encID := base64.RawURLEncoding.EncodeToString([]byte(studentID))
	encFile := base64.RawURLEncoding.EncodeToString([]byte(fileName))
	ts := strconv.FormatInt(expiresAt.Unix(), 10)
	token := strings.Join([]string{encID, ts, encFile, s.sign(encID, ts, encFile)}, ".")
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded student id and file name.
func (s *CertificateSigner) Parse(token string) (studentID, fileName string, expiresAt time.Time, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	encID, ts, encFile, signature := parts[0], parts[1], parts[2], parts[3]

	if !hmac.Equal([]byte(s.sign(encID, ts, encFile)), []byte(signature)) {
		return "", "", time.Time{}, ErrTokenInvalid
	}

	rawID, err := base64.RawURLEncoding.DecodeString(encID)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	rawFile, err := base64.RawURLEncoding.DecodeString(encFile)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	expUnix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", "", time.Time{}, ErrTokenInvalid
	}
	expiresAt = time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return "", "", expiresAt, ErrTokenExpired
	}
	return string(rawID), string(rawFile), expiresAt, nil
}

func (s *CertificateSigner) sign(encID, ts, encFile string) string {
	mac := hmac.New(sha256.New, s.secret)
	_, _ = mac.Write([]byte(encID + "|" + ts + "|" + encFile))
	return hex.EncodeToString(mac.Sum(nil))
}
