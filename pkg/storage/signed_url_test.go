package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCertificateSignerGenerateAndParse(t *testing.T) {
	signer := NewCertificateSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("STU.1", "TC_STU.1_1700000000000.txt")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	studentID, fileName, parsedExpiry, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "STU.1", studentID)
	require.Equal(t, "TC_STU.1_1700000000000.txt", fileName)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestCertificateSignerExpired(t *testing.T) {
	signer := NewCertificateSigner("secret", time.Minute)
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return base }

	token, _, err := signer.Generate("1", "TC_1_1.txt")
	require.NoError(t, err)

	signer.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, _, _, err = signer.Parse(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestCertificateSignerRejectsTampering(t *testing.T) {
	signer := NewCertificateSigner("secret", time.Hour)
	token, _, err := signer.Generate("1", "TC_1_1.txt")
	require.NoError(t, err)

	other := NewCertificateSigner("other", time.Hour)
	_, _, _, err = other.Parse(token)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, _, _, err = signer.Parse("not-a-token")
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, _, err = NewCertificateSigner("", time.Hour).Generate("1", "x")
	require.Error(t, err)
}
