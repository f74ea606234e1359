package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("exp-1", "plans/p1/roadmap.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	exportID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "exp-1", exportID)
	require.Equal(t, "plans/p1/roadmap.csv", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	now := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	signer.now = func() time.Time { return now }
	token, _, err := signer.Generate("exp-1", "plans/p1/roadmap.csv")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, _, _, err = signer.Parse(token, false)
	require.True(t, errors.Is(err, ErrTokenExpired))

	exportID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "exp-1", exportID)
	require.Equal(t, "plans/p1/roadmap.csv", path)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("exp-1", "plans/p1/roadmap.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "exp-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	require.Error(t, err)

	_, _, _, err = NewSignedURLSigner("other", time.Hour).Parse(token, false)
	require.Error(t, err)

	_, _, _, err = signer.Parse("garbage", false)
	require.Error(t, err)
}

func TestSignedURLSignerValidatesInput(t *testing.T) {
	_, _, err := NewSignedURLSigner("", time.Hour).Generate("exp-1", "a.csv")
	require.Error(t, err)
	_, _, err = NewSignedURLSigner("secret", time.Hour).Generate("exp.1", "a.csv")
	require.Error(t, err)
	require.Equal(t, 24*time.Hour, NewSignedURLSigner("secret", 0).TTL())
}
