package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_IssueAndVerify(t *testing.T) {
	service := NewTokenService([]byte("test-signing-key"))

	token, err := service.Issue("serj", LoginTokenTTL)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	username, err := service.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "serj", username)
}

func TestTokenService_Expired(t *testing.T) {
	service := NewTokenService([]byte("test-signing-key"))

	issuedAt := time.Now()
	service.NowFunc = func() time.Time { return issuedAt }

	token, err := service.Issue("serj", LoginTokenTTL)
	require.NoError(t, err)

	// still valid just before the expiry
	service.NowFunc = func() time.Time { return issuedAt.Add(LoginTokenTTL - time.Minute) }
	username, err := service.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "serj", username)

	// and rejected right after it
	service.NowFunc = func() time.Time { return issuedAt.Add(LoginTokenTTL + time.Minute) }
	_, err = service.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RegistrationTokenOutlivesLoginToken(t *testing.T) {
	service := NewTokenService([]byte("test-signing-key"))

	issuedAt := time.Now()
	service.NowFunc = func() time.Time { return issuedAt }

	registrationToken, err := service.Issue("serj", RegistrationTokenTTL)
	require.NoError(t, err)
	loginToken, err := service.Issue("serj", LoginTokenTTL)
	require.NoError(t, err)

	service.NowFunc = func() time.Time { return issuedAt.Add(48 * time.Hour) }

	_, err = service.Verify(loginToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	username, err := service.Verify(registrationToken)
	require.NoError(t, err)
	assert.Equal(t, "serj", username)
}

func TestTokenService_TamperedToken(t *testing.T) {
	service := NewTokenService([]byte("test-signing-key"))

	token, err := service.Issue("serj", LoginTokenTTL)
	require.NoError(t, err)

	// flip a char in the signature part
	lastChar := token[len(token)-1]
	replacement := "A"
	if lastChar == 'A' {
		replacement = "B"
	}
	tampered := token[:len(token)-1] + replacement

	_, err = service.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_WrongKey(t *testing.T) {
	service := NewTokenService([]byte("test-signing-key"))
	otherService := NewTokenService([]byte("other-signing-key"))

	token, err := service.Issue("serj", LoginTokenTTL)
	require.NoError(t, err)

	_, err = otherService.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_Garbage(t *testing.T) {
	service := NewTokenService([]byte("test-signing-key"))

	for _, token := range []string{
		"",
		"garbage",
		"a.b.c",
		strings.Repeat("x", 500),
	} {
		_, err := service.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "token: %s", token)
	}
}
