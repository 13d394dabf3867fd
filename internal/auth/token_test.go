package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier("test-secret")
	require.NoError(t, err)
	v.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return v
}

func TestIssueAndVerify(t *testing.T) {
	v := newTestVerifier(t)

	token, err := v.Issue("user-1", time.Hour)
	require.NoError(t, err)

	p, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	v := newTestVerifier(t)
	token, err := v.Issue("user-1", time.Hour)
	require.NoError(t, err)

	other, err := NewVerifier("another-secret")
	require.NoError(t, err)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	parts := strings.Split(token, ".")
	_, err = v.Verify(parts[0] + "." + parts[1] + ".AAAA")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	v := newTestVerifier(t)
	token, err := v.Issue("user-1", time.Minute)
	require.NoError(t, err)

	v.now = func() time.Time { return time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC) }
	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyMalformed(t *testing.T) {
	v := newTestVerifier(t)

	_, err := v.Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = v.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	_, err := NewVerifier("")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	token, err = BearerToken("bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	_, err = BearerToken("Basic dXNlcg==")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = BearerToken("Bearer ")
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{UserID: "u"})
	p, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u", p.UserID)

	ctx = WithPrincipal(context.Background(), Principal{})
	_, ok = FromContext(ctx)
	assert.False(t, ok)
}
