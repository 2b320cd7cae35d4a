package envelope

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credvault/credvault/pkg/model"
)

func newTestEnvelope(t *testing.T, secret string) *Envelope {
	t.Helper()
	env, err := NewEnvelope(DeriveKey(secret))
	require.NoError(t, err)
	return env
}

func TestDeriveKey(t *testing.T) {
	a := DeriveKey("django-insecure-secret")
	b := DeriveKey("django-insecure-secret")
	c := DeriveKey("another-secret")

	assert.Len(t, a, 32)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestSealOpenRoundTrip(t *testing.T) {
	env := newTestEnvelope(t, "master")

	for _, plain := range []string{
		"",
		"ValidPass123!",
		"pässwörd with ünïcode ✓",
		strings.Repeat("a", MaxPasswordLength),
	} {
		sealed, err := env.Seal(plain)
		require.NoError(t, err)
		assert.NotContains(t, string(sealed), plain+"\x00")

		opened, err := env.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, plain, opened)
	}
}

func TestSealIsTextSafeAndNonDeterministic(t *testing.T) {
	env := newTestEnvelope(t, "master")

	s1, err := env.Seal("same message")
	require.NoError(t, err)
	s2, err := env.Seal("same message")
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)
	for _, r := range string(s1) {
		assert.True(t, r < 128, "sealed value must be ASCII")
	}
}

func TestOpenFailures(t *testing.T) {
	env := newTestEnvelope(t, "master")
	other := newTestEnvelope(t, "other-master")

	sealed, err := env.Seal("secret")
	require.NoError(t, err)

	tampered := []byte(sealed)
	tampered[len(tampered)-3] ^= 0x01

	tests := []struct {
		name  string
		env   *Envelope
		input model.SecretEnvelope
	}{
		{name: "wrong key", env: other, input: sealed},
		{name: "not base64", env: env, input: "!!!not-base64!!!"},
		{name: "too short", env: env, input: "R0FB"},
		{name: "tampered", env: env, input: model.SecretEnvelope(tampered)},
		{name: "empty", env: env, input: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.env.Open(tt.input)
			assert.ErrorIs(t, err, ErrDecrypt)
		})
	}
}

func TestEncodedLenFitsPasswordColumn(t *testing.T) {
	env := newTestEnvelope(t, "master")

	sealed, err := env.Seal(strings.Repeat("z", MaxPasswordLength))
	require.NoError(t, err)

	assert.Equal(t, EncodedLen(MaxPasswordLength), len(sealed))
	assert.LessOrEqual(t, EncodedLen(MaxPasswordLength), model.SecretEnvelopeMaxLength)
}

func TestEncodedLenCountsBytes(t *testing.T) {
	env := newTestEnvelope(t, "master")

	wide := strings.Repeat("€", 252) + "Aa1!"
	sealed, err := env.Seal(wide)
	require.NoError(t, err)

	assert.Equal(t, EncodedLen(len(wide)), len(sealed))
	assert.Greater(t, len(sealed), model.SecretEnvelopeMaxLength)
	assert.Greater(t, len(wide), MaxPasswordLength)
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	require.NoError(t, err)
	b, err := GenerateSecret()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 44)
}
