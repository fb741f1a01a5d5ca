package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/swapmeet-backend/pkg/config"
)

var testCfg = config.JWTConfig{Secret: "secret", Issuer: "swapmeet"}

func mint(t *testing.T, issuedAt time.Time, ttl time.Duration, userID uuid.UUID) string {
	t.Helper()
	token, err := MintAccessToken(testCfg, issuedAt, ttl, AccessTokenPayload{UserID: userID, Email: "bidder@example.com"})
	require.NoError(t, err)
	return token
}

func TestMintAndParseRoundTrip(t *testing.T) {
	userID := uuid.New()

	claims, err := ParseAccessToken(testCfg, mint(t, time.Now(), 30*time.Minute, userID))
	require.NoError(t, err)

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "bidder@example.com", claims.Email)
	assert.Equal(t, "swapmeet", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestParseAppliesClockSkew(t *testing.T) {
	userID := uuid.New()

	// expired ten seconds ago, inside the leeway
	_, err := ParseAccessToken(testCfg, mint(t, time.Now().Add(-time.Minute-10*time.Second), time.Minute, userID))
	assert.NoError(t, err)

	_, err = ParseAccessToken(testCfg, mint(t, time.Now().Add(-2*time.Hour), time.Minute, userID))
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = ParseAccessToken(testCfg, mint(t, time.Now().Add(10*time.Minute), time.Hour, userID))
	assert.ErrorIs(t, err, jwt.ErrTokenUsedBeforeIssued)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	token := mint(t, time.Now(), time.Minute, uuid.New())

	_, err := ParseAccessToken(config.JWTConfig{Secret: "other", Issuer: "swapmeet"}, token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	_, err = ParseAccessToken(config.JWTConfig{Secret: "secret", Issuer: "elsewhere"}, token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	_, err = ParseAccessToken(config.JWTConfig{}, token)
	assert.ErrorIs(t, err, errSecretRequired)
}

func TestParseRejectsUnsignedTokens(t *testing.T) {
	claims := AccessTokenClaims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "swapmeet",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseAccessToken(testCfg, unsigned)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestParseRejectsSubjectThatDisagreesWithUser(t *testing.T) {
	claims := AccessTokenClaims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "swapmeet",
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ParseAccessToken(testCfg, forged)
	assert.ErrorIs(t, err, errSubjectMismatch)
}

func TestMintValidatesInput(t *testing.T) {
	_, err := MintAccessToken(testCfg, time.Now(), time.Minute, AccessTokenPayload{})
	assert.ErrorIs(t, err, errMissingSubject)

	_, err = MintAccessToken(testCfg, time.Now(), 0, AccessTokenPayload{UserID: uuid.New()})
	assert.Error(t, err)

	_, err = MintAccessToken(config.JWTConfig{Secret: "secret"}, time.Now(), time.Minute, AccessTokenPayload{UserID: uuid.New()})
	assert.Error(t, err)
}
