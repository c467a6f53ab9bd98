package auth

import (
	"testing"
	"time"

	"github.com/DGISsoft/prodreport/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testUser() *models.User {
	return &models.User{ID: primitive.NewObjectID(), Email: "a@x.com", Name: "Ann", Role: models.UserRoleReporter}
}

func TestJWTManager_RoundTrip(t *testing.T) {
	manager := NewJWTManager("secret", time.Hour)
	user := testUser()

	token, err := manager.GenerateToken(user)
	require.NoError(t, err)

	claims, err := manager.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "Ann", claims.Name)
	assert.Equal(t, models.UserRoleReporter, claims.Role)
}

func TestJWTManager_Expired(t *testing.T) {
	manager := NewJWTManager("secret", time.Minute)
	issued := time.Now().Add(-time.Hour)
	manager.now = func() time.Time { return issued }

	token, err := manager.GenerateToken(testUser())
	require.NoError(t, err)

	manager.now = time.Now
	_, err = manager.VerifyToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	token, err := NewJWTManager("one", time.Hour).GenerateToken(testUser())
	require.NoError(t, err)

	_, err = NewJWTManager("two", time.Hour).VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_RejectsNoneAlgorithm(t *testing.T) {
	claims := JWTClaims{UserID: "x", Role: models.UserRoleAdmin}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTManager("secret", time.Hour).VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_RejectsUnknownRole(t *testing.T) {
	user := testUser()
	user.Role = "supervisor"
	manager := NewJWTManager("secret", time.Hour)
	token, err := manager.GenerateToken(user)
	require.NoError(t, err)

	_, err = manager.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
