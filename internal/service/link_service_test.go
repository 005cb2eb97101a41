package service

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traflow/internal/model"
)

func TestAssessorLinkRoundTrip(t *testing.T) {
	svc := NewLinkService("test-secret", "https://tra.example.com")

	link, err := svc.GenerateAssessorLink("TRA-2026-ABCDEF")
	require.NoError(t, err)
	assert.Equal(t, "TRA-2026-ABCDEF", link.AssessmentID)
	assert.True(t, strings.HasPrefix(link.URL, "https://tra.example.com/review?token="))

	claims, err := svc.ValidateAssessorToken(link.Token)
	require.NoError(t, err)
	assert.Equal(t, "TRA-2026-ABCDEF", claims.AssessmentID)
	assert.Equal(t, "assessor", claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(assessorLinkTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestValidateRejectsGarbageToken(t *testing.T) {
	svc := NewLinkService("test-secret", "https://tra.example.com")

	_, err := svc.ValidateAssessorToken("not-a-token")
	require.Error(t, err)
	assert.Equal(t, model.ErrKindValidation, model.KindOf(err))
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := NewLinkService("secret-a", "https://tra.example.com")
	verifier := NewLinkService("secret-b", "https://tra.example.com")

	link, err := issuer.GenerateAssessorLink("TRA-2026-ABCDEF")
	require.NoError(t, err)

	_, err = verifier.ValidateAssessorToken(link.Token)
	require.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewLinkService("test-secret", "https://tra.example.com")

	expired := time.Now().Add(-time.Hour)
	claims := &model.AssessorClaims{
		AssessmentID: "TRA-2026-ABCDEF",
		Role:         "assessor",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(expired.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(expired),
			Subject:   "TRA-2026-ABCDEF",
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.ValidateAssessorToken(token)
	require.Error(t, err)
}

func TestValidateRejectsUnsignedToken(t *testing.T) {
	svc := NewLinkService("test-secret", "https://tra.example.com")

	claims := &model.AssessorClaims{AssessmentID: "TRA-2026-ABCDEF", Role: "assessor"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateAssessorToken(token)
	require.Error(t, err)
}
