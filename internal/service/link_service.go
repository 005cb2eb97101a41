package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"traflow/internal/model"
)

// assessorLinkTTL bounds how long a review link stays valid
const assessorLinkTTL = 14 * 24 * time.Hour

// LinkService signs and validates assessor review links
type LinkService struct {
	secret  []byte
	baseURL string
}

func NewLinkService(secret, baseURL string) *LinkService {
	return &LinkService{secret: []byte(secret), baseURL: baseURL}
}

// GenerateAssessorLink mints a signed review URL for one assessment
func (s *LinkService) GenerateAssessorLink(assessmentID string) (*model.ReviewLink, error) {
	now := time.Now().UTC()
	claims := &model.AssessorClaims{
		AssessmentID: assessmentID,
		Role:         "assessor",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(assessorLinkTTL)),
			Subject:   assessmentID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, model.UpstreamErr("failed to sign review link", err)
	}

	return &model.ReviewLink{
		AssessmentID: assessmentID,
		Token:        signed,
		URL:          fmt.Sprintf("%s/review?token=%s", s.baseURL, signed),
	}, nil
}

// ValidateAssessorToken checks a review-link token and returns its claims
func (s *LinkService) ValidateAssessorToken(tokenString string) (*model.AssessorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.AssessorClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, model.ValidationErr("invalid or expired review link")
	}

	claims, ok := token.Claims.(*model.AssessorClaims)
	if !ok || !token.Valid {
		return nil, model.ValidationErr("invalid or expired review link")
	}
	return claims, nil
}
