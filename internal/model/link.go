package model

import "github.com/golang-jwt/jwt/v5"

// AssessorClaims are JWT claims embedded in an assessor review link
type AssessorClaims struct {
	AssessmentID string `json:"assessmentId"`
	Role         string `json:"role"`
	jwt.RegisteredClaims
}

// ReviewLink is returned when an assessor link is generated
type ReviewLink struct {
	AssessmentID string `json:"assessmentId"`
	URL          string `json:"url"`
	Token        string `json:"token"`
}
