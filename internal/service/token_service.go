package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
)

type operatorFinder interface {
	FindOperatorByID(ctx context.Context, id string) (*models.Operator, error)
}

// TokenConfig configures operator token signing.
type TokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// TokenService issues and validates HS256 operator tokens.
type TokenService struct {
	operators operatorFinder
	cfg       TokenConfig
	clock     Clock
}

// NewTokenService constructs a TokenService.
func NewTokenService(operators operatorFinder, cfg TokenConfig, clock Clock) *TokenService {
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &TokenService{operators: operators, cfg: cfg, clock: clock}
}

// IssueForOperator loads the operator and signs a token for it.
func (s *TokenService) IssueForOperator(ctx context.Context, operatorID string) (string, time.Time, error) {
	operator, err := s.operators.FindOperatorByID(ctx, operatorID)
	if err != nil {
		return "", time.Time{}, storageErr(err, "failed to load operator")
	}
	if operator == nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "operator not found")
	}
	return s.Issue(*operator)
}

// Issue signs a token for operator.
func (s *TokenService) Issue(operator models.Operator) (string, time.Time, error) {
	if !operator.Role.Valid() {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrInvalidParameter, "operator has unknown role")
	}
	issuedAt := s.clock.Now().UTC()
	expiresAt := issuedAt.Add(s.cfg.TTL)
	claims := &models.OperatorClaims{
		Name: operator.Name,
		Role: operator.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   operator.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}
	return signed, expiresAt, nil
}

// ValidateToken parses and verifies an operator token.
func (s *TokenService) ValidateToken(tokenString string) (*models.OperatorClaims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.clock.Now)}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.OperatorClaims)
	if !ok || !token.Valid || claims.Subject == "" || !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}
