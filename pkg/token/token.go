package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/credvault/credvault/pkg/model"
)

// TokenType is reported to clients alongside every access token.
const TokenType = "bearer"

const accessSubject = "access"

// Token is an issued bearer token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"-"`
}

// Claims carried by an access token.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// UserFinder looks users up by id.
type UserFinder interface {
	FindUserByID(ctx context.Context, id uint) (*model.User, error)
}

// Service issues and resolves HS256 access tokens signed with the server
// master secret.
type Service struct {
	secret []byte
	ttl    time.Duration
	users  UserFinder
	now    func() time.Time
}

// NewService creates a token Service.
func NewService(secret string, ttl time.Duration, users UserFinder) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token lifetime must be positive")
	}
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		users:  users,
		now:    time.Now,
	}, nil
}

// Issue signs a token for userID valid for the configured lifetime.
func (s *Service) Issue(userID uint) (*Token, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := Claims{
		UserID: strconv.FormatUint(uint64(userID), 10),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accessSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Token{AccessToken: signed, TokenType: TokenType, ExpiresAt: expiresAt}, nil
}

// Parse verifies raw and returns the user id it carries.
func (s *Service) Parse(raw string) (uint, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, err
	}

	id, err := strconv.ParseUint(claims.UserID, 10, 0)
	if err != nil || id == 0 {
		return 0, errors.New("token does not carry a user id")
	}
	return uint(id), nil
}

// Resolve maps a raw token to its active user. Every failure (bad
// signature, expiry, unknown or inactive user, lookup error) yields nil.
func (s *Service) Resolve(ctx context.Context, raw string) *model.User {
	id, err := s.Parse(raw)
	if err != nil {
		return nil
	}

	u, err := s.users.FindUserByID(ctx, id)
	if err != nil || u == nil || !u.IsActive {
		return nil
	}
	return u
}

// FromHeader extracts the token from an Authorization header value. The
// last space-separated field is the token, so both "Bearer <t>" and a bare
// "<t>" are accepted.
func FromHeader(header string) string {
	fields := strings.Fields(header)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
