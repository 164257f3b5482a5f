package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

const defaultUserSyncInterval = 10 * time.Minute

type userMirror interface {
	Upsert(ctx context.Context, user *models.User) error
}

// AuthConfig holds the verification settings for tokens issued by the account service.
type AuthConfig struct {
	Secret       string
	Issuer       string
	Audience     string
	SyncInterval time.Duration
}

// AuthService verifies access tokens and keeps the local user mirror current so
// grievances and notifications can reference the caller.
type AuthService struct {
	users  userMirror
	config AuthConfig
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	synced map[string]time.Time
}

// NewAuthService constructs an AuthService. users may be nil to skip mirroring.
func NewAuthService(users userMirror, config AuthConfig, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.SyncInterval <= 0 {
		config.SyncInterval = defaultUserSyncInterval
	}
	return &AuthService{
		users:  users,
		config: config,
		logger: logger,
		now:    time.Now,
		synced: make(map[string]time.Time),
	}
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	if s.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.config.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.Role == "" {
		claims.Role = models.RoleCitizen
	}

	return claims, nil
}

// Authenticate validates the token and mirrors the caller into the users table at
// most once per SyncInterval. Mirror failures are logged and do not reject the call.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if s.users == nil || !s.dueForSync(claims.UserID) {
		return claims, nil
	}

	user := &models.User{
		ID:          claims.UserID,
		Username:    claims.Username,
		Email:       claims.Email,
		FullName:    claims.FullName,
		Role:        claims.Role,
		IsStaff:     claims.IsStaff,
		IsSuperuser: claims.IsSuperuser,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		s.forget(claims.UserID)
		s.logger.Warn("user mirror sync failed", zap.String("user_id", claims.UserID), zap.Error(err))
	}
	return claims, nil
}

func (s *AuthService) dueForSync(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if last, ok := s.synced[userID]; ok && now.Sub(last) < s.config.SyncInterval {
		return false
	}
	s.synced[userID] = now
	return true
}

func (s *AuthService) forget(userID string) {
	s.mu.Lock()
	delete(s.synced, userID)
	s.mu.Unlock()
}
