// File: internal/user/service.go
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"authflow_backend/internal/common"
	"authflow_backend/internal/config"
	"authflow_backend/internal/session"

	firebaseauth "firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Auth methods recorded on the local mirror.
const (
	MethodPassword = "password"
	MethodPhone    = "phone"
	MethodIDToken  = "id_token"
)

// Service maintains the local mirror of provider principals.
type Service struct {
	repo   Repository
	cfg    *config.Config
	logger *zap.Logger
}

// NewService creates a new user service.
func NewService(repo Repository, cfg *config.Config, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
	}
}

// GetOrCreateFromPrincipal mirrors a principal produced by the session flow.
// Existing rows are refreshed (last login, phone/email the provider now
// reports); missing rows are created.
func (s *Service) GetOrCreateFromPrincipal(ctx context.Context, p *session.Principal, username, method string) (*User, bool, error) {
	dbUser, err := s.repo.FindByFirebaseUID(ctx, p.ID)
	if err == nil {
		now := time.Now()
		dbUser.LastLoginAt = &now
		if p.Email != nil {
			dbUser.Email = p.Email
		}
		if p.Phone != nil {
			dbUser.Phone = p.Phone
		}
		if err := s.repo.Update(ctx, dbUser); err != nil {
			// Not critical for auth, the sign-in already succeeded.
			s.logger.Error("Failed to refresh mirrored user", zap.Error(err), zap.String("firebaseUID", p.ID))
		}
		return dbUser, false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		s.logger.Error("Error finding user by Firebase UID", zap.Error(err), zap.String("firebaseUID", p.ID))
		return nil, false, err
	}

	now := time.Now()
	uid := p.ID
	dbUser = &User{
		BaseModel: common.BaseModel{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		FirebaseUID: &uid,
		Email:       p.Email,
		Phone:       p.Phone,
		AuthMethod:  method,
		Role:        common.RoleUser,
		LastLoginAt: &now,
	}
	if username != "" {
		usernameCopy := username
		dbUser.Username = &usernameCopy
	}

	if err := s.repo.Create(ctx, dbUser); err != nil {
		s.logger.Error("Failed to create mirrored user", zap.Error(err), zap.String("firebaseUID", p.ID))
		if apiErr, ok := common.IsAPIError(err); ok {
			return nil, false, apiErr
		}
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("Mirrored new principal", zap.String("userID", dbUser.ID.String()), zap.String("firebaseUID", p.ID))
	return dbUser, true, nil
}

// GetOrCreateFromFirebaseToken mirrors a principal from an Admin-SDK verified
// ID token, for clients that authenticated directly against Firebase.
func (s *Service) GetOrCreateFromFirebaseToken(ctx context.Context, token *firebaseauth.Token) (*User, bool, error) {
	p := &session.Principal{ID: token.UID}
	if email, ok := token.Claims["email"].(string); ok && email != "" {
		p.Email = &email
	}
	if phone, ok := token.Claims["phone_number"].(string); ok && phone != "" {
		p.Phone = &phone
	}
	username := ""
	if name, ok := token.Claims["name"].(string); ok {
		username = name
	}
	return s.GetOrCreateFromPrincipal(ctx, p, username, MethodIDToken)
}

// GetByID loads a mirrored user by local ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.logger.Info("User not found by ID", zap.String("userID", id.String()))
		} else {
			s.logger.Error("Error finding user by ID", zap.Error(err), zap.String("userID", id.String()))
		}
		return nil, err
	}
	return dbUser, nil
}

// GetByFirebaseUID loads a mirrored user by provider UID.
func (s *Service) GetByFirebaseUID(ctx context.Context, firebaseUID string) (*User, error) {
	dbUser, err := s.repo.FindByFirebaseUID(ctx, firebaseUID)
	if err != nil {
		return nil, err
	}
	return dbUser, nil
}
