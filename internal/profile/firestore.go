// File: internal/profile/firestore.go
package profile

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"authflow_backend/internal/config"
	"authflow_backend/internal/session"
)

// FirestoreStore implements session.ProfileStore against a Firestore
// collection keyed by principal ID.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	logger     *zap.Logger
}

var _ session.ProfileStore = (*FirestoreStore)(nil)

// NewFirestoreStore connects to Firestore using the service account
// credentials shared with the Admin SDK.
func NewFirestoreStore(cfg *config.Config, logger *zap.Logger) (*FirestoreStore, error) {
	if cfg.FirebaseProjectID == "" {
		return nil, fmt.Errorf("firebase project ID is required for the profile store")
	}
	client, err := firestore.NewClient(context.Background(), cfg.FirebaseProjectID,
		option.WithCredentialsFile(cfg.FirebaseServiceAccountKeyPath))
	if err != nil {
		logger.Error("Failed to initialize Firestore client", zap.Error(err))
		return nil, fmt.Errorf("error initializing Firestore client: %w", err)
	}
	logger.Info("Firestore profile store initialized", zap.String("collection", cfg.ProfileCollection))
	return &FirestoreStore{
		client:     client,
		collection: cfg.ProfileCollection,
		logger:     logger.Named("ProfileStore"),
	}, nil
}

// Put writes the profile record. The document ID is the principal ID, so a
// rewrite of the same principal is a replace, never a duplicate.
func (s *FirestoreStore) Put(ctx context.Context, rec *session.ProfileRecord) error {
	doc := fromRecord(rec)
	if _, err := s.client.Collection(s.collection).Doc(rec.PrincipalID).Set(ctx, doc); err != nil {
		s.logger.Error("Failed to write profile record",
			zap.String("principalID", rec.PrincipalID), zap.Error(err))
		return fmt.Errorf("failed to write profile record: %w", err)
	}
	return nil
}

// GetByPrincipalID loads a profile record, mapping a missing document to
// session.ErrProfileNotFound.
func (s *FirestoreStore) GetByPrincipalID(ctx context.Context, principalID string) (*session.ProfileRecord, error) {
	snap, err := s.client.Collection(s.collection).Doc(principalID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, session.ErrProfileNotFound
		}
		s.logger.Error("Failed to read profile record",
			zap.String("principalID", principalID), zap.Error(err))
		return nil, fmt.Errorf("failed to read profile record: %w", err)
	}
	var doc document
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode profile record: %w", err)
	}
	return doc.toRecord(), nil
}

// Close releases the Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
