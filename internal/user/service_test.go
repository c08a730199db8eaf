package user

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"authflow_backend/internal/common"
	"authflow_backend/internal/config"
	"authflow_backend/internal/session"
)

func newTestService(t *testing.T) (*Service, Repository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users_test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&User{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	repo := NewGORMRepository(db)
	return NewService(repo, &config.Config{}, zap.NewNop()), repo
}

func passwordPrincipal(uid, email string) *session.Principal {
	return &session.Principal{ID: uid, Email: &email}
}

func TestGetOrCreateFromPrincipal_CreatesNewMirror(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, created, err := svc.GetOrCreateFromPrincipal(ctx, passwordPrincipal("fb-uid-1", "jane@example.com"), "jane", MethodPassword)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, u)
	assert.Equal(t, "fb-uid-1", *u.FirebaseUID)
	assert.Equal(t, "jane@example.com", *u.Email)
	assert.Equal(t, "jane", *u.Username)
	assert.Equal(t, MethodPassword, u.AuthMethod)
	assert.Equal(t, common.RoleUser, u.Role)
	require.NotNil(t, u.LastLoginAt)
}

func TestGetOrCreateFromPrincipal_RefreshesExistingMirror(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, created, err := svc.GetOrCreateFromPrincipal(ctx, passwordPrincipal("fb-uid-2", "sam@example.com"), "sam", MethodPassword)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := svc.GetOrCreateFromPrincipal(ctx, passwordPrincipal("fb-uid-2", "sam@example.com"), "", MethodPassword)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.LastLoginAt)
}

func TestGetOrCreateFromPrincipal_PhoneOnlyAccount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	phone := "+15551234567"
	p := &session.Principal{ID: "fb-uid-3", Phone: &phone}
	u, created, err := svc.GetOrCreateFromPrincipal(ctx, p, "", MethodPhone)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, u.Email)
	assert.Equal(t, phone, *u.Phone)
	assert.Equal(t, MethodPhone, u.AuthMethod)
	assert.Nil(t, u.Username)
}

func TestRepository_CreateNormalizesAndConflicts(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.GetOrCreateFromPrincipal(ctx, passwordPrincipal("fb-uid-4", "Mixed@Example.com"), "mixed", MethodPassword)
	require.NoError(t, err)

	found, err := repo.FindByEmail(ctx, "MIXED@example.com")
	require.NoError(t, err)
	assert.Equal(t, "mixed@example.com", *found.Email)

	// Same email under a different provider UID violates the unique index.
	dup, err2 := repo.FindByFirebaseUID(ctx, "fb-uid-4")
	require.NoError(t, err2)
	email := *dup.Email
	err = repo.Create(ctx, &User{
		FirebaseUID: strPtr("fb-uid-other"),
		Email:       &email,
		AuthMethod:  MethodPassword,
		Role:        common.RoleUser,
	})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestGetByID_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	u, created, err := svc.GetOrCreateFromPrincipal(context.Background(), passwordPrincipal("fb-uid-5", "a@example.com"), "a", MethodPassword)
	require.NoError(t, err)
	require.True(t, created)

	got, err := svc.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.GetByFirebaseUID(context.Background(), "no-such-uid")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func strPtr(s string) *string { return &s }
