package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"authflow_backend/internal/config"
	"authflow_backend/internal/middleware"
	"authflow_backend/internal/session"
	"authflow_backend/internal/user"
)

// MockIdentityProvider is a mock type for session.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) CreateAccount(ctx context.Context, email, password string) (*session.Principal, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Principal), args.Error(1)
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, email, password string) (*session.Principal, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Principal), args.Error(1)
}

func (m *MockIdentityProvider) SendPhoneCode(ctx context.Context, phoneNumber string) (*session.PhoneCodeEvent, error) {
	args := m.Called(ctx, phoneNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.PhoneCodeEvent), args.Error(1)
}

func (m *MockIdentityProvider) VerifyPhoneCode(ctx context.Context, handle *session.VerificationHandle, code string) (*session.Principal, error) {
	args := m.Called(ctx, handle, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Principal), args.Error(1)
}

func (m *MockIdentityProvider) SendPasswordReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// MockProfileStore is a mock type for session.ProfileStore
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) Put(ctx context.Context, record *session.ProfileRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockProfileStore) GetByPrincipalID(ctx context.Context, principalID string) (*session.ProfileRecord, error) {
	args := m.Called(ctx, principalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.ProfileRecord), args.Error(1)
}

type handlerFixture struct {
	router   *gin.Engine
	provider *MockIdentityProvider
	profiles *MockProfileStore
	flows    *session.Manager
}

func setupHandler(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWTSecretKey:          "handler-test-secret",
		JWTAccessTokenExpiry:  15 * time.Minute,
		JWTRefreshTokenExpiry: 7 * 24 * time.Hour,
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "handler_test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&user.User{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})

	logger := zap.NewNop()
	provider := new(MockIdentityProvider)
	profiles := new(MockProfileStore)
	flows := session.NewManager(provider, profiles, logger)
	userService := user.NewService(user.NewGORMRepository(db), cfg, logger)
	tokenService := NewJWTService(cfg, logger)
	handler := NewHandler(flows, userService, tokenService, nil, logger)

	router := gin.New()
	v1 := router.Group("/api/v1")
	handler.RegisterRoutes(v1, middleware.AuthMiddleware(tokenService, logger))

	return &handlerFixture{router: router, provider: provider, profiles: profiles, flows: flows}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func principalWithEmail(id, email string) *session.Principal {
	return &session.Principal{
		ID:    id,
		Email: &email,
		Token: &session.ProviderToken{IDToken: "idt", RefreshToken: "rt", ExpiresIn: time.Hour},
	}
}

func TestRegisterEndpoint_Success(t *testing.T) {
	f := setupHandler(t)

	f.provider.On("CreateAccount", mock.Anything, "jane@example.com", "secret123").
		Return(principalWithEmail("fb-uid-1", "jane@example.com"), nil)
	f.profiles.On("Put", mock.Anything, mock.Anything).Return(nil)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:           "jane@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
		Username:        "jane",
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(FlowIDHeader))

	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	token := data["token"].(map[string]interface{})
	assert.NotEmpty(t, token["access_token"])
	assert.Equal(t, "Bearer", token["token_type"])
}

func TestRegisterEndpoint_ValidationFailure(t *testing.T) {
	f := setupHandler(t)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/register", RegisterRequest{
		Email:           "not-an-email",
		Password:        "secret123",
		ConfirmPassword: "secret123",
		Username:        "jane",
	}, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	f.provider.AssertNotCalled(t, "CreateAccount", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginEndpoint_CollapsesCredentialFailures(t *testing.T) {
	f := setupHandler(t)

	f.provider.On("SignIn", mock.Anything, "ghost@example.com", "secret123").
		Return(nil, session.ErrAccountNotFound)
	f.provider.On("SignIn", mock.Anything, "jane@example.com", "wrongpass123").
		Return(nil, session.ErrInvalidCredential)

	recGhost := f.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Email: "ghost@example.com", Password: "secret123"}, nil)
	recWrong := f.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Email: "jane@example.com", Password: "wrongpass123"}, nil)

	// Unknown account and wrong password must be indistinguishable.
	assert.Equal(t, http.StatusUnauthorized, recGhost.Code)
	assert.Equal(t, http.StatusUnauthorized, recWrong.Code)
	assert.JSONEq(t, recGhost.Body.String(), recWrong.Body.String())
}

func TestPhoneFlow_SendAndVerifyAcrossRequests(t *testing.T) {
	f := setupHandler(t)

	phone := "+15551234567"
	handle := &session.VerificationHandle{ID: "sess-1", Phone: phone, IssuedAt: time.Now()}
	verified := &session.Principal{ID: "fb-uid-2", Phone: &phone}

	f.provider.On("SendPhoneCode", mock.Anything, phone).
		Return(&session.PhoneCodeEvent{Outcome: session.PhoneCodeSent, Handle: handle}, nil)
	f.provider.On("VerifyPhoneCode", mock.Anything, handle, "123456").
		Return(verified, nil)

	recSend := f.do(t, http.MethodPost, "/api/v1/auth/phone/send-code", PhoneCodeRequest{PhoneNumber: phone}, nil)
	require.Equal(t, http.StatusOK, recSend.Code, recSend.Body.String())
	flowID := recSend.Header().Get(FlowIDHeader)
	require.NotEmpty(t, flowID)

	recVerify := f.do(t, http.MethodPost, "/api/v1/auth/phone/verify", PhoneVerifyRequest{Code: "123456"},
		map[string]string{FlowIDHeader: flowID})
	require.Equal(t, http.StatusOK, recVerify.Code, recVerify.Body.String())

	body := decodeBody(t, recVerify)
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["token"].(map[string]interface{})["access_token"])
}

func TestPhoneVerify_WithoutFlowHeader(t *testing.T) {
	f := setupHandler(t)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/phone/verify", PhoneVerifyRequest{Code: "123456"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "NO_PENDING_VERIFICATION", body["code"])
}

func TestPhoneVerify_WrongCodeAllowsRetry(t *testing.T) {
	f := setupHandler(t)

	phone := "+15551234567"
	handle := &session.VerificationHandle{ID: "sess-1", Phone: phone, IssuedAt: time.Now()}
	f.provider.On("SendPhoneCode", mock.Anything, phone).
		Return(&session.PhoneCodeEvent{Outcome: session.PhoneCodeSent, Handle: handle}, nil)
	f.provider.On("VerifyPhoneCode", mock.Anything, handle, "000000").
		Return(nil, session.ErrInvalidCode)

	recSend := f.do(t, http.MethodPost, "/api/v1/auth/phone/send-code", PhoneCodeRequest{PhoneNumber: phone}, nil)
	flowID := recSend.Header().Get(FlowIDHeader)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/phone/verify", PhoneVerifyRequest{Code: "000000"},
		map[string]string{FlowIDHeader: flowID})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CODE", decodeBody(t, rec)["code"])

	// The flow and its handle survive the wrong code.
	ctrl, ok := f.flows.Get(flowID)
	require.True(t, ok)
	assert.Equal(t, session.StateCodePending, ctrl.State())
}

func TestPasswordResetEndpoint_AlwaysGeneric(t *testing.T) {
	f := setupHandler(t)

	f.provider.On("SendPasswordReset", mock.Anything, "anyone@example.com").Return(nil)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/password-reset", PasswordResetRequest{Email: "anyone@example.com"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Contains(t, body["message"], "If an account exists")
	// Stateless: no flow is created for a reset request.
	assert.Empty(t, rec.Header().Get(FlowIDHeader))
	assert.Equal(t, 0, f.flows.Len())
}

func TestRefreshTokenEndpoint(t *testing.T) {
	f := setupHandler(t)

	f.provider.On("SignIn", mock.Anything, "jane@example.com", "secret123").
		Return(principalWithEmail("fb-uid-3", "jane@example.com"), nil)

	recLogin := f.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Email: "jane@example.com", Password: "secret123"}, nil)
	require.Equal(t, http.StatusOK, recLogin.Code, recLogin.Body.String())

	data := decodeBody(t, recLogin)["data"].(map[string]interface{})
	refresh := data["token"].(map[string]interface{})["refresh_token"].(string)
	require.NotEmpty(t, refresh)

	rec := f.do(t, http.MethodPost, "/api/v1/auth/refresh-token", RefreshTokenRequest{RefreshToken: refresh}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	tokenData := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.NotEmpty(t, tokenData["access_token"])

	recBad := f.do(t, http.MethodPost, "/api/v1/auth/refresh-token", RefreshTokenRequest{RefreshToken: "not-a-token"}, nil)
	assert.Equal(t, http.StatusUnauthorized, recBad.Code)
}

func TestMeEndpoint_FallsBackWhenProfileMissing(t *testing.T) {
	f := setupHandler(t)

	f.provider.On("SignIn", mock.Anything, "jane@example.com", "secret123").
		Return(principalWithEmail("fb-uid-4", "jane@example.com"), nil)
	f.profiles.On("GetByPrincipalID", mock.Anything, "fb-uid-4").
		Return(nil, session.ErrProfileNotFound)

	recLogin := f.do(t, http.MethodPost, "/api/v1/auth/login", LoginRequest{Email: "jane@example.com", Password: "secret123"}, nil)
	require.Equal(t, http.StatusOK, recLogin.Code)
	data := decodeBody(t, recLogin)["data"].(map[string]interface{})
	access := data["token"].(map[string]interface{})["access_token"].(string)

	rec := f.do(t, http.MethodGet, "/api/v1/auth/me", nil,
		map[string]string{"Authorization": "Bearer " + access})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	meData := decodeBody(t, rec)["data"].(map[string]interface{})
	profile := meData["profile"].(map[string]interface{})
	assert.Equal(t, "jane", profile["username"])
}

func TestMeEndpoint_RequiresToken(t *testing.T) {
	f := setupHandler(t)

	rec := f.do(t, http.MethodGet, "/api/v1/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/auth/me", nil,
		map[string]string{"Authorization": "Bearer invalid.token.here"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
