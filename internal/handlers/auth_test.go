package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/auth"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

func newAuthEngine(env *handlerEnv, tokens *auth.TokenManager) *gin.Engine {
	h := NewAuthHandler(env.users, tokens, nil)
	engine := gin.New()
	engine.POST("/api/register", h.Register)
	engine.POST("/api/login", h.Login)
	engine.PUT("/api/users/:id", asUser(1), h.UpdateProfile)
	engine.GET("/api/users", asUser(1), h.ListUsers)
	return engine
}

func TestRegisterCreatesUser(t *testing.T) {
	env := newHandlerEnv(t)
	engine := newAuthEngine(env, auth.NewTokenManager("secret", time.Hour))

	env.users.On("Create", mock.Anything, "alice", "alice@example.com", mock.MatchedBy(func(hash string) bool {
		return auth.CheckPassword(hash, "hunter22")
	}), mock.MatchedBy(func(avatar string) bool {
		return avatar != ""
	})).Return(models.User{ID: 5, Username: "alice"}, nil).Once()

	rec := performJSON(t, engine, http.MethodPost, "/api/register", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.EqualValues(t, 5, decodeBody(t, rec)["user_id"])
	env.users.AssertExpectations(t)
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	env := newHandlerEnv(t)
	engine := newAuthEngine(env, auth.NewTokenManager("secret", time.Hour))

	env.users.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(models.User{}, repositories.ErrUserExists).Once()

	rec := performJSON(t, engine, http.MethodPost, "/api/register", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterRequiresAllFields(t *testing.T) {
	env := newHandlerEnv(t)
	engine := newAuthEngine(env, auth.NewTokenManager("secret", time.Hour))

	rec := performJSON(t, engine, http.MethodPost, "/api/register", gin.H{"username": "alice"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	env := newHandlerEnv(t)
	tokens := auth.NewTokenManager("secret", time.Hour)
	engine := newAuthEngine(env, tokens)

	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)
	env.users.On("GetByEmail", mock.Anything, "alice@example.com").
		Return(models.User{ID: 5, Username: "alice", Email: "alice@example.com", PasswordHash: hash}, nil).Once()

	rec := performJSON(t, engine, http.MethodPost, "/api/login", gin.H{
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	require.EqualValues(t, 5, body["user_id"])
	require.Equal(t, "alice", body["username"])

	userID, err := tokens.Verify(body["token"].(string))
	require.NoError(t, err)
	require.Equal(t, 5, userID)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newHandlerEnv(t)
	engine := newAuthEngine(env, auth.NewTokenManager("secret", time.Hour))

	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)
	env.users.On("GetByEmail", mock.Anything, "alice@example.com").
		Return(models.User{ID: 5, PasswordHash: hash}, nil).Once()

	rec := performJSON(t, engine, http.MethodPost, "/api/login", gin.H{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid credentials", decodeBody(t, rec)["error"])
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	env := newHandlerEnv(t)
	engine := newAuthEngine(env, auth.NewTokenManager("secret", time.Hour))

	env.users.On("GetByEmail", mock.Anything, "ghost@example.com").
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	rec := performJSON(t, engine, http.MethodPost, "/api/login", gin.H{
		"email":    "ghost@example.com",
		"password": "whatever",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProfileIsOwnerOnly(t *testing.T) {
	env := newHandlerEnv(t)
	engine := newAuthEngine(env, auth.NewTokenManager("secret", time.Hour))

	rec := performJSON(t, engine, http.MethodPut, "/api/users/2", gin.H{
		"username": "mallory",
		"email":    "mallory@example.com",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	env.users.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateProfilePersistsChanges(t *testing.T) {
	env := newHandlerEnv(t)
	engine := newAuthEngine(env, auth.NewTokenManager("secret", time.Hour))

	env.users.On("UpdateProfile", mock.Anything, 1, "alice2", "alice2@example.com", "http://a/v2.png").
		Return(nil).Once()

	rec := performJSON(t, engine, http.MethodPut, "/api/users/1", gin.H{
		"username": "alice2",
		"email":    "alice2@example.com",
		"avatar":   "http://a/v2.png",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	env.users.AssertExpectations(t)
}

func TestListUsersOmitsSensitiveFields(t *testing.T) {
	env := newHandlerEnv(t)
	engine := newAuthEngine(env, auth.NewTokenManager("secret", time.Hour))

	env.users.On("ListOthers", mock.Anything, 1).Return([]models.User{
		{ID: 2, Username: "bob", Email: "bob@example.com", PasswordHash: "x", Avatar: "http://a/bob.png"},
	}, nil).Once()

	rec := performJSON(t, engine, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotContains(t, rec.Body.String(), "bob@example.com")
	require.NotContains(t, rec.Body.String(), "password")

	users := decodeBody(t, rec)["users"].([]interface{})
	require.Len(t, users, 1)
	entry := users[0].(map[string]interface{})
	require.EqualValues(t, 2, entry["id"])
	require.Equal(t, "bob", entry["username"])
}
