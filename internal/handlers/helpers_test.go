package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/crypt"
	"messenger-service/internal/mocks"
	"messenger-service/internal/ws"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testCipherKey = []byte("0123456789abcdef0123456789abcdef")

// handlerEnv wires handlers against mock repositories, a real delivery
// router and a real codec, the same dependency shape main uses.
type handlerEnv struct {
	users    *mocks.UserRepositoryMock
	groups   *mocks.GroupRepositoryMock
	messages *mocks.MessageRepositoryMock
	codec    *crypt.Codec
	router   *ws.Router
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	codec, err := crypt.New(testCipherKey)
	require.NoError(t, err)

	env := &handlerEnv{
		users:    new(mocks.UserRepositoryMock),
		groups:   new(mocks.GroupRepositoryMock),
		messages: new(mocks.MessageRepositoryMock),
		codec:    codec,
	}
	env.router = ws.NewRouter(env.messages, env.groups, env.users, codec, ws.NewHub(nil), nil)
	return env
}

// asUser stands in for the auth middleware in tests.
func asUser(userID int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}

func performJSON(t *testing.T, engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
