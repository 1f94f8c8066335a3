package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cppla/careping/app"
	"github.com/cppla/careping/clock"
	"github.com/cppla/careping/config"
	"github.com/cppla/careping/models"
	"github.com/cppla/careping/notify"
	"github.com/cppla/careping/testutil"
	"github.com/cppla/careping/utils"
)

var loc = time.FixedZone("CST", 8*3600)

type server struct {
	t       *testing.T
	handler *gin.Engine
	clock   *clock.Fake
	tokens  map[string]string
	ids     map[string]uint
}

func newServer(t *testing.T) *server {
	t.Helper()
	cfg, err := config.LoadFrom("")
	require.NoError(t, err)
	cfg.JWTSecret = "router-test"
	cfg.GinMode = "test"
	cfg.GinPath = ""
	cfg.RateLimitPerMinute = 1000
	config.Set(cfg)

	db := testutil.NewTestDB(t)
	rdb, _ := testutil.NewTestRedis(t)
	clk := clock.NewFake(time.Date(2024, 5, 20, 9, 0, 0, 0, loc))
	a := app.New(cfg, db, rdb, clk, notify.NewLogTransport(zaptest.NewLogger(t)), zaptest.NewLogger(t))

	s := &server{
		t:       t,
		handler: SetupRouter(cfg, Deps{CheckIns: a.CheckIns, Relations: a.Relations, Users: a.Users}),
		clock:   clk,
		tokens:  map[string]string{},
		ids:     map[string]uint{},
	}
	for _, name := range []string{"mom", "kid"} {
		u := &models.User{Username: name}
		require.NoError(t, a.Users.Create(context.Background(), u))
		tok, err := utils.GenerateToken(u.ID, name, time.Hour)
		require.NoError(t, err)
		s.tokens[name], s.ids[name] = tok, u.ID
	}
	return s
}

func (s *server) do(user, method, path string, body any) (int, utils.JSONResponse) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens[user])
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	var resp utils.JSONResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func dataID(t *testing.T, resp utils.JSONResponse) uint {
	t.Helper()
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	id, ok := m["id"].(float64)
	require.True(t, ok)
	return uint(id)
}

func TestRouter_CheckInFlow(t *testing.T) {
	s := newServer(t)

	code, resp := s.do("mom", http.MethodPost, "/api/v1/relations", gin.H{"partner_id": s.ids["kid"], "name": "<b>Kid</b>"})
	require.Equal(t, http.StatusCreated, code)
	relID := dataID(t, resp)

	code, _ = s.do("mom", http.MethodPost, fmt.Sprintf("/api/v1/relations/%d/accept", relID), nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do("kid", http.MethodPost, fmt.Sprintf("/api/v1/relations/%d/accept", relID), nil)
	require.Equal(t, http.StatusOK, code)

	code, resp = s.do("mom", http.MethodPost, "/api/v1/tasks", gin.H{
		"user_id":     s.ids["kid"],
		"title":       "take medicine",
		"remind_at":   time.Date(2024, 5, 20, 10, 0, 0, 0, loc).Format(time.RFC3339),
		"repeat_type": "DAILY",
	})
	require.Equal(t, http.StatusCreated, code)
	taskID := dataID(t, resp)

	code, resp = s.do("kid", http.MethodPost, "/api/v1/checkins", gin.H{"task_id": taskID})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, 42201, resp.Code)

	s.clock.Set(time.Date(2024, 5, 20, 9, 50, 0, 0, loc))
	code, _ = s.do("kid", http.MethodPost, "/api/v1/checkins", gin.H{"task_id": taskID})
	require.Equal(t, http.StatusOK, code)
	code, resp = s.do("kid", http.MethodPost, "/api/v1/checkins", gin.H{"task_id": taskID})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, 40901, resp.Code)

	code, resp = s.do("mom", http.MethodGet, "/api/v1/supervised", nil)
	require.Equal(t, http.StatusOK, code)
	partners, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, partners, 1)
	assert.Equal(t, "NORMAL", partners[0].(map[string]any)["state"])

	code, resp = s.do("kid", http.MethodGet, "/api/v1/checkins/daily?date=2024-05-20", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2024-05-20", resp.Data.(map[string]any)["date"])

	code, resp = s.do("kid", http.MethodGet, "/api/v1/checkins/stats", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, resp.Data.(map[string]any)["current_streak"])
}

func TestRouter_Unbind(t *testing.T) {
	s := newServer(t)
	_, resp := s.do("mom", http.MethodPost, "/api/v1/relations", gin.H{"partner_id": s.ids["kid"]})
	relID := dataID(t, resp)
	s.do("kid", http.MethodPost, fmt.Sprintf("/api/v1/relations/%d/accept", relID), nil)

	path := fmt.Sprintf("/api/v1/relations/%d/unbind", relID)
	code, _ := s.do("kid", http.MethodPost, path, gin.H{"reason": "moving out"})
	require.Equal(t, http.StatusOK, code)
	code, resp = s.do("mom", http.MethodPost, path, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, 40903, resp.Code)

	code, _ = s.do("mom", http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, code)

	code, resp = s.do("mom", http.MethodGet, "/api/v1/relations", nil)
	require.Equal(t, http.StatusOK, code)
	rels := resp.Data.([]any)
	require.Len(t, rels, 1)
	assert.Equal(t, "ACCEPTED", rels[0].(map[string]any)["status"])
}

func TestRouter_AuthAndValidation(t *testing.T) {
	s := newServer(t)

	code, _ := s.do("", http.MethodGet, "/api/v1/tasks", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = s.do("kid", http.MethodPut, "/api/v1/tasks/abc", gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do("kid", http.MethodPut, "/api/v1/users/me/push", gin.H{"channel": "pager"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do("kid", http.MethodPut, "/api/v1/users/me/push", gin.H{"channel": "email", "handle": "kid@example.com"})
	assert.Equal(t, http.StatusOK, code)

	code, resp := s.do("kid", http.MethodGet, "/api/v1/users/me", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "email", resp.Data.(map[string]any)["push_channel"])

	code, _ = s.do("", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
}
