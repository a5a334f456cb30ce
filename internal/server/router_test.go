package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskdash/internal/config"
	"github.com/yukikurage/taskdash/internal/dto"
	"github.com/yukikurage/taskdash/internal/testutil"
)

type client struct {
	t       *testing.T
	router  *gin.Engine
	cookies []*http.Cookie
}

func (c *client) do(method, target string, payload any) *httptest.ResponseRecorder {
	c.t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(c.t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		c.cookies = cookies
	}
	return w
}

func newClient(t *testing.T) *client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := NewRouter(Dependencies{
		DB:           testutil.NewDB(t),
		SessionStore: cookie.NewStore([]byte("secret")),
	})
	return &client{t: t, router: router}
}

func TestRouter_Health(t *testing.T) {
	c := newClient(t)

	w := c.do(http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_RequiresSession(t *testing.T) {
	c := newClient(t)

	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, "/dashboard/1/tasks", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/api/tasks", map[string]string{"name": "x"}).Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodDelete, "/api/tasks/1", nil).Code)
}

func TestRouter_DashboardFlow(t *testing.T) {
	c := newClient(t)

	w := c.do(http.MethodPost, "/api/auth/signup", map[string]string{"username": "alice", "password": "supersecret"})
	require.Equal(t, http.StatusCreated, w.Code)
	var signup struct {
		Organization dto.OrganizationDTO `json:"organization"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &signup))
	listPath := "/dashboard/" + strconv.FormatUint(signup.Organization.ID, 10) + "/tasks"

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "supersecret"}).Code)

	w = c.do(http.MethodGet, listPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page dto.TaskListPageDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.True(t, page.Empty)

	w = c.do(http.MethodPost, "/api/tasks", map[string]string{"name": "Write report", "due_date": "2030-01-15"})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, listPath, w.Header().Get("Location"))

	w = c.do(http.MethodGet, listPath, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Tasks, 1)
	taskPath := "/api/tasks/" + strconv.FormatUint(page.Tasks[0].ID, 10)

	w = c.do(http.MethodPatch, taskPath, map[string]bool{"done": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodGet, listPath+"/"+strconv.FormatUint(page.Tasks[0].ID, 10), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"done":true`)

	assert.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, taskPath, nil).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodDelete, taskPath, nil).Code)

	w = c.do(http.MethodGet, listPath+"/"+strconv.FormatUint(page.Tasks[0].ID, 10), nil)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestRouter_ForeignDashboardIsNotFound(t *testing.T) {
	c := newClient(t)

	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/auth/signup", map[string]string{"username": "alice", "password": "supersecret"}).Code)
	w := c.do(http.MethodPost, "/api/auth/signup", map[string]string{"username": "bob", "password": "supersecret"})
	require.Equal(t, http.StatusCreated, w.Code)
	var bob struct {
		Organization dto.OrganizationDTO `json:"organization"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bob))

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "alice", "password": "supersecret"}).Code)

	w = c.do(http.MethodGet, "/dashboard/"+strconv.FormatUint(bob.Organization.ID, 10)+"/tasks", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNewSessionStore(t *testing.T) {
	store, err := NewSessionStore(&config.Config{SessionStore: config.SessionStoreCookie, SessionSecret: "secret"})
	require.NoError(t, err)
	assert.NotNil(t, store)

	_, err = NewSessionStore(&config.Config{SessionStore: "memcached"})
	assert.Error(t, err)
}
