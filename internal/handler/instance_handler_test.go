package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bookwyrm-admin/internal/dto"
)

type mockInstanceService struct {
	nodeInfo *dto.NodeInfo
	instance *dto.InstanceInfo
	err      error
}

func (m *mockInstanceService) NodeInfo(ctx context.Context) (*dto.NodeInfo, error) {
	return m.nodeInfo, m.err
}

func (m *mockInstanceService) Instance(ctx context.Context) (*dto.InstanceInfo, error) {
	return m.instance, m.err
}

func newInstanceRouter(svc instanceService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewInstanceHandler(svc, "https://books.example.net")
	r := gin.New()
	r.GET("/.well-known/nodeinfo", h.WellKnownNodeInfo)
	r.GET("/nodeinfo/2.0", h.NodeInfo)
	r.GET("/api/v1/instance", h.Instance)
	return r
}

func TestInstanceHandlerDocumentsAreBare(t *testing.T) {
	svc := &mockInstanceService{
		nodeInfo: &dto.NodeInfo{Version: "2.0", OpenRegistrations: true},
		instance: &dto.InstanceInfo{URI: "books.example.net", Registrations: true},
	}
	r := newInstanceRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nodeinfo/2.0", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var info dto.NodeInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.True(t, info.OpenRegistrations)
	assert.NotContains(t, w.Body.String(), `"data"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/instance", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"registrations":true`)
}

func TestInstanceHandlerWellKnown(t *testing.T) {
	r := newInstanceRouter(&mockInstanceService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/.well-known/nodeinfo", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://books.example.net/nodeinfo/2.0")
}

func TestInstanceHandlerError(t *testing.T) {
	r := newInstanceRouter(&mockInstanceService{err: errors.New("db down")})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nodeinfo/2.0", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
