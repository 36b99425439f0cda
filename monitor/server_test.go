package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ntripcaster/caster/registry"
)

func newTestServer(t *testing.T) (*Server, *registry.Registry) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	reg := registry.New()
	return NewServer("", reg, "ntripcaster-test/1.0", logger), reg
}

func TestHandleListMountsEmpty(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/mounts", nil)
	rr := httptest.NewRecorder()
	server.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var mounts []registry.MountStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &mounts))
	assert.Empty(t, mounts)
}

func TestHandleListMountsReturnsRegisteredMounts(t *testing.T) {
	server, reg := newTestServer(t)
	require.NoError(t, reg.AddMount("mount1", registry.Credentials{Username: "u", Password: "p"}, nil, "STR;mount1;mount1;;;;;;;;;;;;;;;;", "pub-1"))

	req := httptest.NewRequest(http.MethodGet, "/mounts", nil)
	rr := httptest.NewRecorder()
	server.Handler.ServeHTTP(rr, req)

	var mounts []registry.MountStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &mounts))
	require.Len(t, mounts, 1)
	assert.Equal(t, "mount1", mounts[0].Name)
	assert.Equal(t, "pub-1", mounts[0].PublisherID)
}

func TestHandleGetMountNotFound(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/mounts/nosuch", nil)
	rr := httptest.NewRecorder()
	server.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandleGetMountFound(t *testing.T) {
	server, reg := newTestServer(t)
	require.NoError(t, reg.AddMount("mount1", registry.Credentials{Username: "u", Password: "p"}, nil, "STR;mount1;mount1;;;;;;;;;;;;;;;;", "pub-1"))

	req := httptest.NewRequest(http.MethodGet, "/mounts/mount1", nil)
	rr := httptest.NewRecorder()
	server.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var mount registry.MountStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &mount))
	assert.Equal(t, "mount1", mount.Name)
}

func TestHandleSourceTable(t *testing.T) {
	server, reg := newTestServer(t)
	require.NoError(t, reg.AddMount("mount1", registry.Credentials{Username: "u", Password: "p"}, nil, "STR;mount1;mount1;;;;;;;;;;;;;;;;", "pub-1"))

	req := httptest.NewRequest(http.MethodGet, "/sourcetable", nil)
	rr := httptest.NewRecorder()
	server.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "SOURCETABLE 200 OK")
	assert.Contains(t, body, "STR;mount1;mount1;")
	assert.Contains(t, body, "ENDSOURCETABLE")
}
