package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *mux.Router) {
	t.Helper()
	r := mux.NewRouter()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, r
}

func TestUploadOK(t *testing.T) {
	srv, r := newTestServer(t)
	var gotAuth string
	var gotData []byte
	r.HandleFunc("/api/datasets/", func(w http.ResponseWriter, req *http.Request) {
		gotAuth = req.Header.Get("Authorization")
		f, hdr, err := req.FormFile("uploadfile")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "dataset.zdc", hdr.Filename)
		gotData, _ = io.ReadAll(f)
		w.WriteHeader(http.StatusCreated)
	}).Methods(http.MethodPost)

	c := New(srv.URL, "secret", nil)
	require.NoError(t, c.Upload(context.Background(), []byte("archive bytes")))
	assert.Equal(t, "Token secret", gotAuth)
	assert.Equal(t, []byte("archive bytes"), gotData)
}

func TestUploadStatusErrors(t *testing.T) {
	for _, tc := range []struct {
		status  int
		message string
	}{
		{http.StatusForbidden, "unauthorized access"},
		{http.StatusConflict, "uuid is already existing"},
		{http.StatusUnsupportedMediaType, "invalid container format"},
		{http.StatusInternalServerError, "Internal Server Error"},
	} {
		srv, r := newTestServer(t)
		r.HandleFunc("/api/datasets/", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(tc.status)
		}).Methods(http.MethodPost)

		err := New(srv.URL, "secret", nil).Upload(context.Background(), []byte("x"))
		var herr *HTTPError
		require.ErrorAs(t, err, &herr, "status %d", tc.status)
		assert.Equal(t, tc.status, herr.StatusCode)
		assert.Contains(t, herr.Error(), tc.message)
	}
}

func TestUploadInvalidContent(t *testing.T) {
	srv, r := newTestServer(t)
	r.HandleFunc("/api/datasets/", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"id": "replacement-uuid", "static": true})
	}).Methods(http.MethodPost)

	err := New(srv.URL, "secret", nil).Upload(context.Background(), []byte("x"))
	var ierr *InvalidContentError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "replacement-uuid", ierr.Replacement)
	assert.True(t, ierr.Static)
}

func TestUploadInvalidContentWithoutBody(t *testing.T) {
	srv, r := newTestServer(t)
	r.HandleFunc("/api/datasets/", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}).Methods(http.MethodPost)

	err := New(srv.URL, "secret", nil).Upload(context.Background(), []byte("x"))
	var ierr *InvalidContentError
	require.ErrorAs(t, err, &ierr)
	assert.Empty(t, ierr.Replacement)
}

func TestDownloadOK(t *testing.T) {
	srv, r := newTestServer(t)
	r.HandleFunc("/api/datasets/{id}/download/", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Token secret", req.Header.Get("Authorization"))
		assert.Equal(t, "some-uuid", mux.Vars(req)["id"])
		w.Write([]byte("archive bytes"))
	}).Methods(http.MethodGet)

	data, replaced, err := New(srv.URL, "secret", nil).Download(context.Background(), "some-uuid")
	require.NoError(t, err)
	assert.False(t, replaced)
	assert.Equal(t, []byte("archive bytes"), data)
}

func TestDownloadReplaced(t *testing.T) {
	srv, r := newTestServer(t)
	r.HandleFunc("/api/datasets/{id}/download/", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusMovedPermanently)
		w.Write([]byte("replacement bytes"))
	}).Methods(http.MethodGet)

	data, replaced, err := New(srv.URL, "secret", nil).Download(context.Background(), "old-uuid")
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.Equal(t, []byte("replacement bytes"), data)
}

func TestDownloadStatusErrors(t *testing.T) {
	for _, tc := range []struct {
		status  int
		message string
	}{
		{http.StatusNoContent, "deleted dataset"},
		{http.StatusForbidden, "unauthorized access"},
		{http.StatusNotFound, "unknown dataset"},
	} {
		srv, r := newTestServer(t)
		r.HandleFunc("/api/datasets/{id}/download/", func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(tc.status)
		}).Methods(http.MethodGet)

		_, _, err := New(srv.URL, "secret", nil).Download(context.Background(), "x")
		var herr *HTTPError
		require.ErrorAs(t, err, &herr, "status %d", tc.status)
		assert.Equal(t, tc.status, herr.StatusCode)
		assert.Contains(t, herr.Error(), tc.message)
	}
}

func TestConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New(url, "secret", nil).Upload(context.Background(), []byte("x"))
	var cerr *ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.NotNil(t, cerr.Unwrap())

	_, _, err = New(url, "secret", nil).Download(context.Background(), "x")
	assert.ErrorAs(t, err, &cerr)
}
