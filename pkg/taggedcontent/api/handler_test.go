package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
	"github.com/tendant/tagged-content/pkg/taggedcontent/api"
	"github.com/tendant/tagged-content/pkg/taggedcontent/auth"
	repomemory "github.com/tendant/tagged-content/pkg/taggedcontent/repo/memory"
	memorystorage "github.com/tendant/tagged-content/pkg/taggedcontent/storage/memory"
)

func newServer(t *testing.T) (*httptest.Server, *taggedcontent.Repo) {
	t.Helper()

	signer, err := auth.New([]byte("test-secret"))
	require.NoError(t, err)

	repo, err := taggedcontent.New(
		taggedcontent.WithDatabase(repomemory.New()),
		taggedcontent.WithObjectStore(memorystorage.New()),
		taggedcontent.WithAuth(signer),
	)
	require.NoError(t, err)
	t.Cleanup(repo.Shutdown)

	server := httptest.NewServer(api.NewHandler(repo, nil).Routes())
	t.Cleanup(server.Close)
	return server, repo
}

func doJSON(t *testing.T, method, url, token string, body interface{}, out interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func signUpHTTP(t *testing.T, server *httptest.Server, name string) taggedcontent.SessionInfo {
	t.Helper()

	var session taggedcontent.SessionInfo
	resp := doJSON(t, http.MethodPost, server.URL+"/auth/signup", "", map[string]string{
		"username": name,
		"email":    name + "@example.com",
		"password": "password-" + name,
	}, &session)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return session
}

func TestSignUpAndLogin(t *testing.T) {
	server, _ := newServer(t)

	session := signUpHTTP(t, server, "walter")
	assert.NotEmpty(t, session.Token)

	var again taggedcontent.SessionInfo
	resp := doJSON(t, http.MethodPost, server.URL+"/auth/login", "", map[string]string{
		"email":    "walter@example.com",
		"password": "password-walter",
	}, &again)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, session.UserID, again.UserID)
}

func TestLoginFailureReturns401(t *testing.T) {
	server, _ := newServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTerminateSession(t *testing.T) {
	server, _ := newServer(t)
	session := signUpHTTP(t, server, "walter")

	resp := doJSON(t, http.MethodDelete, server.URL+"/auth/session", session.Token, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The terminated token no longer authenticates.
	resp = doJSON(t, http.MethodGet, server.URL+"/me", session.Token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// A fresh login works as before.
	var again taggedcontent.SessionInfo
	resp = doJSON(t, http.MethodPost, server.URL+"/auth/login", "", map[string]string{
		"email":    "walter@example.com",
		"password": "password-walter",
	}, &again)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthenticatedEndpointRejectsAnonymous(t *testing.T) {
	server, _ := newServer(t)

	resp := doJSON(t, http.MethodPost, server.URL+"/posts", "", map[string]string{}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPostFlow(t *testing.T) {
	server, _ := newServer(t)
	session := signUpHTTP(t, server, "walter")

	// Upload an object, then reference it from a post.
	req, err := http.NewRequest(http.MethodPost, server.URL+"/objects",
		strings.NewReader("media bytes"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var object taggedcontent.Object
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&object))

	var post taggedcontent.Post
	createResp := doJSON(t, http.MethodPost, server.URL+"/posts", session.Token,
		map[string]interface{}{
			"title":   "hello",
			"objects": []string{object.ID.String()},
		}, &post)
	require.Equal(t, http.StatusCreated, createResp.StatusCode)
	assert.Equal(t, "hello", post.Title)

	// Anyone can read it back.
	var got taggedcontent.Post
	getResp := doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/posts/%s", server.URL, post.ID), "", nil, &got)
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
	assert.Equal(t, post.ID, got.ID)

	// And stream the object's bytes.
	dataResp, err := http.Get(fmt.Sprintf("%s/objects/%s/data", server.URL, object.ID))
	require.NoError(t, err)
	defer dataResp.Body.Close()
	require.Equal(t, http.StatusOK, dataResp.StatusCode)
	data, err := io.ReadAll(dataResp.Body)
	require.NoError(t, err)
	assert.Equal(t, "media bytes", string(data))
}

func TestNotFoundMapsTo404(t *testing.T) {
	server, _ := newServer(t)

	resp := doJSON(t, http.MethodGet,
		server.URL+"/posts/00000000-0000-0000-0000-000000000001", "", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminEndpointRequiresAdmin(t *testing.T) {
	server, repo := newServer(t)
	session := signUpHTTP(t, server, "walter")

	resp := doJSON(t, http.MethodPost, server.URL+"/admin/prune", session.Token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.NoError(t, repo.GrantAdmin(t.Context(), session.UserID))

	resp = doJSON(t, http.MethodPost, server.URL+"/admin/prune", session.Token, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
