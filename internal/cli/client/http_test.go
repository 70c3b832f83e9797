package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	api, err := NewAPIClientWithConfig("rcl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", server.URL)
	require.NoError(t, err)
	return api
}

func TestAPIClient_Get_Success(t *testing.T) {
	var gotAuth, gotPath string
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"id":"item-123","title":"Deploy checklist"}}`))
	})

	resp, err := api.Get("/v1/items/item-123")
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, "Bearer rcl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", gotAuth)
	assert.Equal(t, "/v1/items/item-123", gotPath)
	assert.True(t, resp.Success)

	var item Item
	require.NoError(t, json.Unmarshal(resp.Data, &item))
	assert.Equal(t, "item-123", item.ID)
	assert.Equal(t, "Deploy checklist", item.Title)
}

func TestAPIClient_Post_SendsJSONBody(t *testing.T) {
	var gotMethod, gotContentType string
	var gotBody map[string]interface{}
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"success":true,"data":{"id":"item-1"}}`))
	})

	_, err := api.Post("/v1/items", map[string]string{"title": "Notes"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "Notes", gotBody["title"])
}

func TestAPIClient_ErrorEnvelope(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":{"code":"NOT_FOUND","message":"item not found"}}`))
	})

	resp, err := api.Get("/v1/items/missing")
	require.Error(t, err)
	assert.Nil(t, resp)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "NOT_FOUND", apiErr.Code)
	assert.Equal(t, "item not found", apiErr.Message)
	assert.Equal(t, "API error (404 NOT_FOUND): item not found", apiErr.Error())
}

func TestAPIClient_SuccessFalseWithoutErrorStatus(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":{"code":"INTERNAL_ERROR","message":"something broke"}}`))
	})

	_, err := api.Get("/v1/items")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INTERNAL_ERROR", apiErr.Code)
}

func TestAPIClient_NonJSONErrorBody(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	})

	_, err := api.Get("/v1/items")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Empty(t, apiErr.Code)
	assert.Equal(t, "API error (502): bad gateway", apiErr.Error())
}

func TestAPIClient_DownloadFile(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	})

	outputPath := filepath.Join(t.TempDir(), "backup.json")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	err := api.DownloadFile(server.URL+"/exports/key", outputPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, string(data))
}

func TestAPIClient_DownloadFile_FailureStatus(t *testing.T) {
	api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	err := api.DownloadFile(server.URL+"/exports/key", filepath.Join(t.TempDir(), "out.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestNewAPIClientWithCmd_EnvFallback(t *testing.T) {
	t.Setenv(envAPIKey, "rcl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	t.Setenv(envAPIURL, "http://env:8080")

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://env:8080", api.baseURL)
}

func TestNewAPIClientWithCmd_NoCredentials(t *testing.T) {
	t.Setenv(envAPIKey, "")
	t.Setenv(envAPIURL, "")

	configPath := filepath.Join(t.TempDir(), "config.json")
	oldGetConfigPath := getConfigPathFunc
	getConfigPathFunc = func() (string, error) {
		return configPath, nil
	}
	defer func() { getConfigPathFunc = oldGetConfigPath }()

	_, err := NewAPIClientWithCmd(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RECALL_API_KEY not set")
}

func TestNewAPIClientWithCmd_DefaultURL(t *testing.T) {
	t.Setenv(envAPIKey, "rcl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	t.Setenv(envAPIURL, "")

	configPath := filepath.Join(t.TempDir(), "config.json")
	oldGetConfigPath := getConfigPathFunc
	getConfigPathFunc = func() (string, error) {
		return configPath, nil
	}
	defer func() { getConfigPathFunc = oldGetConfigPath }()

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultAPIURL, api.baseURL)
}
