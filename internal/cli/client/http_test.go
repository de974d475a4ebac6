package client

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pointConfigAtEmptyDir ensures tests never pick up a real config.json.
func pointConfigAtEmptyDir(t *testing.T) {
	t.Helper()
	tmpDir := t.TempDir()
	oldGetConfigPath := getConfigPathFunc
	getConfigPathFunc = func() (string, error) {
		return filepath.Join(tmpDir, "config.json"), nil
	}
	t.Cleanup(func() { getConfigPathFunc = oldGetConfigPath })
}

func TestNewAPIClientWithCmd_FromEnv(t *testing.T) {
	pointConfigAtEmptyDir(t)
	t.Setenv(envAPIKey, "vld_env_key")
	t.Setenv(envAPIURL, "http://env.example:8080")

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, "vld_env_key", api.apiKey)
	assert.Equal(t, "http://env.example:8080", api.baseURL)
}

func TestNewAPIClientWithCmd_FlagOverridesEnv(t *testing.T) {
	pointConfigAtEmptyDir(t)
	t.Setenv(envAPIKey, "vld_env_key")
	t.Setenv(envAPIURL, "http://env.example:8080")

	cmd := &cobra.Command{}
	cmd.Flags().String("api-key", "", "")
	cmd.Flags().String("api-url", "", "")
	require.NoError(t, cmd.Flags().Set("api-key", "vld_flag_key"))
	require.NoError(t, cmd.Flags().Set("api-url", "http://flag.example:9090"))

	api, err := NewAPIClientWithCmd(cmd)
	require.NoError(t, err)
	assert.Equal(t, "vld_flag_key", api.apiKey)
	assert.Equal(t, "http://flag.example:9090", api.baseURL)
}

func TestNewAPIClientWithCmd_FromGlobalConfig(t *testing.T) {
	pointConfigAtEmptyDir(t)
	t.Setenv(envAPIKey, "")
	t.Setenv(envAPIURL, "")

	oldGetConfigDir := getConfigDirFunc
	getConfigDirFunc = func() (string, error) {
		path, _ := getConfigPathFunc()
		return filepath.Dir(path), nil
	}
	defer func() { getConfigDirFunc = oldGetConfigDir }()

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{
		APIKey: "vld_config_key",
		APIURL: "http://config.example:7070",
	}))

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, "vld_config_key", api.apiKey)
	assert.Equal(t, "http://config.example:7070", api.baseURL)
}

func TestNewAPIClientWithCmd_NoKey(t *testing.T) {
	pointConfigAtEmptyDir(t)
	t.Setenv(envAPIKey, "")
	t.Setenv(envAPIURL, "")

	_, err := NewAPIClientWithCmd(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), envAPIKey)
}

func TestNewAPIClientWithCmd_DefaultURL(t *testing.T) {
	pointConfigAtEmptyDir(t)
	t.Setenv(envAPIKey, "vld_env_key")
	t.Setenv(envAPIURL, "")

	api, err := NewAPIClientWithCmd(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultAPIURL, api.baseURL)
}

func TestAPIClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/workspaces", r.URL.Path)
		assert.Equal(t, "Bearer vld_test_key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [{"id": "ws-1", "name": "Engineering"}]}`))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig("vld_test_key", server.URL)
	require.NoError(t, err)

	resp, err := api.Get("/workspaces")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id": "ws-1", "name": "Engineering"}]`, string(resp.Data))
}

func TestAPIClient_PostBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		assert.JSONEq(t, `{"name": "Support"}`, string(body))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data": {"id": "ws-2", "name": "Support"}}`))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig("vld_test_key", server.URL)
	require.NoError(t, err)

	resp, err := api.Post("/workspaces", map[string]string{"name": "Support"})
	require.NoError(t, err)
	assert.Contains(t, string(resp.Data), "ws-2")
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "teammate not found"}`))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig("vld_test_key", server.URL)
	require.NoError(t, err)

	_, err = api.Get("/teammates/unknown")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "teammate not found", apiErr.Message)
}

func TestAPIClient_ErrorResponseNonJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	api, err := NewAPIClientWithConfig("vld_test_key", server.URL)
	require.NoError(t, err)

	_, err = api.Get("/health")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{StatusCode: 403, Message: "revoked key"}
	assert.Equal(t, "API error (403): revoked key", err.Error())
}
