package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionHandlerIncludesIdentityMetadata(t *testing.T) {
	SetVersionInfo("1.2.3", "abcd123", "2025-11-07T12:00:00Z")
	SetAppIdentity(&appidentity.Identity{BinaryName: "vhdlcheck"})
	t.Cleanup(func() { SetAppIdentity(nil) })

	rec := httptest.NewRecorder()
	VersionHandler(rec, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp VersionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.Equal(t, "vhdlcheck", resp.App.Name)
	assert.Equal(t, "1.2.3", resp.App.Version)
	assert.Equal(t, "abcd123", resp.App.Commit)
	assert.NotEmpty(t, resp.Dependencies.Gofulmen)
	assert.NotEmpty(t, resp.Dependencies.Crucible)
	assert.ElementsMatch(t, []string{"anthropic", "google"}, resp.Review.Providers)
	assert.Positive(t, resp.Review.Models)
	assert.NotEmpty(t, resp.Review.DefaultModel)
}

func TestCurrentVersionFallsBackToExecutableName(t *testing.T) {
	SetAppIdentity(nil)

	info := CurrentVersion()
	assert.NotEmpty(t, info.App.Name)
	assert.NotEqual(t, "unknown", info.App.Name)
	assert.Contains(t, info.Runtime.Platform, "/")
}
