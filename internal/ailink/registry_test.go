package ailink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vhdlcheck/vhdlcheck/internal/ailink/driver"
	"github.com/vhdlcheck/vhdlcheck/internal/ailink/driver/anthropic"
	"github.com/vhdlcheck/vhdlcheck/internal/ailink/driver/gemini"
)

func TestResolveUnknownModel(t *testing.T) {
	reg := NewRegistry(Config{})
	_, err := reg.Resolve("gpt-4o")
	require.ErrorIs(t, err, ErrUnknownModel)
}

func TestResolveBuildsProviderDrivers(t *testing.T) {
	reg := NewRegistry(Config{
		DefaultTimeout: 30 * time.Second,
		Providers: map[string]ProviderConfig{
			"anthropic": {APIKey: "a-key"},
			"google":    {APIKey: "g-key", BaseURL: "http://localhost:9999"},
		},
	})

	res, err := reg.Resolve("claude-opus-4-1")
	require.NoError(t, err)
	require.Equal(t, "anthropic", res.ProviderID)
	client, ok := res.Driver.(*anthropic.Client)
	require.True(t, ok)
	require.Equal(t, "a-key", client.APIKey)
	require.Equal(t, 30*time.Second, client.Timeout)

	again, err := reg.Resolve("claude-haiku-4-5")
	require.NoError(t, err)
	require.Same(t, res.Driver, again.Driver)

	res, err = reg.Resolve("gemini-2.5-flash")
	require.NoError(t, err)
	gc, ok := res.Driver.(*gemini.Client)
	require.True(t, ok)
	require.Equal(t, "http://localhost:9999", gc.BaseURL)
}

func TestResolveWithoutCredentials(t *testing.T) {
	reg := NewRegistry(Config{})
	_, err := reg.Resolve("gemini-2.5-pro")
	require.ErrorIs(t, err, driver.ErrMissingAPIKey)
	require.False(t, reg.Configured("google"))
}

func TestSelectCredentialRoundRobin(t *testing.T) {
	reg := NewRegistry(Config{Providers: map[string]ProviderConfig{
		"anthropic": {
			SelectionPolicy: "round_robin",
			Credentials: []CredentialConfig{
				{Enabled: true, Label: "one", APIKey: "k1", Priority: 1},
				{Enabled: true, Label: "two", APIKey: "k2", Priority: 1},
				{Enabled: true, Label: "low", APIKey: "k3", Priority: 0},
			},
		},
	}})

	var labels []string
	for i := 0; i < 4; i++ {
		res, err := reg.Resolve("claude-haiku-4-5")
		require.NoError(t, err)
		labels = append(labels, res.Credential)
	}
	require.Equal(t, []string{"one", "two", "one", "two"}, labels)
}

func TestSelectCredentialDefaultLabel(t *testing.T) {
	cfg := ProviderConfig{
		DefaultCredential: "backup",
		Credentials: []CredentialConfig{
			{Enabled: true, Label: "primary", APIKey: "k1", Priority: 5},
			{Enabled: true, Label: "backup", APIKey: "k2"},
			{Enabled: false, Label: "off", APIKey: "k3", Priority: 9},
		},
	}
	cred, key, err := selectCredential(cfg, nil)
	require.NoError(t, err)
	require.Equal(t, "backup", key)
	require.Equal(t, "k2", cred.APIKey)

	cfg.DefaultCredential = ""
	cred, _, err = selectCredential(cfg, nil)
	require.NoError(t, err)
	require.Equal(t, "k1", cred.APIKey)
}

func TestSetDriverOverrides(t *testing.T) {
	reg := NewRegistry(Config{})
	fake := &fakeDriver{}
	reg.SetDriver("google", fake)

	res, err := reg.Resolve("gemini-3-pro-preview")
	require.NoError(t, err)
	require.Same(t, fake, res.Driver)
	require.True(t, reg.Configured("google"))
}

func TestConfigTimeoutClamp(t *testing.T) {
	require.Equal(t, DefaultTimeout, Config{}.Timeout())
	require.Equal(t, MaxTimeout, Config{DefaultTimeout: time.Hour}.Timeout())
	require.Equal(t, 10*time.Second, Config{DefaultTimeout: 10 * time.Second}.Timeout())
}
