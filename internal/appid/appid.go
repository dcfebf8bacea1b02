package appid

import (
	"context"
	"os"
	"sync"

	"github.com/fulmenhq/gofulmen/appidentity"
)

const (
	BinaryName = "vhdlcheck"
	EnvPrefix  = "VHDLCHECK_"
)

var (
	identityOnce sync.Once
	identity     *appidentity.Identity
)

// Get returns the application identity. An explicit identity file named by
// FULMEN_APP_IDENTITY_PATH wins over the built-in one.
func Get(ctx context.Context) (*appidentity.Identity, error) {
	if os.Getenv(appidentity.EnvIdentityPath) != "" {
		return appidentity.Get(ctx)
	}
	identityOnce.Do(func() {
		identity = &appidentity.Identity{
			BinaryName:  BinaryName,
			Vendor:      "vhdlcheck",
			EnvPrefix:   EnvPrefix,
			ConfigName:  BinaryName,
			Description: "AI-assisted VHDL code review and testbench generation",
		}
	})
	return identity, nil
}
