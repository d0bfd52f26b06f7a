// Package guard puts the process into test mode when imported for side
// effects, so the binaries and HTTP wiring can be exercised without
// postgres, redis or a real SMS gateway.
package guard

import (
	"os"

	"github.com/parcelhub/parcelhub/internal/app"
)

// JWTSecret is the signing secret installed when none is configured.
const JWTSecret = "test-secret-test-secret-test-secret"

func init() {
	_ = os.Setenv(app.TestModeEnv, "1")
	if os.Getenv("JWT_SECRET") == "" {
		_ = os.Setenv("JWT_SECRET", JWTSecret)
	}
	_ = os.Unsetenv("SMS_GATEWAY_URL")
}
