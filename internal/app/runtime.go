package app

import (
	"os"
	"strconv"
	"strings"
)

// TestModeEnv names the variable that keeps the binaries from dialing
// postgres, redis or the SMS gateway.
const TestModeEnv = "PARCELHUB_TEST_MODE"

// InTestMode reports whether a binary must return before touching the network.
// Any value strconv.ParseBool accepts as true enables it.
func InTestMode() bool {
	on, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(TestModeEnv)))
	return err == nil && on
}
