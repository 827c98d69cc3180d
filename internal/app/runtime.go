package app

import (
	"os"
	"sync"
	"sync/atomic"
)

const testModeEnv = "ODYSSEY_TEST_MODE"

var (
	testModeFlag atomic.Bool
	testModeOnce sync.Once
)

func detectTestMode() {
	testModeFlag.Store(os.Getenv(testModeEnv) == "1")
}

// InTestMode reports whether binaries should exit before touching Postgres,
// Redis or the network.
func InTestMode() bool {
	testModeOnce.Do(detectTestMode)
	return testModeFlag.Load()
}

// RefreshTestMode re-reads ODYSSEY_TEST_MODE after the environment changed.
func RefreshTestMode() {
	testModeOnce.Do(func() {})
	detectTestMode()
}
