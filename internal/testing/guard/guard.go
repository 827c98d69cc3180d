// Package guard switches the binaries into test mode. Test packages that call
// a main() import it for its side effect:
//
//	import _ "github.com/odyssey-photos/odyssey-photos/internal/testing/guard"
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("ODYSSEY_TEST_MODE") == "" {
			_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
		}
	})
}
