package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SEAFOOD_TEST_MODE") == "" {
			_ = os.Setenv("SEAFOOD_TEST_MODE", "1")
		}
	})
}
