package utils

import "sync"

var mu sync.Mutex

// ExecuteWithMutex runs fn while holding the process wide GDAL lock. Dataset handles are not
// shared between goroutines, but driver state is.
func ExecuteWithMutex(fn func()) {
	mu.Lock()
	defer mu.Unlock()
	fn()
}
