package sync

import "testing"

func TestRWMutex(t *testing.T) {
	var mu RWMutex
	shared := 0

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			mu.Lock()
			shared++
			mu.Unlock()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	mu.RLock()
	defer mu.RUnlock()
	if shared != 4 {
		t.Fatalf("shared = %d, want 4", shared)
	}
}
