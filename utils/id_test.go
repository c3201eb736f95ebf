package utils

import (
	"regexp"
	"sync"
	"testing"
)

func TestNewRequestIDFormat(t *testing.T) {
	re := regexp.MustCompile(`^\d+-[0-9a-f]{8}$`)
	id := NewRequestID()
	if !re.MatchString(id) {
		t.Errorf("id = %q, want <毫秒时间戳>-<8位随机后缀>", id)
	}
}

func TestNewRequestIDUnique(t *testing.T) {
	const n = 1000
	var mu sync.Mutex
	seen := make(map[string]bool, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := NewRequestID()
			mu.Lock()
			defer mu.Unlock()
			if seen[id] {
				t.Errorf("duplicate id %q", id)
			}
			seen[id] = true
		}()
	}
	wg.Wait()
}
