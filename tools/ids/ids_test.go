package ids

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserIDShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := NewUserID()
		require.Len(t, id, userIDLen)
		for _, r := range id {
			assert.True(t, strings.ContainsRune(userIDAlphabet, r), "unexpected rune %q in %s", r, id)
		}
	}
}

func TestNewUserIDUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		seen[NewUserID()] = struct{}{}
	}
	// 32^8 possible values; a collision in a thousand draws means the
	// generator is broken, not unlucky.
	assert.Len(t, seen, 1000)
}

func TestNewConnIDUniqueUnderConcurrency(t *testing.T) {
	const workers = 8
	const perWorker = 500

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]string, 0, perWorker)
			for j := 0; j < perWorker; j++ {
				ids = append(ids, NewConnID())
			}
			mu.Lock()
			for _, id := range ids {
				seen[id] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	for id := range seen {
		assert.True(t, strings.HasPrefix(id, "c-"))
		break
	}
}
