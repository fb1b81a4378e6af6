package history

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndSnapshotOrder(t *testing.T) {
	c := NewConversation()
	c.Append(
		Turn{Role: RoleUser, Content: "hello"},
		Turn{Role: RoleAssistant, Content: "hi there"},
	)
	c.Append(Turn{Role: RoleUser, Content: "how are you"})

	turns := c.Snapshot()
	require.Len(t, turns, 3)
	assert.Equal(t, "hello", turns[0].Content)
	assert.Equal(t, RoleAssistant, turns[1].Role)
	assert.Equal(t, "how are you", turns[2].Content)
}

func TestSnapshotIsACopy(t *testing.T) {
	c := NewConversation()
	c.Append(Turn{Role: RoleUser, Content: "original"})

	snap := c.Snapshot()
	snap[0].Content = "mutated"

	assert.Equal(t, "original", c.Snapshot()[0].Content)
}

func TestReset(t *testing.T) {
	c := NewConversation()
	c.Append(Turn{Role: RoleUser, Content: "a"}, Turn{Role: RoleAssistant, Content: "b"})
	require.Equal(t, 2, c.Len())

	c.Reset()
	assert.Zero(t, c.Len())
	assert.Empty(t, c.Snapshot())
}

func TestConcurrentAppends(t *testing.T) {
	c := NewConversation()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Append(Turn{Role: RoleUser, Content: "q"}, Turn{Role: RoleAssistant, Content: "a"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, c.Len())
}
