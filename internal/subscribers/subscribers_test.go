package subscribers

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Register(t *testing.T) {
	r := New()

	assert.True(t, r.Register(1, 100))
	assert.False(t, r.Register(1, 101), "re-registering updates the chat")
	assert.True(t, r.Register(2, 200))

	assert.Equal(t, []Subscriber{
		{UserID: 1, ChatID: 101},
		{UserID: 2, ChatID: 200},
	}, r.List())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_List(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, New().List())
	})

	t.Run("snapshot is detached", func(t *testing.T) {
		r := New()
		r.Register(1, 100)

		snapshot := r.List()
		r.Register(2, 200)

		assert.Len(t, snapshot, 1)
	})
}

func TestRegistry_concurrentAccess(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := range int64(50) {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Register(i, i*10)
		}()
		go func() {
			defer wg.Done()
			_ = r.List()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, r.Len())
}
