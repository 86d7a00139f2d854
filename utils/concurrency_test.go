package utils

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestURLSetNoDuplicates(t *testing.T) {
	s := NewURLSet()

	assert.True(t, s.Add("https://www.idealista.com/inmueble/1/"), "first Add should return true")
	assert.False(t, s.Add("https://www.idealista.com/inmueble/1/"), "second Add of same URL should return false")
	assert.Equal(t, 1, s.Size())
}

func TestURLSetCanonicalisesVariants(t *testing.T) {
	s := NewURLSet()

	s.Add("https://www.idealista.com/inmueble/1/")
	assert.True(t, s.Contains("https://WWW.idealista.com/inmueble/1?xtmc=foo#photos"))
	assert.False(t, s.Add("https://www.idealista.com/inmueble/1"))
	assert.False(t, s.Contains("https://www.idealista.com/inmueble/2/"))
}

func TestURLSetConcurrency(t *testing.T) {
	s := NewURLSet()
	var added int64

	pool := NewWorkerPool(10, 0)
	for i := 0; i < 100; i++ {
		pool.Submit(context.Background(), func(context.Context) {
			if s.Add("https://www.idealista.com/inmueble/same/") {
				atomic.AddInt64(&added, 1)
			}
		})
	}
	pool.Wait()

	assert.Equal(t, int64(1), added, "expected exactly 1 successful add")
}

func TestWorkerPoolRateLimit(t *testing.T) {
	rateLimitMs := 100
	pool := NewWorkerPool(1, rateLimitMs)

	var mu sync.Mutex
	var timestamps []time.Time

	for i := 0; i < 3; i++ {
		pool.Submit(context.Background(), func(context.Context) {
			mu.Lock()
			timestamps = append(timestamps, time.Now())
			mu.Unlock()
		})
	}
	pool.Wait()

	min := time.Duration(rateLimitMs) * time.Millisecond
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		assert.GreaterOrEqual(t, gap, min, "gap between job %d and %d", i-1, i)
	}
}

func TestWorkerPoolSubmitAfterCancel(t *testing.T) {
	pool := NewWorkerPool(1, 0)
	ctx, cancel := context.WithCancel(context.Background())

	block := make(chan struct{})
	assert.True(t, pool.Submit(ctx, func(context.Context) { <-block }))

	cancel()
	assert.False(t, pool.Submit(ctx, func(context.Context) {}))

	close(block)
	pool.Wait()
}
