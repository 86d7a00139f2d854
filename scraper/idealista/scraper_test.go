package idealista

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idealista-pricing/config"
	"idealista-pricing/utils"
)

type fakeRenderer struct {
	mu     sync.Mutex
	pages  map[string]string
	delays map[string]time.Duration
	calls  []string
}

func (f *fakeRenderer) Render(_ context.Context, url string) (string, error) {
	time.Sleep(f.delays[url])
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	html, ok := f.pages[url]
	if !ok {
		return "", errors.New("404")
	}
	return html, nil
}

func TestScraperCollectsCompletePagesOnly(t *testing.T) {
	fixture, err := os.ReadFile("testdata/listing.html")
	require.NoError(t, err)

	r := &fakeRenderer{pages: map[string]string{
		"https://www.idealista.com/inmueble/1/": string(fixture),
		"https://www.idealista.com/inmueble/2/": "<html><body>captcha</body></html>",
	}}
	cfg := &config.Config{MaxConcurrency: 2, RateLimitMs: 0, SizeFieldIndex: 0}
	s := New(cfg, utils.NewNopLogger(), r)

	var done int
	var mu sync.Mutex
	listings, failures := s.Scrape(context.Background(), []string{
		"https://www.idealista.com/inmueble/1/",
		"https://www.idealista.com/inmueble/1/?xtmc=dup",
		"https://www.idealista.com/inmueble/2/",
		"https://www.idealista.com/inmueble/3/",
		"  ",
	}, func() {
		mu.Lock()
		done++
		mu.Unlock()
	})

	require.Len(t, listings, 1)
	assert.Equal(t, 425000.0, listings[0].Price)

	require.Len(t, failures, 2)
	assert.Equal(t, "https://www.idealista.com/inmueble/2/", failures[0].URL)
	assert.Equal(t, "https://www.idealista.com/inmueble/3/", failures[1].URL)
	for _, f := range failures {
		if f.URL == "https://www.idealista.com/inmueble/2/" {
			assert.ErrorIs(t, f.Err, ErrExtraction)
		}
	}

	assert.Len(t, r.calls, 3, "duplicate URL rendered once")
	assert.Equal(t, 3, done)
}

func TestScraperKeepsInputOrder(t *testing.T) {
	fixture, err := os.ReadFile("testdata/listing.html")
	require.NoError(t, err)

	urls := []string{
		"https://www.idealista.com/inmueble/1/",
		"https://www.idealista.com/inmueble/2/",
		"https://www.idealista.com/inmueble/3/",
	}
	r := &fakeRenderer{
		pages:  map[string]string{},
		delays: map[string]time.Duration{urls[0]: 200 * time.Millisecond},
	}
	for i, u := range urls {
		r.pages[u] = strings.ReplaceAll(string(fixture), "93487123", strconv.Itoa(i+1))
	}

	cfg := &config.Config{MaxConcurrency: 3, RateLimitMs: 0, SizeFieldIndex: 0}
	listings, failures := New(cfg, utils.NewNopLogger(), r).Scrape(context.Background(), urls, nil)

	require.Empty(t, failures)
	require.Len(t, listings, 3)
	for i, l := range listings {
		assert.Equal(t, urls[i], l.URL, "the slow first page stays first")
	}
}
