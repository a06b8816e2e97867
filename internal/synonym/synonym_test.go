package synonym

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	dict  map[string][]string
	err   error
	calls atomic.Int32
}

func (f *fakeSource) Load(ctx context.Context) (map[string][]string, error) {
	f.calls.Add(1)
	return f.dict, f.err
}

func TestLookupChinese(t *testing.T) {
	e, err := NewExpander()
	require.NoError(t, err)

	got := e.Lookup("有空", 8)
	assert.Contains(t, got, "有时间")

	assert.Empty(t, e.Lookup("不存在的词", 8))
}

func TestLookupLatinUsesThesaurus(t *testing.T) {
	e, err := NewExpander()
	require.NoError(t, err)

	got := e.Lookup("revenue", 8)
	assert.Contains(t, got, "tax income")
	assert.NotContains(t, got, "revenue")
}

func TestLookupTopN(t *testing.T) {
	e, err := NewExpander()
	require.NoError(t, err)

	assert.LessOrEqual(t, len(e.Lookup("car", 2)), 2)
	assert.Nil(t, e.Lookup("car", 0))
}

func TestReloadGates(t *testing.T) {
	src := &fakeSource{dict: map[string][]string{"新词": {"同义"}}}
	e, err := NewExpander(
		WithSource(src),
		WithReloadPolicy(ReloadPolicy{MinLookups: 5, MinInterval: time.Millisecond}),
	)
	require.NoError(t, err)

	// below the lookup gate nothing reloads
	for i := 0; i < 4; i++ {
		e.Lookup("检索", 8)
	}
	assert.Equal(t, int32(0), src.calls.Load())

	time.Sleep(2 * time.Millisecond)
	e.Lookup("检索", 8)
	assert.Equal(t, int32(1), src.calls.Load())

	// the swapped-in dictionary serves lookups
	assert.Equal(t, []string{"同义"}, e.Lookup("新词", 8))
}

func TestReloadFailureKeepsDictionary(t *testing.T) {
	src := &fakeSource{err: assert.AnError}
	e, err := NewExpander(
		WithSource(src),
		WithReloadPolicy(ReloadPolicy{MinLookups: 1, MinInterval: 0}),
	)
	require.NoError(t, err)

	before := e.Size()
	e.Lookup("检索", 8)
	e.Lookup("检索", 8)
	assert.Equal(t, before, e.Size())
	assert.NotEmpty(t, e.Lookup("有空", 8))
}

func TestConcurrentLookupAndSwap(t *testing.T) {
	src := &fakeSource{dict: map[string][]string{"检索": {"搜索"}}}
	e, err := NewExpander(
		WithSource(src),
		WithReloadPolicy(ReloadPolicy{MinLookups: 1, MinInterval: 0}),
	)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				e.Lookup("检索", 8)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"搜索"}, e.Lookup("检索", 8))
}
