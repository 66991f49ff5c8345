package cpupool

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
)

func TestSubmitReturnsResult(t *testing.T) {
	p := New(2)
	defer p.Close()

	v, err := p.Submit(context.Background(), func() (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestPanicBecomesOtherAndPoolSurvives(t *testing.T) {
	p := New(2)
	defer p.Close()

	_, err := p.Submit(context.Background(), func() (any, error) {
		panic("parse explosion")
	})
	require.Error(t, err)
	assert.Equal(t, domain.KindOther, domain.KindOf(err))
	assert.Contains(t, err.Error(), "parse worker panicked")

	// The pool keeps accepting work after a panic.
	v, err := p.Submit(context.Background(), func() (any, error) {
		return "still alive", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "still alive", v)
}

func TestConcurrentSubmits(t *testing.T) {
	p := New(4)
	defer p.Close()

	var wg sync.WaitGroup
	results := make([]int, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := p.Submit(context.Background(), func() (any, error) {
				return i * 2, nil
			})
			if assert.NoError(t, err) {
				results[i] = v.(int)
			}
		}()
	}
	wg.Wait()

	for i, v := range results {
		assert.Equal(t, i*2, v)
	}
}

func TestDefaultWorkersClamped(t *testing.T) {
	n := DefaultWorkers()
	assert.GreaterOrEqual(t, n, 2)
	assert.LessOrEqual(t, n, 8)
}

func TestWorkerCount(t *testing.T) {
	p := New(3)
	defer p.Close()
	assert.Equal(t, 3, p.WorkerCount())
}

func TestSubmitAfterClose(t *testing.T) {
	p := New(2)
	p.Close()

	_, err := p.Submit(context.Background(), func() (any, error) { return nil, nil })
	assert.Error(t, err)
}

func TestRunTyped(t *testing.T) {
	p := New(2)
	defer p.Close()

	v, err := Run(context.Background(), p, func() (string, error) {
		return "typed", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "typed", v)
}
