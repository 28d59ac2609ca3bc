package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *captureDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *captureDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}

type blockingCollector struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingCollector) Run(context.Context) (RunResult, error) {
	b.calls.Add(1)
	<-b.release
	return RunResult{}, nil
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	t.Parallel()

	driver := &captureDriver{}
	collector := &blockingCollector{release: make(chan struct{})}
	s := NewScheduler(driver, collector, nil)
	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		driver.job(testNow)
	}()
	assert.Eventually(t, func() bool { return collector.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	driver.job(testNow.Add(time.Minute))
	assert.Equal(t, int32(1), collector.calls.Load())

	close(collector.release)
	wg.Wait()

	driver.job(testNow.Add(2 * time.Minute))
	assert.Equal(t, int32(2), collector.calls.Load())

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, driver.stopped)
}
