package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hhvacancies/internal/scheduler"
	"hhvacancies/internal/scraper"
	"hhvacancies/pkg/logging"
)

type countingRunner struct {
	calls   atomic.Int32
	block   chan struct{}
	started chan struct{}
	err     error
}

func (r *countingRunner) Run(context.Context) (scraper.RunReport, error) {
	r.calls.Add(1)
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}
	return scraper.RunReport{RunID: "test"}, r.err
}

func TestRunOnce(t *testing.T) {
	r := &countingRunner{}
	s := scheduler.New(r, 6, logging.Nop())

	assert.True(t, s.RunOnce(context.Background()))
	assert.EqualValues(t, 1, r.calls.Load())
}

func TestRunOnce_ErrorIsLoggedNotPropagated(t *testing.T) {
	r := &countingRunner{err: errors.New("hh.ru down")}
	s := scheduler.New(r, 6, logging.Nop())

	assert.True(t, s.RunOnce(context.Background()))
}

func TestRunOnce_SkipsOverlappingRun(t *testing.T) {
	r := &countingRunner{block: make(chan struct{}), started: make(chan struct{}, 1)}
	s := scheduler.New(r, 6, logging.Nop())

	done := make(chan bool)
	go func() { done <- s.RunOnce(context.Background()) }()
	<-r.started

	assert.False(t, s.RunOnce(context.Background()))
	close(r.block)
	assert.True(t, <-done)
	assert.EqualValues(t, 1, r.calls.Load())
}

func TestStart_FiresOnSchedule(t *testing.T) {
	r := &countingRunner{}
	s := scheduler.NewWithSpec(r, "@every 1s", logging.Nop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return r.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestStart_BadSpec(t *testing.T) {
	s := scheduler.NewWithSpec(&countingRunner{}, "every now and then", logging.Nop())
	assert.Error(t, s.Start(context.Background()))
}
