package workerpool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/vesselworks/shipyard/workerpool"
)

type WorkerPoolTestSuite struct {
	suite.Suite
}

func TestWorkerPoolSuite(t *testing.T) {
	suite.Run(t, &WorkerPoolTestSuite{})
}

func (s *WorkerPoolTestSuite) TestSubmitRunsTasks() {
	ctx := context.Background()
	pool, err := workerpool.New(ctx, workerpool.WithCapacity(4))
	s.Require().NoError(err)
	defer pool.Shutdown()

	var count atomic.Int64
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		s.Require().NoError(pool.Submit(ctx, func() {
			defer wg.Done()
			count.Add(1)
		}))
	}
	wg.Wait()
	s.Require().EqualValues(10, count.Load())
}

func (s *WorkerPoolTestSuite) TestSubmitRejectsCanceledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	pool, err := workerpool.New(ctx, workerpool.WithCapacity(1))
	s.Require().NoError(err)
	defer pool.Shutdown()

	cancel()
	s.Require().Error(pool.Submit(ctx, func() {}))
}

func (s *WorkerPoolTestSuite) TestMultiPool() {
	ctx := context.Background()
	pool, err := workerpool.New(ctx,
		workerpool.WithPoolCount(2),
		workerpool.WithCapacity(2),
		workerpool.WithExpiryDuration(time.Second),
	)
	s.Require().NoError(err)
	defer pool.Shutdown()

	var wg sync.WaitGroup
	wg.Add(1)
	s.Require().NoError(pool.Submit(ctx, wg.Done))
	wg.Wait()
}

func (s *WorkerPoolTestSuite) TestPipeRoundTrip() {
	ctx := context.Background()
	pipe := workerpool.NewPipeWithBuffer[int](4)

	s.Require().NoError(pipe.WriteResult(ctx, 1))
	s.Require().NoError(pipe.WriteResult(ctx, 2))
	pipe.Close()

	var seen []int
	err := workerpool.Consume(ctx, pipe, func(v int) { seen = append(seen, v) })
	s.Require().NoError(err)
	s.Require().Equal([]int{1, 2}, seen)
}

func (s *WorkerPoolTestSuite) TestPipeErrorStopsConsumer() {
	ctx := context.Background()
	pipe := workerpool.NewPipeWithBuffer[int](4)

	boom := errors.New("boom")
	s.Require().NoError(pipe.WriteResult(ctx, 1))
	s.Require().NoError(pipe.WriteError(ctx, boom))
	pipe.Close()

	var seen []int
	err := workerpool.Consume(ctx, pipe, func(v int) { seen = append(seen, v) })
	s.Require().ErrorIs(err, boom)
	s.Require().Equal([]int{1}, seen)
}

func (s *WorkerPoolTestSuite) TestPipeWriteAfterCloseFails() {
	ctx := context.Background()
	pipe := workerpool.NewPipe[int]()
	pipe.Close()

	s.Require().ErrorIs(pipe.WriteResult(ctx, 1), workerpool.ErrResultChannelClosed)
	s.Require().ErrorIs(pipe.WriteError(ctx, errors.New("x")), workerpool.ErrResultChannelClosed)
}
