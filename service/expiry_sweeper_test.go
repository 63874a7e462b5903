package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (c *countingExpirer) ExpireOverdue(context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestExpirySweeper_RunsImmediatelyAndOnInterval(t *testing.T) {
	exp := &countingExpirer{}
	s := NewExpirySweeper(exp, 10*time.Millisecond)
	s.Start(context.Background())

	assert.Eventually(t, func() bool { return exp.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	after := exp.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, exp.calls.Load())
}

func TestExpirySweeper_KeepsRunningAfterErrors(t *testing.T) {
	exp := &countingExpirer{err: errors.New("mongo unavailable")}
	s := NewExpirySweeper(exp, 10*time.Millisecond)
	s.Start(context.Background())
	defer s.Stop()

	assert.Eventually(t, func() bool { return exp.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestExpirySweeper_Disabled(t *testing.T) {
	exp := &countingExpirer{}
	s := NewExpirySweeper(exp, 0)
	s.Start(context.Background())
	s.Stop()

	assert.Zero(t, exp.calls.Load())
}

func TestExpirySweeper_StopsWithContext(t *testing.T) {
	exp := &countingExpirer{}
	s := NewExpirySweeper(exp, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
	assert.Equal(t, int32(1), exp.calls.Load())
}
