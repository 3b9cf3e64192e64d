// Copyright 2026 The Argonode Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockAfterFiresOnAdvance(t *testing.T) {
	clock := Fake(epoch)
	channel := clock.After(3 * time.Second)

	clock.Advance(2 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	clock.Advance(time.Second)
	select {
	case fired := <-channel:
		if want := epoch.Add(3 * time.Second); !fired.Equal(want) {
			t.Errorf("fired at %v, want %v", fired, want)
		}
	default:
		t.Fatal("After did not fire once the deadline passed")
	}
}

func TestFakeClockAfterZeroDuration(t *testing.T) {
	clock := Fake(epoch)
	select {
	case <-clock.After(0):
	default:
		t.Fatal("After(0) should be ready immediately")
	}
	if clock.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", clock.PendingCount())
	}
}

func TestFakeClockAfterFunc(t *testing.T) {
	clock := Fake(epoch)
	var calls atomic.Int32
	clock.AfterFunc(90*time.Second, func() { calls.Add(1) })

	clock.Advance(89 * time.Second)
	if calls.Load() != 0 {
		t.Fatal("callback ran early")
	}
	clock.Advance(time.Second)
	if calls.Load() != 1 {
		t.Fatalf("callback ran %d times, want 1", calls.Load())
	}
	clock.Advance(time.Hour)
	if calls.Load() != 1 {
		t.Fatalf("one-shot callback repeated: %d calls", calls.Load())
	}
}

func TestFakeClockAfterFuncStop(t *testing.T) {
	clock := Fake(epoch)
	var calls atomic.Int32
	timer := clock.AfterFunc(time.Second, func() { calls.Add(1) })

	if !timer.Stop() {
		t.Fatal("Stop on a pending timer should return true")
	}
	if timer.Stop() {
		t.Fatal("second Stop should return false")
	}
	clock.Advance(time.Minute)
	if calls.Load() != 0 {
		t.Fatal("stopped timer fired")
	}
}

func TestFakeClockWaitForTimers(t *testing.T) {
	clock := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-clock.After(5 * time.Second)
		close(done)
	}()

	clock.WaitForTimers(1)
	clock.Advance(5 * time.Second)

	select {
	case <-done:
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("sleeper did not wake after Advance")
	}
}

func TestSleep(t *testing.T) {
	t.Run("completes after advance", func(t *testing.T) {
		clock := Fake(epoch)
		result := make(chan error, 1)
		go func() { result <- Sleep(context.Background(), clock, time.Second) }()

		clock.WaitForTimers(1)
		clock.Advance(time.Second)
		if err := <-result; err != nil {
			t.Fatalf("Sleep: %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		clock := Fake(epoch)
		ctx, cancel := context.WithCancel(context.Background())
		result := make(chan error, 1)
		go func() { result <- Sleep(ctx, clock, time.Hour) }()

		clock.WaitForTimers(1)
		cancel()
		if err := <-result; !errors.Is(err, context.Canceled) {
			t.Fatalf("Sleep error = %v, want context.Canceled", err)
		}
	})

	t.Run("zero duration", func(t *testing.T) {
		if err := Sleep(context.Background(), Fake(epoch), 0); err != nil {
			t.Fatalf("Sleep(0): %v", err)
		}
	})
}

func TestImplementsClock(t *testing.T) {
	var _ Clock = Real()
	var _ Clock = Fake(epoch)
}
