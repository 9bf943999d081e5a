package maildir

import (
	"errors"
	"testing"
	"time"
)

func TestRetryUntil(t *testing.T) {
	var slept []time.Duration
	sleep := func(d time.Duration) { slept = append(slept, d) }

	calls := 0
	err := retryUntil(sleep, time.Second, func() (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil {
		t.Fatalf("retryUntil: %v", err)
	}
	if calls != 3 {
		t.Errorf("cond called %d times, want 3", calls)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != time.Second {
		t.Errorf("slept %v, want two 1s waits", slept)
	}
}

func TestRetryUntil_Error(t *testing.T) {
	boom := errors.New("boom")
	err := retryUntil(func(time.Duration) { t.Fatal("slept after error") }, time.Second, func() (bool, error) {
		return false, boom
	})
	if err != boom {
		t.Fatalf("retryUntil err = %v, want %v", err, boom)
	}
}
