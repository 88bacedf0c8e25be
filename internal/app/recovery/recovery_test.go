package recovery

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeFiller struct {
	calls int
	errs  []error // per-call errors, nil past the end
}

func (f *fakeFiller) Fill(context.Context, Form) error {
	f.calls++
	if f.calls <= len(f.errs) {
		return f.errs[f.calls-1]
	}
	return nil
}

func fastConfig() Config {
	return Config{MaxAttempts: 3, SettleWait: time.Millisecond}
}

func TestConfirmedFirstAttempt(t *testing.T) {
	filler := &fakeFiller{}
	r := New(fastConfig(), filler, ConfirmFunc(func(context.Context, int) (bool, error) {
		return true, nil
	}))

	attempts, err := r.Run(context.Background(), Form{Email: "a@b.c"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if attempts != 1 || filler.calls != 1 {
		t.Errorf("attempts=%d fills=%d, want 1 and 1", attempts, filler.calls)
	}
}

func TestRetriesUntilConfirmed(t *testing.T) {
	filler := &fakeFiller{}
	r := New(fastConfig(), filler, ConfirmFunc(func(_ context.Context, attempt int) (bool, error) {
		return attempt == 3, nil
	}))

	attempts, err := r.Run(context.Background(), Form{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if attempts != 3 || filler.calls != 3 {
		t.Errorf("attempts=%d fills=%d, want 3 and 3", attempts, filler.calls)
	}
}

func TestGivesUpAfterMaxAttempts(t *testing.T) {
	filler := &fakeFiller{}
	r := New(fastConfig(), filler, ConfirmFunc(func(context.Context, int) (bool, error) {
		return false, nil
	}))

	if _, err := r.Run(context.Background(), Form{}); err == nil {
		t.Fatal("Run succeeded without a confirmation")
	}
	if filler.calls != 3 {
		t.Errorf("fills = %d, want 3", filler.calls)
	}
}

func TestFillErrorConsumesAttempt(t *testing.T) {
	filler := &fakeFiller{errs: []error{errors.New("page changed")}}
	confirms := 0
	r := New(fastConfig(), filler, ConfirmFunc(func(context.Context, int) (bool, error) {
		confirms++
		return true, nil
	}))

	attempts, err := r.Run(context.Background(), Form{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if attempts != 2 || confirms != 1 {
		t.Errorf("attempts=%d confirms=%d, want 2 and 1", attempts, confirms)
	}
}

func TestConfirmerErrorAborts(t *testing.T) {
	r := New(fastConfig(), &fakeFiller{}, ConfirmFunc(func(context.Context, int) (bool, error) {
		return false, errors.New("operator gone")
	}))

	if _, err := r.Run(context.Background(), Form{}); err == nil {
		t.Fatal("Run ignored a confirmer error")
	}
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := New(Config{MaxAttempts: 3, SettleWait: time.Minute}, &fakeFiller{}, ConfirmFunc(func(context.Context, int) (bool, error) {
		return false, nil
	}))

	if _, err := r.Run(ctx, Form{}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
