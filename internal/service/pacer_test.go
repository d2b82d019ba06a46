package service

import (
	"context"
	"testing"
	"time"
)

func TestPacerDisabled(t *testing.T) {
	p := NewPacer(0)

	if err := p.Wait(context.Background()); err != nil {
		t.Errorf("disabled pacer should not block: %v", err)
	}

	var nilPacer *Pacer
	if err := nilPacer.Wait(context.Background()); err != nil {
		t.Errorf("nil pacer should be a no-op: %v", err)
	}
}

func TestPacerHonorsCancellation(t *testing.T) {
	p := NewPacer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	// Consume the initial token, then cancel while the second wait is paced.
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if err := p.Wait(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestPacerEnforcesInterval(t *testing.T) {
	interval := 20 * time.Millisecond
	p := NewPacer(interval)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(ctx); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}

	// Burst of one: the second and third waits are each paced.
	if elapsed := time.Since(start); elapsed < 2*interval-5*time.Millisecond {
		t.Errorf("three waits completed in %v, expected at least ~%v", elapsed, 2*interval)
	}
}
