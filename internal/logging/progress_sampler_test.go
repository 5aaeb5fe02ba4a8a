package logging

import "testing"

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25)
	steps := []struct {
		percent float64
		phase   string
		want    bool
	}{
		{0, "epoch 1", true},
		{10, "epoch 1", false},
		{25, "epoch 1", true},
		{40, "epoch 1", false},
		{100, "epoch 1", true},
		{100, "epoch 1", false},
		{5, "epoch 2", true},
		{10, " epoch 2 ", false},
		{-1, "epoch 3", true},
		{-1, "epoch 3", false},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, step.phase); got != step.want {
			t.Fatalf("step %d (%v%%, %q): got %v, want %v", i, step.percent, step.phase, got, step.want)
		}
	}
}

func TestProgressSamplerDefaultsAndReset(t *testing.T) {
	s := NewProgressSampler(0)
	if s.bucketSize != 25 {
		t.Fatalf("bucketSize = %v, want 25", s.bucketSize)
	}
	s.ShouldLog(50, "epoch 1")
	s.Reset()
	if !s.ShouldLog(50, "epoch 1") {
		t.Fatal("expected emit after reset")
	}

	var nilSampler *ProgressSampler
	if !nilSampler.ShouldLog(1, "x") {
		t.Fatal("nil sampler should always log")
	}
	nilSampler.Reset()
}
