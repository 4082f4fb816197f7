package sensor

import (
	"errors"
	"testing"
)

func TestFakeReaderRead(t *testing.T) {
	f := NewFakeReader([]int{100, 900, 450})

	for i, want := range []int{100, 900, 450, 450} {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("read %d: got %d, want %d", i, got, want)
		}
	}
}

func TestFakeReaderNoValues(t *testing.T) {
	f := NewFakeReader(nil)

	if _, err := f.Read(); err == nil {
		t.Error("expected error with no values")
	}
}

func TestFakeReaderError(t *testing.T) {
	f := NewFakeReader([]int{900})
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeReaderCloseAndReset(t *testing.T) {
	f := NewFakeReader([]int{1, 2})

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}

	f.Read()
	f.Reset()
	if f.Closed {
		t.Error("Reset should clear Closed")
	}
	if v, _ := f.Read(); v != 1 {
		t.Errorf("after reset: got %d, want 1", v)
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		levels Levels
		raw    int
		want   int
	}{
		{DefaultLevels(), 0, DefaultHigh},
		{DefaultLevels(), 1, DefaultLow},
		{Levels{High: 800, Low: 50}, 1, 800},
		{Levels{High: 800, Low: 50}, 0, 50},
	}

	for _, tt := range tests {
		if got := tt.levels.Level(tt.raw); got != tt.want {
			t.Errorf("Level(%d) with %+v: got %d, want %d", tt.raw, tt.levels, got, tt.want)
		}
	}
}
