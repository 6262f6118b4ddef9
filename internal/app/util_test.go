package app

import (
	"context"
	"testing"
	"time"
)

func TestShortID_Util(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"0x1234567890abcdef1234567890abcdef12345678", "0x1234…345678"},
		{"0x123456789012", "0x123456789012"}, // <= 14 chars
		{"shortstring", "shortstring"},
		{"exactly14chars", "exactly14chars"},
		{"fifteencharstr!", "fiftee…arstr!"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := shortID(tt.input)
			if result != tt.expected {
				t.Errorf("shortID(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNz(t *testing.T) {
	tests := []struct {
		s        string
		fallback string
		expected string
	}{
		{"hello", "default", "hello"},
		{"", "default", "default"},
		{"   ", "default", "default"},
		{"\t\n", "default", "default"},
		{"  content  ", "default", "  content  "},
	}

	for _, tt := range tests {
		t.Run(tt.s, func(t *testing.T) {
			result := nz(tt.s, tt.fallback)
			if result != tt.expected {
				t.Errorf("nz(%q, %q) = %q, want %q", tt.s, tt.fallback, result, tt.expected)
			}
		})
	}
}

func TestSleepCtx_Completes(t *testing.T) {
	if !sleepCtx(context.Background(), time.Millisecond) {
		t.Error("expected sleep to complete")
	}
}

func TestSleepCtx_ZeroDuration(t *testing.T) {
	if !sleepCtx(context.Background(), 0) {
		t.Error("zero duration should return immediately with true")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepCtx(ctx, 0) {
		t.Error("canceled context should return false even for zero duration")
	}
}

func TestSleepCtx_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if sleepCtx(ctx, 10*time.Second) {
		t.Error("expected canceled context to cut the sleep short")
	}
	if time.Since(start) > time.Second {
		t.Error("canceled sleep should return promptly")
	}
}
