package upload

import "testing"

const mib = 1024 * 1024

func TestSelectStrategy(t *testing.T) {
	thresholds := Thresholds{InlineMax: 4 * mib, SinglePutMax: 8 * mib}

	tests := []struct {
		name     string
		size     int64
		expected Strategy
	}{
		{"Zero bytes", 0, StrategyInline},
		{"Small file", 2 * mib, StrategyInline},
		{"Exactly at inline threshold", 4 * mib, StrategyInline},
		{"One byte over inline threshold", 4*mib + 1, StrategyPresignedPut},
		{"Exactly at single-put threshold", 8 * mib, StrategyPresignedPut},
		{"One byte over single-put threshold", 8*mib + 1, StrategyMultipart},
		{"Ten MiB file", 10 * mib, StrategyMultipart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SelectStrategy(tt.size, thresholds)
			if result != tt.expected {
				t.Errorf("SelectStrategy(%d) = %s, expected %s", tt.size, result, tt.expected)
			}
		})
	}
}

func TestSelectStrategy_Deterministic(t *testing.T) {
	thresholds := Thresholds{InlineMax: 4 * mib, SinglePutMax: 32 * mib}
	for i := 0; i < 3; i++ {
		if got := SelectStrategy(10*mib, thresholds); got != StrategyPresignedPut {
			t.Fatalf("run %d: SelectStrategy(10MiB) = %s, expected %s", i, got, StrategyPresignedPut)
		}
	}
}

func TestStrategy_String(t *testing.T) {
	tests := []struct {
		strategy Strategy
		expected string
	}{
		{StrategyInline, "inline"},
		{StrategyPresignedPut, "presigned-put"},
		{StrategyMultipart, "multipart"},
		{Strategy(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.strategy.String(); got != tt.expected {
			t.Errorf("Strategy(%d).String() = %s, expected %s", tt.strategy, got, tt.expected)
		}
	}
}
