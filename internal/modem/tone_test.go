package modem

import (
	"math"
	"testing"
)

func TestSynthesizeToneLength(t *testing.T) {
	cfg := DefaultMFSKConfig()
	for sym := 0; sym < cfg.M; sym++ {
		tone := synthesizeTone(cfg, sym)
		if len(tone) != cfg.SamplesPerSymbol() {
			t.Fatalf("symbol %d: len(tone) = %d, want %d", sym, len(tone), cfg.SamplesPerSymbol())
		}
		for _, x := range tone {
			if math.Abs(x) > cfg.Volume+1e-9 {
				t.Fatalf("symbol %d: sample %v exceeds volume %v", sym, x, cfg.Volume)
			}
		}
	}
}

func TestSynthesizeToneEdgeWindowTapersToZero(t *testing.T) {
	cfg := DefaultMFSKConfig()
	tone := synthesizeTone(cfg, 0)
	if math.Abs(tone[0]) > 1e-9 {
		t.Errorf("first sample should be tapered near zero, got %v", tone[0])
	}
	if math.Abs(tone[len(tone)-1]) > 1e-9 {
		t.Errorf("last sample should be tapered near zero, got %v", tone[len(tone)-1])
	}
}

func TestSynthesizeToneBFSKLinearRamp(t *testing.T) {
	cfg := DefaultBFSKLegacyConfig()
	tone := synthesizeTone(cfg, 1)
	if math.Abs(tone[0]) > 1e-9 {
		t.Errorf("first sample should ramp from zero, got %v", tone[0])
	}
}

func TestNormalizePeakScalesDownLoudSignal(t *testing.T) {
	signal := []float64{1.0, -1.0, 0.5}
	normalizePeak(signal)
	peak := 0.0
	for _, s := range signal {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if math.Abs(peak-0.95) > 1e-9 {
		t.Errorf("peak after normalize = %v, want 0.95", peak)
	}
}

func TestNormalizePeakLeavesQuietSignalUnchanged(t *testing.T) {
	signal := []float64{0.1, -0.2, 0.05}
	want := append([]float64(nil), signal...)
	normalizePeak(signal)
	for i := range want {
		if signal[i] != want[i] {
			t.Errorf("quiet signal should be untouched, got %v want %v", signal, want)
		}
	}
}

func TestNormalizePeakHandlesAllZeroSignal(t *testing.T) {
	signal := make([]float64, 10)
	normalizePeak(signal)
	for _, s := range signal {
		if s != 0 {
			t.Errorf("all-zero signal should remain zero, got %v", s)
		}
	}
}

func TestSilenceSamplesLength(t *testing.T) {
	n := silenceSamples(44100, 0.2)
	if len(n) != 8820 {
		t.Errorf("silenceSamples(44100, 0.2) len = %d, want 8820", len(n))
	}
	for _, s := range n {
		if s != 0 {
			t.Fatal("silence must be all zero")
		}
	}
}
