package modem

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

// edge window parameters (spec.md §4.3), keyed by mode.
const (
	bfskWindowMax = 100
	bfskWindowDiv = 10
	mfskWindowMax = 50
	mfskWindowDiv = 20
)

// edgeWindowLen returns w = min(W_max, samplesPerSymbol/D), the number of
// samples tapered at each end of a symbol block.
func edgeWindowLen(samplesPerSymbol, wMax, d int) int {
	w := samplesPerSymbol / d
	if w > wMax {
		w = wMax
	}
	if w < 0 {
		w = 0
	}
	return w
}

// synthesizeTone renders symbol s as samplesPerSymbol samples of a sine at
// its assigned frequency, edge-windowed per spec.md §4.3. For BFSK the taper
// is a linear ramp (generate_tone in original_source/transmitter.py); for
// MFSK it is the rising/falling half of a Hann window.
func synthesizeTone(cfg Config, symbol int) []float64 {
	freqs := cfg.Frequencies()
	freq := freqs[symbol]
	n := cfg.SamplesPerSymbol()

	tone := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(cfg.SampleRate)
		tone[i] = cfg.Volume * math.Sin(2*math.Pi*freq*t)
	}

	if cfg.Mode == ModeBFSKLegacy {
		applyLinearRampWindow(tone, edgeWindowLen(n, bfskWindowMax, bfskWindowDiv))
	} else {
		applyHannEdgeWindow(tone, edgeWindowLen(n, mfskWindowMax, mfskWindowDiv))
	}
	return tone
}

// applyLinearRampWindow attenuates the first w samples by a 0→1 linear ramp
// and the last w samples by a 1→0 ramp, in place.
func applyLinearRampWindow(tone []float64, w int) {
	if w <= 0 || 2*w > len(tone) {
		return
	}
	for i := 0; i < w; i++ {
		tone[i] *= float64(i) / float64(w-1+boolToInt(w == 1))
	}
	for i := 0; i < w; i++ {
		tone[len(tone)-1-i] *= float64(i) / float64(w-1+boolToInt(w == 1))
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// applyHannEdgeWindow attenuates the first w samples by the rising half of a
// Hann window of length 2w and the last w by the falling half, in place.
func applyHannEdgeWindow(tone []float64, w int) {
	if w <= 0 || 2*w > len(tone) {
		return
	}
	hann := make([]float64, 2*w)
	for i := range hann {
		hann[i] = 1
	}
	hann = window.Hann(hann)

	for i := 0; i < w; i++ {
		tone[i] *= hann[i]
	}
	for i := 0; i < w; i++ {
		tone[len(tone)-1-i] *= hann[i]
	}
}

// normalizePeak scales signal uniformly so its peak magnitude is at most
// 0.95, leaving it untouched if already within range (spec.md §4.3).
func normalizePeak(signal []float64) {
	peak := 0.0
	for _, s := range signal {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak <= 0.95 || peak == 0 {
		return
	}
	scale := 0.95 / peak
	for i := range signal {
		signal[i] *= scale
	}
}

// silenceSamples returns n zero samples, used for leading/trailing silence.
func silenceSamples(sampleRate int, seconds float64) []float64 {
	n := int(float64(sampleRate) * seconds)
	return make([]float64, n)
}
