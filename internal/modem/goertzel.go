package modem

import "math"

// goertzelCoeff holds the precomputed recurrence coefficient for one target
// frequency, so a ModemConfig's bank is computed once and reused for every
// symbol block (spec.md §9 "Goertzel bank fusion").
type goertzelCoeff struct {
	freq  float64
	coeff float64
}

// goertzelBank precomputes the per-frequency coefficients for a Config's
// frequency table, mirroring audio_extensions/morse/signal_processing.go's
// GoertzelFilter setup but evaluated over the whole bank at once, and using
// spec.md §4.4's unnormalized power readout rather than the teacher's
// normalize-by-block-size² variant.
type goertzelBank struct {
	sampleRate int
	blockSize  int
	coeffs     []goertzelCoeff
}

func newGoertzelBank(sampleRate, blockSize int, freqs []float64) *goertzelBank {
	bank := &goertzelBank{
		sampleRate: sampleRate,
		blockSize:  blockSize,
		coeffs:     make([]goertzelCoeff, len(freqs)),
	}
	for i, f := range freqs {
		k := math.Round(float64(blockSize) * f / float64(sampleRate))
		omega := 2 * math.Pi * k / float64(blockSize)
		bank.coeffs[i] = goertzelCoeff{freq: f, coeff: 2 * math.Cos(omega)}
	}
	return bank
}

// powers runs the two-tap Goertzel recurrence for every frequency in the
// bank over the same symbol block, returning one power estimate per
// frequency (spec.md §4.4). block must have exactly blockSize samples.
func (b *goertzelBank) powers(block []float64) []float64 {
	out := make([]float64, len(b.coeffs))
	for i, c := range b.coeffs {
		out[i] = goertzelPower(block, c.coeff)
	}
	return out
}

// goertzelPower runs the recurrence s_n = x_n + coeff*s_{n-1} - s_{n-2} over
// block and returns s_{N-1}² + s_{N-2}² - coeff·s_{N-1}·s_{N-2}.
func goertzelPower(block []float64, coeff float64) float64 {
	var sPrev, sPrev2 float64
	for _, x := range block {
		s := x + coeff*sPrev - sPrev2
		sPrev2 = sPrev
		sPrev = s
	}
	return sPrev*sPrev + sPrev2*sPrev2 - coeff*sPrev*sPrev2
}
