package modem

import "math"

// decideSymbol implements spec.md §4.5: given a power vector over the
// frequency bank, return the decided symbol and true, or false if the
// slice should be dropped (weak signal or ambiguous tone). Grounded on
// original_source/receiver.py's detect_bit, generalized to MFSK's
// argmax/second-max case.
func decideSymbol(cfg Config, powers []float64) (int, bool) {
	total := 0.0
	for _, p := range powers {
		total += p
	}
	if total < cfg.PowerGate {
		return 0, false
	}

	if cfg.Mode == ModeBFSKLegacy {
		p0, p1 := powers[0], powers[1]
		var ratio float64
		if p0 > 0 {
			ratio = p1 / p0
		} else {
			ratio = math.Inf(1)
		}
		if ratio > cfg.ConfidenceRatio {
			return 1, true
		}
		if ratio < 1/cfg.ConfidenceRatio {
			return 0, true
		}
		return 0, false
	}

	best, second := -1, -1
	for i, p := range powers {
		if best == -1 || p > powers[best] {
			second = best
			best = i
		} else if second == -1 || p > powers[second] {
			second = i
		}
	}
	if second == -1 || powers[second] <= 0 {
		return best, true
	}
	if powers[best]/powers[second] < cfg.ConfidenceRatio {
		return 0, false
	}
	return best, true
}
