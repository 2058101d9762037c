package modem

import "testing"

func TestDecideSymbolPowerGate(t *testing.T) {
	cfg := DefaultMFSKConfig()
	powers := make([]float64, cfg.M)
	powers[2] = cfg.PowerGate - 1 // total below gate
	if _, ok := decideSymbol(cfg, powers); ok {
		t.Error("expected no decision when total power is below power_gate")
	}
}

func TestDecideSymbolMFSKConfidentArgmax(t *testing.T) {
	cfg := DefaultMFSKConfig()
	powers := make([]float64, cfg.M)
	powers[5] = cfg.PowerGate * 10
	powers[0] = cfg.PowerGate * 0.1

	sym, ok := decideSymbol(cfg, powers)
	if !ok {
		t.Fatal("expected a confident decision")
	}
	if sym != 5 {
		t.Errorf("decideSymbol = %d, want 5", sym)
	}
}

func TestDecideSymbolMFSKAmbiguousReturnsNone(t *testing.T) {
	cfg := DefaultMFSKConfig()
	powers := make([]float64, cfg.M)
	powers[5] = cfg.PowerGate * 2
	powers[6] = cfg.PowerGate * 1.9 // ratio < confidence_ratio

	if _, ok := decideSymbol(cfg, powers); ok {
		t.Error("expected no decision for an ambiguous (low-confidence) power vector")
	}
}

func TestDecideSymbolBFSK(t *testing.T) {
	cfg := DefaultBFSKLegacyConfig()

	sym, ok := decideSymbol(cfg, []float64{cfg.PowerGate * 0.1, cfg.PowerGate * 10})
	if !ok || sym != 1 {
		t.Errorf("strong f1: decideSymbol = (%d, %v), want (1, true)", sym, ok)
	}

	sym, ok = decideSymbol(cfg, []float64{cfg.PowerGate * 10, cfg.PowerGate * 0.1})
	if !ok || sym != 0 {
		t.Errorf("strong f0: decideSymbol = (%d, %v), want (0, true)", sym, ok)
	}

	if _, ok := decideSymbol(cfg, []float64{cfg.PowerGate * 2, cfg.PowerGate * 2.1}); ok {
		t.Error("ratio within confidence band should yield no decision")
	}
}

func TestDecideSymbolZeroInputYieldsNoDecision(t *testing.T) {
	cfg := DefaultMFSKConfig()
	powers := make([]float64, cfg.M)
	if cfg.PowerGate > 0 {
		if _, ok := decideSymbol(cfg, powers); ok {
			t.Error("all-zero power vector should never yield a decision when power_gate > 0")
		}
	}
}
