package modem

import (
	"math/rand"
	"testing"
)

// recordingSink captures the signal handed to Play instead of touching real
// audio hardware, standing in for the external audio sink spec.md §6 treats
// as opaque.
type recordingSink struct {
	signal     []float64
	sampleRate int
	failNext   bool
}

func (s *recordingSink) Play(signal []float64, sampleRate int) error {
	if s.failNext {
		return &TxError{msg: "injected sink failure"}
	}
	s.signal = append([]float64(nil), signal...)
	s.sampleRate = sampleRate
	return nil
}

func feedInBlocks(m *Modem, signal []float64, blockSize int) []DecodedMessage {
	var out []DecodedMessage
	for i := 0; i < len(signal); i += blockSize {
		end := i + blockSize
		if end > len(signal) {
			end = len(signal)
		}
		block := make([]float32, end-i)
		for j, s := range signal[i:end] {
			block[j] = float32(s)
		}
		out = append(out, m.OnAudio(block)...)
	}
	return out
}

// TestModemRoundTripNoiseless implements spec.md §8 property 6 and the S1
// scenario: feeding TX output back into OnAudio across a variety of block
// sizes yields exactly one decoded message equal to the original plaintext.
func TestModemRoundTripNoiseless(t *testing.T) {
	cfg := DefaultMFSKConfig()

	blockSizes := []int{256, 1024, cfg.SamplesPerSymbol(), cfg.SamplesPerSymbol() - 1}
	for _, blockSize := range blockSizes {
		t.Run("", func(t *testing.T) {
			sink := &recordingSink{}
			tx, err := New(cfg, "tx-unused", sink)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if err := tx.Transmit("hello", "pw", PriorityNormal); err != nil {
				t.Fatalf("Transmit: %v", err)
			}

			rx, err := New(cfg, "pw", nil)
			if err != nil {
				t.Fatalf("New: %v", err)
			}

			msgs := feedInBlocks(rx, sink.signal, blockSize)
			if len(msgs) != 1 {
				t.Fatalf("block size %d: got %d messages, want 1 (msgs=%v)", blockSize, len(msgs), msgs)
			}
			if msgs[0].Plaintext != "hello" {
				t.Errorf("block size %d: plaintext = %q, want %q", blockSize, msgs[0].Plaintext, "hello")
			}
			if msgs[0].Priority != PriorityNormal {
				t.Errorf("block size %d: priority = %v, want normal", blockSize, msgs[0].Priority)
			}
			if !msgs[0].CRCOK {
				t.Errorf("block size %d: CRCOK = false, want true", blockSize)
			}
			stats := rx.Stats()
			if stats.MsgsOK != 1 {
				t.Errorf("block size %d: stats.MsgsOK = %d, want 1", blockSize, stats.MsgsOK)
			}
		})
	}
}

// TestModemRoundTripUrgentPriority implements spec.md §8 S2.
func TestModemRoundTripUrgentPriority(t *testing.T) {
	cfg := DefaultMFSKConfig()
	sink := &recordingSink{}
	tx, err := New(cfg, "tx-unused", sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tx.Transmit("ping", "pw", PriorityUrgent); err != nil {
		t.Fatalf("Transmit: %v", err)
	}

	rx, err := New(cfg, "pw", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	msgs := feedInBlocks(rx, sink.signal, 1024)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Plaintext != "ping" || msgs[0].Priority != PriorityUrgent {
		t.Errorf("got %+v, want {ping urgent}", msgs[0])
	}
}

// TestModemWrongPassphraseFails implements spec.md §8 S3: CRC passes (it
// covers only the ciphertext string) but decrypt fails, counted as msgs_fail.
func TestModemWrongPassphraseFails(t *testing.T) {
	cfg := DefaultMFSKConfig()
	sink := &recordingSink{}
	tx, err := New(cfg, "tx-unused", sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tx.Transmit("abc", "k1", PriorityNormal); err != nil {
		t.Fatalf("Transmit: %v", err)
	}

	rx, err := New(cfg, "k2", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	msgs := feedInBlocks(rx, sink.signal, 1024)
	if len(msgs) != 0 {
		t.Fatalf("got %d messages, want 0 (wrong passphrase should not decode)", len(msgs))
	}
	stats := rx.Stats()
	if stats.MsgsFail != 1 {
		t.Errorf("stats.MsgsFail = %d, want 1", stats.MsgsFail)
	}
	if stats.MsgsOK != 0 {
		t.Errorf("stats.MsgsOK = %d, want 0", stats.MsgsOK)
	}
}

// TestModemMidFrameSymbolErrorHealedByHamming implements spec.md §8
// scenario S4: a single-bit error introduced into one mid-frame data
// symbol (the MFSK analogue of "flip one sample block's sign") is
// healed by Hamming(7,4) FEC, so the message still decodes intact.
// This is also the scenario that would have caught a syndrome-mapping
// bug in hammingDecode, since TestModemRoundTripNoiseless never
// exercises the correction path at all.
func TestModemMidFrameSymbolErrorHealedByHamming(t *testing.T) {
	cfg := DefaultMFSKConfig()

	cipherB64, err := encrypt("data", "pw")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	crcHex := crc16Hex(cipherB64)

	dataSymbols := buildFrame(cfg, cipherB64, crcHex)
	corrupted := append([]int(nil), dataSymbols...)
	idx := len(corrupted) / 2
	corrupted[idx] ^= 1 // flip one bit of one Hamming-protected data symbol

	preamble := preambleSequence(cfg, PriorityNormal)
	allSymbols := append(append([]int(nil), preamble...), corrupted...)

	signal := make([]float64, 0, len(allSymbols)*cfg.SamplesPerSymbol())
	for _, sym := range allSymbols {
		signal = append(signal, synthesizeTone(cfg, sym)...)
	}

	rx, err := New(cfg, "pw", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	msgs := feedInBlocks(rx, signal, 1024)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 (Hamming should heal the single-bit symbol error): %v", len(msgs), msgs)
	}
	if msgs[0].Plaintext != "data" || msgs[0].Priority != PriorityNormal {
		t.Errorf("got %+v, want {data normal}", msgs[0])
	}
	stats := rx.Stats()
	if stats.MsgsOK != 1 {
		t.Errorf("stats.MsgsOK = %d, want 1", stats.MsgsOK)
	}
	if stats.HammingFail != 0 {
		t.Errorf("stats.HammingFail = %d, want 0 (a single-bit error is corrected, not a failure)", stats.HammingFail)
	}
}

// TestModemTamperedCiphertextFailsCRC implements spec.md §8 property 7:
// flipping a ciphertext byte before transmission trips the frame CRC.
func TestModemTamperedCiphertextFailsCRC(t *testing.T) {
	cfg := DefaultMFSKConfig()

	cipherB64, err := encrypt("data", "pw")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	crcHex := crc16Hex(cipherB64)

	tampered := []byte(cipherB64)
	tampered[len(tampered)/2] ^= 0x01
	tamperedCipher := string(tampered)

	dataSymbols := buildFrame(cfg, tamperedCipher, crcHex)
	preamble := preambleSequence(cfg, PriorityNormal)
	allSymbols := append(append([]int(nil), preamble...), dataSymbols...)

	signal := make([]float64, 0, len(allSymbols)*cfg.SamplesPerSymbol())
	for _, sym := range allSymbols {
		signal = append(signal, synthesizeTone(cfg, sym)...)
	}

	rx, err := New(cfg, "pw", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	msgs := feedInBlocks(rx, signal, 1024)
	if len(msgs) != 0 {
		t.Fatalf("got %d messages, want 0 after ciphertext tampering", len(msgs))
	}
	stats := rx.Stats()
	if stats.CRCFail != 1 {
		t.Errorf("stats.CRCFail = %d, want 1", stats.CRCFail)
	}
}

// TestModemTruncatedFrameNoFalsePositive implements the second half of
// spec.md §8 property 7: truncating before ETX never produces a decode.
func TestModemTruncatedFrameNoFalsePositive(t *testing.T) {
	cfg := DefaultMFSKConfig()
	sink := &recordingSink{}
	tx, err := New(cfg, "tx-unused", sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tx.Transmit("data", "pw", PriorityNormal); err != nil {
		t.Fatalf("Transmit: %v", err)
	}

	truncated := sink.signal[:len(sink.signal)*2/3]

	rx, err := New(cfg, "pw", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	msgs := feedInBlocks(rx, truncated, 1024)
	if len(msgs) != 0 {
		t.Fatalf("got %d messages from a truncated frame, want 0", len(msgs))
	}
}

// TestModemPreambleLockExact implements spec.md §8 property 8: a normal
// preamble followed by random noise symbols never decodes; a real frame
// after the preamble does.
func TestModemPreambleLockExact(t *testing.T) {
	cfg := DefaultMFSKConfig()
	rng := rand.New(rand.NewSource(42))

	preamble := preambleSequence(cfg, PriorityNormal)
	var noiseSignal []float64
	for _, sym := range preamble {
		noiseSignal = append(noiseSignal, synthesizeTone(cfg, sym)...)
	}
	for i := 0; i < 64; i++ {
		noiseSignal = append(noiseSignal, synthesizeTone(cfg, rng.Intn(cfg.M))...)
	}

	rx, err := New(cfg, "pw", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if msgs := feedInBlocks(rx, noiseSignal, 1024); len(msgs) != 0 {
		t.Fatalf("preamble + random symbols decoded %d messages, want 0", len(msgs))
	}

	sink := &recordingSink{}
	tx, err := New(cfg, "tx-unused", sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tx.Transmit("hello", "pw", PriorityNormal); err != nil {
		t.Fatalf("Transmit: %v", err)
	}

	rx2, err := New(cfg, "pw", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	msgs := feedInBlocks(rx2, sink.signal, 1024)
	if len(msgs) != 1 || msgs[0].Plaintext != "hello" {
		t.Fatalf("preamble + valid frame: got %v, want one {hello}", msgs)
	}
}

// TestModemZeroSamplesNoSymbolDecisions implements spec.md §8 property 9.
func TestModemZeroSamplesNoSymbolDecisions(t *testing.T) {
	cfg := DefaultMFSKConfig()
	rx, err := New(cfg, "pw", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	msgs := rx.OnAudio(nil)
	if len(msgs) != 0 {
		t.Fatalf("OnAudio(nil) produced %d messages, want 0", len(msgs))
	}
	stats := rx.Stats()
	if stats.MsgsOK != 0 || stats.MsgsFail != 0 || stats.CRCFail != 0 || stats.HammingFail != 0 || stats.SymFail != 0 {
		t.Fatalf("OnAudio(nil) mutated stats: %+v", stats)
	}
}

func TestModemTransmitRequiresPassphrase(t *testing.T) {
	cfg := DefaultMFSKConfig()
	sink := &recordingSink{}
	m, err := New(cfg, "pw", sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Transmit("hello", "", PriorityNormal); err == nil {
		t.Error("Transmit with empty passphrase should fail")
	}
}

func TestModemTransmitRequiresSink(t *testing.T) {
	cfg := DefaultMFSKConfig()
	m, err := New(cfg, "pw", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Transmit("hello", "pw", PriorityNormal); err == nil {
		t.Error("Transmit with no sink configured should fail")
	}
}

func TestModemTransmitSurfacesSinkFailure(t *testing.T) {
	cfg := DefaultMFSKConfig()
	sink := &recordingSink{failNext: true}
	m, err := New(cfg, "pw", sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Transmit("hello", "pw", PriorityNormal); err == nil {
		t.Error("Transmit should surface a sink failure")
	}
}

func TestModemResetDropsInFlightFrame(t *testing.T) {
	cfg := DefaultMFSKConfig()
	sink := &recordingSink{}
	tx, err := New(cfg, "tx-unused", sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tx.Transmit("hello", "pw", PriorityNormal); err != nil {
		t.Fatalf("Transmit: %v", err)
	}

	rx, err := New(cfg, "pw", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	half := len(sink.signal) / 2
	feedInBlocks(rx, sink.signal[:half], 1024)
	rx.Reset()
	if msgs := feedInBlocks(rx, sink.signal[half:], 1024); len(msgs) != 0 {
		t.Fatalf("after Reset, the second half alone should not complete a frame, got %v", msgs)
	}
}
