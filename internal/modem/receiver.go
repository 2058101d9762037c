package modem

// receiverPhase is the Idle/Locked discriminant of the receive pipeline
// (spec.md §4.8).
type receiverPhase int

const (
	phaseIdle receiverPhase = iota
	phaseLocked
)

// ReceiverState owns every piece of in-flight receive state: the rolling
// sample accumulator, the Goertzel bank, the preamble sync history, and the
// deframer. All mutation happens inside one OnAudio call with no internal
// concurrency (spec.md §5) — grounded on the shape of
// audio_extensions/fsk/decoder.go's FSKDecoder (config + running state +
// stats), restructured to drop its goroutine/channel processing loop.
type ReceiverState struct {
	cfg        Config
	passphrase string
	bank       *goertzelBank

	sampleAccum []float64
	phase       receiverPhase
	lockedAt    Priority
	sync        *syncHistory
	frame       *deframer

	stats   Stats
	metrics *modemMetrics
}

// DecodedMessage is returned from OnAudio for each fully decoded frame
// (spec.md §6).
type DecodedMessage struct {
	Plaintext string
	Priority  Priority
	CRCOK     bool
}

func newReceiverState(cfg Config, passphrase string) *ReceiverState {
	return &ReceiverState{
		cfg:        cfg,
		passphrase: passphrase,
		bank:       newGoertzelBank(cfg.SampleRate, cfg.SamplesPerSymbol(), cfg.Frequencies()),
		sync:       newSyncHistory(cfg.PreambleSymbols),
		frame:      newDeframer(cfg),
		phase:      phaseIdle,
	}
}

// Stats returns a snapshot of the receive-path counters.
func (r *ReceiverState) Stats() Stats { return r.stats }

// Reset returns the receiver to Idle, dropping any in-flight frame.
func (r *ReceiverState) Reset() {
	r.phase = phaseIdle
	r.sync.reset()
	r.frame.reset()
	r.sampleAccum = r.sampleAccum[:0]
}

// pushAudio appends block to the sample accumulator and slices out every
// complete symbol block it can in one pass, per spec.md §5's callback
// contract. It returns any messages fully decoded during this call.
func (r *ReceiverState) pushAudio(block []float32) []DecodedMessage {
	for _, s := range block {
		r.sampleAccum = append(r.sampleAccum, float64(s))
	}

	n := r.cfg.SamplesPerSymbol()
	var out []DecodedMessage
	for len(r.sampleAccum) >= n {
		symbolBlock := r.sampleAccum[:n]
		r.sampleAccum = r.sampleAccum[n:]

		powers := r.bank.powers(symbolBlock)
		symbol, ok := decideSymbol(r.cfg, powers)
		if !ok {
			continue // power gate or ambiguous: drop this slice, no transition
		}
		if msg, got := r.stepSymbol(symbol); got {
			out = append(out, msg)
		}
	}
	return out
}

// stepSymbol drives the Idle/Locked state machine for one decided symbol
// (spec.md §4.8).
func (r *ReceiverState) stepSymbol(symbol int) (DecodedMessage, bool) {
	// decideSymbol argmaxes over exactly r.cfg.M frequencies, so symbol
	// can never reach M here; this guards spec.md §7's SymbolError
	// taxonomy in case a future decider implementation stops holding
	// that invariant, at the cost of sym_fail never actually moving.
	if r.cfg.Mode == ModeMFSK && symbol >= r.cfg.M {
		r.stats.SymFail++
		r.metrics.incSymFail()
		r.Reset()
		return DecodedMessage{}, false
	}

	r.sync.push(symbol)

	if r.phase == phaseIdle {
		if priority, hit := matchPreamble(r.cfg, r.sync); hit {
			r.phase = phaseLocked
			r.lockedAt = priority
			r.sync.reset()
			r.frame.reset()
		}
		return DecodedMessage{}, false
	}

	payload, gotETX, hammFail := r.frame.pushSymbol(symbol)
	if hammFail {
		r.stats.HammingFail++
		r.metrics.incHammingFail()
		r.Reset()
		return DecodedMessage{}, false
	}
	if !gotETX {
		return DecodedMessage{}, false
	}

	msg, ok := r.finalize(payload)
	r.Reset()
	return msg, ok
}

// finalize implements spec.md §4.6's ETX finalize step: split on the last
// '|', verify CRC, decrypt, and report the result.
func (r *ReceiverState) finalize(payload string) (DecodedMessage, bool) {
	cipherB64, crcHex, ok := splitPayload(payload)
	if !ok {
		r.stats.MsgsFail++
		r.metrics.incMsgsFail()
		return DecodedMessage{}, false
	}

	if !verifyCRC(cipherB64, crcHex) {
		r.stats.CRCFail++
		r.stats.MsgsFail++
		r.metrics.incCRCFail()
		r.metrics.incMsgsFail()
		return DecodedMessage{}, false
	}

	plaintext, err := decrypt(cipherB64, r.passphrase)
	if err != nil {
		r.stats.MsgsFail++
		r.metrics.incMsgsFail()
		return DecodedMessage{}, false
	}

	r.stats.MsgsOK++
	r.metrics.incMsgsOK()
	return DecodedMessage{Plaintext: plaintext, Priority: r.lockedAt, CRCOK: true}, true
}
