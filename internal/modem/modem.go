package modem

import (
	"fmt"
	"log"
)

// TxError reports a transmit-side failure: an empty passphrase or a sink
// failure (spec.md §7 "TX errors ... are surfaced to the caller").
type TxError struct {
	msg string
	err error
}

func (e *TxError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("modem: tx: %s: %v", e.msg, e.err)
	}
	return fmt.Sprintf("modem: tx: %s", e.msg)
}

func (e *TxError) Unwrap() error { return e.err }

// Sink plays a synthesized signal out to an audio device, blocking until it
// has drained (spec.md §6). Defined here, not imported from
// internal/audioio, so the core modem package never depends on cgo/portaudio.
type Sink interface {
	Play(signal []float64, sampleRate int) error
}

// Modem is the public entry point: spec.md §6's language-neutral API,
// grounded on audio_extension.go's AudioExtension shape (Start/Stop/name)
// and audio_extensions/fsk/extension.go's validate-then-construct pattern,
// adapted to a single-threaded synchronous transmit/receive pair instead of
// a channel-driven extension.
type Modem struct {
	cfg  Config
	sink Sink
	rx   *ReceiverState
	log  *TransLog

	// DebugMode gates verbose per-symbol logging, mirroring main.go's
	// package-level DebugMode toggle.
	DebugMode bool
}

// New validates cfg and constructs a Modem bound to a single session
// passphrase and an optional transmit sink (nil if this Modem only
// receives).
func New(cfg Config, passphrase string, sink Sink) (*Modem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("modem: invalid config: %w", err)
	}
	return &Modem{
		cfg:  cfg,
		sink: sink,
		rx:   newReceiverState(cfg, passphrase),
	}, nil
}

// SetTranscriptLog attaches an optional append-only compressed transcript
// of decoded messages (SPEC_FULL.md domain stack); nil disables it.
func (m *Modem) SetTranscriptLog(t *TransLog) { m.log = t }

// Transmit implements spec.md §6's Modem.transmit: build the crypto
// envelope, frame it, synthesize tones, and play the result through the
// configured sink. It blocks until playback has fully drained.
func (m *Modem) Transmit(message string, passphrase string, priority Priority) error {
	if passphrase == "" {
		return &TxError{msg: "passphrase must not be empty"}
	}
	if m.sink == nil {
		return &TxError{msg: "no audio sink configured for transmit"}
	}

	cipherB64, err := encrypt(message, passphrase)
	if err != nil {
		return &TxError{msg: "encrypt", err: err}
	}
	crcHex := crc16Hex(cipherB64)

	dataSymbols := buildFrame(m.cfg, cipherB64, crcHex)

	var preambleSymbols []int
	if m.cfg.Mode == ModeBFSKLegacy {
		preambleSymbols = preambleBits(m.cfg)
	} else {
		preambleSymbols = preambleSequence(m.cfg, priority)
	}

	allSymbols := make([]int, 0, len(preambleSymbols)+len(dataSymbols))
	allSymbols = append(allSymbols, preambleSymbols...)
	allSymbols = append(allSymbols, dataSymbols...)

	signal := make([]float64, 0, len(allSymbols)*m.cfg.SamplesPerSymbol()+m.cfg.SampleRate)
	signal = append(signal, silenceSamples(m.cfg.SampleRate, 0.2)...)
	for _, sym := range allSymbols {
		signal = append(signal, synthesizeTone(m.cfg, sym)...)
	}
	signal = append(signal, silenceSamples(m.cfg.SampleRate, 0.5)...)

	normalizePeak(signal)

	if m.DebugMode {
		log.Printf("[Modem] tx: %d symbols, %d samples, priority=%s", len(allSymbols), len(signal), priority)
	}

	if err := m.sink.Play(signal, m.cfg.SampleRate); err != nil {
		return &TxError{msg: "sink play", err: err}
	}
	return nil
}

// OnAudio implements spec.md §6's Modem.on_audio: feed one PCM block from
// the audio driver's callback and return any messages fully decoded during
// this call. Apart from Reset and RegisterMetrics, this is the only place
// ReceiverState is mutated (spec.md §5).
func (m *Modem) OnAudio(block []float32) []DecodedMessage {
	msgs := m.rx.pushAudio(block)
	for _, msg := range msgs {
		if m.DebugMode {
			log.Printf("[Modem] rx: decoded %q priority=%s", msg.Plaintext, msg.Priority)
		}
		if m.log != nil {
			if err := m.log.Append(msg); err != nil {
				log.Printf("[Modem] transcript log append failed: %v", err)
			}
		}
	}
	return msgs
}

// Reset drops any in-flight receive frame and returns to Idle.
func (m *Modem) Reset() { m.rx.Reset() }

// Stats returns the receive-path counters (spec.md §6).
func (m *Modem) Stats() Stats { return m.rx.Stats() }
