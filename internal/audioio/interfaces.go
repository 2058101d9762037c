// Package audioio defines the audio source/sink boundary the core modem
// sits behind (spec.md §6), plus a concrete portaudio-backed adapter.
package audioio

// Source pushes mono float32 PCM blocks into a callback at the sample rate
// it was opened with. The modem presents on_audio(block); it never queries
// the driver itself (spec.md §6).
type Source interface {
	// Start begins delivering blocks to onBlock until Stop is called or the
	// device errs. status carries driver-level conditions such as overflow.
	Start(onBlock func(block []float32, status Status)) error
	Stop() error
	SampleRate() int
}

// Sink plays a float64 PCM signal and blocks until playback has drained
// (spec.md §6's "blocking play() followed by a wait()").
type Sink interface {
	Play(signal []float64, sampleRate int) error
}

// Status reports driver-level stream conditions delivered alongside a block.
type Status struct {
	Overflow bool
}

// Device describes one audio input or output device (spec.md §9
// "supplemented" device listing, dropped by the distillation but restored
// here as a read-only query per SPEC_FULL.md).
type Device struct {
	Index       int
	Name        string
	MaxChannels int
	SampleRate  float64
	IsDefault   bool
}
