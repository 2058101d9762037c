//go:build portaudio

package audioio

import (
	"fmt"
	"log"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSource is a Source backed by a real input device, grounded on
// clients/go/api_handlers.go's Initialize/Devices/DefaultOutputDevice usage
// style, generalized to streaming input.
type PortAudioSource struct {
	sampleRate int
	device     int // -1 for default
	stream     *portaudio.Stream
}

// NewPortAudioSource opens no device yet; Start does. device < 0 selects
// the driver's default input device.
func NewPortAudioSource(sampleRate, device int) *PortAudioSource {
	return &PortAudioSource{sampleRate: sampleRate, device: device}
}

func (s *PortAudioSource) SampleRate() int { return s.sampleRate }

func (s *PortAudioSource) Start(onBlock func(block []float32, status Status)) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audioio: portaudio init: %w", err)
	}

	buf := make([]float32, 1024)
	callback := func(in []float32) {
		onBlock(in, Status{})
	}

	var stream *portaudio.Stream
	var err error
	if s.device < 0 {
		stream, err = portaudio.OpenDefaultStream(1, 0, float64(s.sampleRate), len(buf), callback)
	} else {
		devices, derr := portaudio.Devices()
		if derr != nil {
			return fmt.Errorf("audioio: list devices: %w", derr)
		}
		if s.device >= len(devices) {
			return fmt.Errorf("audioio: input device index %d out of range", s.device)
		}
		params := portaudio.LowLatencyParameters(devices[s.device], nil)
		params.Input.Channels = 1
		params.SampleRate = float64(s.sampleRate)
		params.FramesPerBuffer = len(buf)
		stream, err = portaudio.OpenStream(params, callback)
	}
	if err != nil {
		return fmt.Errorf("audioio: open input stream: %w", err)
	}
	s.stream = stream
	if err := stream.Start(); err != nil {
		return fmt.Errorf("audioio: start input stream: %w", err)
	}
	log.Printf("[AudioIO] input stream started, sample_rate=%d device=%d", s.sampleRate, s.device)
	return nil
}

func (s *PortAudioSource) Stop() error {
	if s.stream == nil {
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("audioio: stop input stream: %w", err)
	}
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("audioio: close input stream: %w", err)
	}
	portaudio.Terminate()
	return nil
}

// PortAudioSink is a Sink backed by a real output device.
type PortAudioSink struct {
	device int // -1 for default
}

func NewPortAudioSink(device int) *PortAudioSink {
	return &PortAudioSink{device: device}
}

// Play blocks until signal has fully drained through the output device,
// mirroring sounddevice's play()+wait() pair in original_source/transmitter.py.
// It uses portaudio's blocking Write API (a shared buffer, no callback)
// rather than the callback-based Source side of this package.
func (s *PortAudioSink) Play(signal []float64, sampleRate int) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audioio: portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	const framesPerBuffer = 1024
	buf := make([]float32, framesPerBuffer)

	var stream *portaudio.Stream
	var err error
	if s.device < 0 {
		stream, err = portaudio.OpenDefaultStream(0, 1, float64(sampleRate), framesPerBuffer, &buf)
	} else {
		devices, derr := portaudio.Devices()
		if derr != nil {
			return fmt.Errorf("audioio: list devices: %w", derr)
		}
		if s.device >= len(devices) {
			return fmt.Errorf("audioio: output device index %d out of range", s.device)
		}
		params := portaudio.LowLatencyParameters(nil, devices[s.device])
		params.Output.Channels = 1
		params.SampleRate = float64(sampleRate)
		params.FramesPerBuffer = framesPerBuffer
		stream, err = portaudio.OpenStream(params, &buf)
	}
	if err != nil {
		return fmt.Errorf("audioio: open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("audioio: start output stream: %w", err)
	}
	defer stream.Stop()

	for pos := 0; pos < len(signal); pos += framesPerBuffer {
		n := copy(buf, float32Slice(signal[pos:]))
		for i := n; i < len(buf); i++ {
			buf[i] = 0
		}
		if err := stream.Write(); err != nil {
			return fmt.Errorf("audioio: write output stream: %w", err)
		}
	}
	return nil
}

func float32Slice(in []float64) []float32 {
	n := len(in)
	if n > 1024 {
		n = 1024
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = float32(in[i])
	}
	return out
}

// ListInputDevices returns every device with at least one input channel,
// grounded on api_handlers.go's getAudioDevices (same call shape, input
// channels instead of output).
func ListInputDevices() ([]Device, error) {
	return listDevices(func(d *portaudio.DeviceInfo) int { return d.MaxInputChannels })
}

// ListOutputDevices returns every device with at least one output channel.
func ListOutputDevices() ([]Device, error) {
	return listDevices(func(d *portaudio.DeviceInfo) int { return d.MaxOutputChannels })
}

func listDevices(channels func(*portaudio.DeviceInfo) int) ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("audioio: portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("audioio: list devices: %w", err)
	}

	defaultOut, _ := portaudio.DefaultOutputDevice()

	var out []Device
	for i, d := range devices {
		if channels(d) <= 0 {
			continue
		}
		out = append(out, Device{
			Index:       i,
			Name:        d.Name,
			MaxChannels: channels(d),
			SampleRate:  d.DefaultSampleRate,
			IsDefault:   defaultOut != nil && d.Name == defaultOut.Name,
		})
	}
	return out, nil
}
