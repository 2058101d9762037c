package modem

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Mode selects the over-the-air variant. spec.md §9 requires both
// peers to agree on Mode explicitly; there is no negotiation.
type Mode int

const (
	// ModeBFSKLegacy is the legacy binary FSK path with no Hamming FEC,
	// matching the original encrypted-fsk transmitter/receiver.
	ModeBFSKLegacy Mode = iota
	// ModeMFSK is the 16-ary FSK path with Hamming(7,4) FEC.
	ModeMFSK
)

// String returns the human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeBFSKLegacy:
		return "bfsk-legacy"
	case ModeMFSK:
		return "mfsk"
	default:
		return "unknown"
	}
}

// ModeFromString converts a configuration string to a Mode.
func ModeFromString(s string) (Mode, error) {
	switch s {
	case "bfsk-legacy", "bfsk", "BFSK":
		return ModeBFSKLegacy, nil
	case "mfsk", "MFSK":
		return ModeMFSK, nil
	default:
		return 0, fmt.Errorf("unknown modem mode: %s", s)
	}
}

// MarshalYAML implements yaml.Marshaler for Mode.
func (m Mode) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler for Mode.
func (m *Mode) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	mode, err := ModeFromString(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Priority selects which predefined preamble pattern a transmission uses.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityUrgent
)

func (p Priority) String() string {
	if p == PriorityUrgent {
		return "urgent"
	}
	return "normal"
}

// Config is the immutable-per-session modem configuration (spec.md §3).
type Config struct {
	SampleRate      int     `yaml:"sample_rate"`
	Baud            int     `yaml:"baud"`
	Mode            Mode    `yaml:"mode"`
	M               int     `yaml:"m"` // MFSK alphabet size, power of two
	BaseFreq        float64 `yaml:"base_freq"`
	FreqSpacing     float64 `yaml:"freq_spacing"`
	F0              float64 `yaml:"f0"` // BFSK only
	F1              float64 `yaml:"f1"` // BFSK only
	Volume          float64 `yaml:"volume"`
	PreambleSymbols int     `yaml:"preamble_symbols"`
	PowerGate       float64 `yaml:"power_gate"`
	ConfidenceRatio float64 `yaml:"confidence_ratio"`
}

// DefaultMFSKConfig returns the spec's default MFSK-mode configuration
// (spec.md §6 "Defaults").
func DefaultMFSKConfig() Config {
	return Config{
		SampleRate:      44100,
		Baud:            45,
		Mode:            ModeMFSK,
		M:               16,
		BaseFreq:        1000.0,
		FreqSpacing:     100.0,
		Volume:          0.3,
		PreambleSymbols: 16,
		PowerGate:       1000.0,
		ConfidenceRatio: 1.3,
	}
}

// DefaultBFSKLegacyConfig returns the spec's default legacy BFSK
// configuration (spec.md §6).
func DefaultBFSKLegacyConfig() Config {
	return Config{
		SampleRate:      44100,
		Baud:            40,
		Mode:            ModeBFSKLegacy,
		F0:              1000.0,
		F1:              2000.0,
		Volume:          0.3,
		PreambleSymbols: 16,
		PowerGate:       1000.0,
		ConfidenceRatio: 1.5,
	}
}

// SamplesPerSymbol returns ⌊sample_rate / baud⌋.
func (c Config) SamplesPerSymbol() int {
	return c.SampleRate / c.Baud
}

// BitsPerSymbol returns log2(M) for MFSK, or 1 for BFSK.
func (c Config) BitsPerSymbol() int {
	if c.Mode == ModeBFSKLegacy {
		return 1
	}
	bits := 0
	for m := c.M; m > 1; m >>= 1 {
		bits++
	}
	return bits
}

// Frequencies returns the MFSK tone bank frequencies[i] = base+i*spacing,
// or the two-element {f0, f1} bank for BFSK.
func (c Config) Frequencies() []float64 {
	if c.Mode == ModeBFSKLegacy {
		return []float64{c.F0, c.F1}
	}
	freqs := make([]float64, c.M)
	for i := 0; i < c.M; i++ {
		freqs[i] = c.BaseFreq + float64(i)*c.FreqSpacing
	}
	return freqs
}

// Validate checks the invariants from spec.md §3.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("baud must be positive")
	}
	if c.SamplesPerSymbol() < 1 {
		return fmt.Errorf("samples_per_symbol must be >= 1, got %d", c.SamplesPerSymbol())
	}
	if c.Mode == ModeMFSK {
		if c.M < 2 || c.M&(c.M-1) != 0 {
			return fmt.Errorf("m must be a power of two >= 2, got %d", c.M)
		}
		for i, f := range c.Frequencies() {
			if f >= float64(c.SampleRate)/2 {
				return fmt.Errorf("frequencies[%d]=%.1f must be below nyquist %.1f", i, f, float64(c.SampleRate)/2)
			}
		}
	} else {
		if c.F0 <= 0 || c.F1 <= 0 {
			return fmt.Errorf("f0 and f1 must be positive")
		}
		nyquist := float64(c.SampleRate) / 2
		if c.F0 >= nyquist || c.F1 >= nyquist {
			return fmt.Errorf("f0/f1 must be below nyquist %.1f", nyquist)
		}
	}
	if c.Volume <= 0 || c.Volume > 1 {
		return fmt.Errorf("volume must be in (0,1], got %.3f", c.Volume)
	}
	if c.PreambleSymbols <= 0 {
		return fmt.Errorf("preamble_symbols must be positive")
	}
	if c.PowerGate < 0 {
		return fmt.Errorf("power_gate must be non-negative")
	}
	if c.ConfidenceRatio <= 1 {
		return fmt.Errorf("confidence_ratio must be > 1, got %.3f", c.ConfidenceRatio)
	}
	if math.IsNaN(c.Volume) {
		return fmt.Errorf("volume must not be NaN")
	}
	return nil
}

// LoadConfig loads a Config from a YAML file, mirroring the teacher's
// server-wide LoadConfig/Validate pattern.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read modem config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse modem config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid modem config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to a YAML file.
func (c Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal modem config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write modem config file: %w", err)
	}
	return nil
}
