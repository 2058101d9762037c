//go:build portaudio

// Command modemctl is the CLI binary wiring internal/modem's pipeline to a
// real sound device, grounded on main.go's flag.String/flag.Bool/flag.Parse
// bootstrap shape and log.Fatalf error style, adapted to three subcommands
// ("send", "listen", "devices") instead of an HTTP server.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwsl/acoustic-modem/internal/audioio"
	"github.com/cwsl/acoustic-modem/internal/modem"
	"github.com/cwsl/acoustic-modem/internal/monitor"
	"github.com/cwsl/acoustic-modem/internal/mqttpub"
)

// DebugMode gates verbose per-symbol logging, mirroring main.go's
// package-level DebugMode toggle.
var DebugMode bool

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "send":
		runSend(os.Args[2:])
	case "listen":
		runListen(os.Args[2:])
	case "devices":
		runDevices(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: modemctl <send|listen|devices> [flags]")
}

func loadPassphrase(passphraseFile string) (string, error) {
	if env := os.Getenv("MODEM_PASSPHRASE"); env != "" {
		return env, nil
	}
	if passphraseFile != "" {
		data, err := os.ReadFile(passphraseFile)
		if err != nil {
			return "", fmt.Errorf("read passphrase file: %w", err)
		}
		return string(trimNewline(data)), nil
	}
	return "", fmt.Errorf("passphrase required: set MODEM_PASSPHRASE or pass -passphrase-file (password entry via CLI args is out of scope)")
}

func trimNewline(data []byte) []byte {
	for len(data) > 0 && (data[len(data)-1] == '\n' || data[len(data)-1] == '\r') {
		data = data[:len(data)-1]
	}
	return data
}

func loadConfig(configPath string, legacy bool) modem.Config {
	if configPath != "" {
		cfg, err := modem.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load modem config: %v", err)
		}
		return *cfg
	}
	if legacy {
		return modem.DefaultBFSKLegacyConfig()
	}
	return modem.DefaultMFSKConfig()
}

func runSend(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to a modem config YAML file (default: built-in MFSK defaults)")
	legacy := fs.Bool("legacy-bfsk", false, "Use the legacy BFSK (no FEC) mode instead of MFSK")
	passphraseFile := fs.String("passphrase-file", "", "Path to a file containing the shared passphrase")
	urgent := fs.Bool("urgent", false, "Send with the urgent preamble instead of normal")
	outputDevice := fs.Int("output-device", -1, "PortAudio output device index (default: system default)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)
	DebugMode = *debug

	if fs.NArg() < 1 {
		log.Fatalf("usage: modemctl send [flags] <message>")
	}
	message := fs.Arg(0)

	passphrase, err := loadPassphrase(*passphraseFile)
	if err != nil {
		log.Fatalf("%v", err)
	}

	cfg := loadConfig(*configPath, *legacy)
	sink := audioio.NewPortAudioSink(*outputDevice)

	m, err := modem.New(cfg, passphrase, sink)
	if err != nil {
		log.Fatalf("Failed to initialize modem: %v", err)
	}
	m.DebugMode = DebugMode

	priority := modem.PriorityNormal
	if *urgent {
		priority = modem.PriorityUrgent
	}

	if err := m.Transmit(message, passphrase, priority); err != nil {
		log.Fatalf("Transmit failed: %v", err)
	}
	log.Printf("[modemctl] sent %q (priority=%s)", message, priority)
}

func runListen(args []string) {
	fs := flag.NewFlagSet("listen", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to a modem config YAML file (default: built-in MFSK defaults)")
	legacy := fs.Bool("legacy-bfsk", false, "Use the legacy BFSK (no FEC) mode instead of MFSK")
	passphraseFile := fs.String("passphrase-file", "", "Path to a file containing the shared passphrase")
	inputDevice := fs.Int("input-device", -1, "PortAudio input device index (default: system default)")
	metricsAddr := fs.String("metrics-addr", "", "Address to serve Prometheus /metrics on (empty disables)")
	monitorAddr := fs.String("monitor-addr", "", "Address to serve the /monitor websocket on (empty disables)")
	mqttBroker := fs.String("mqtt-broker", "", "MQTT broker URL to publish decoded messages to (empty disables)")
	transcriptPath := fs.String("transcript", "", "Path to an append-only zstd transcript log (empty disables)")
	debug := fs.Bool("debug", false, "Enable debug logging")
	fs.Parse(args)
	DebugMode = *debug

	passphrase, err := loadPassphrase(*passphraseFile)
	if err != nil {
		log.Fatalf("%v", err)
	}

	cfg := loadConfig(*configPath, *legacy)

	m, err := modem.New(cfg, passphrase, nil)
	if err != nil {
		log.Fatalf("Failed to initialize modem: %v", err)
	}
	m.DebugMode = DebugMode

	var hub *monitor.Hub
	if *monitorAddr != "" {
		hub = monitor.NewHub()
		mux := http.NewServeMux()
		mux.HandleFunc("/monitor", hub.ServeHTTP)
		go func() {
			log.Printf("[modemctl] monitor websocket listening on %s/monitor", *monitorAddr)
			if err := http.ListenAndServe(*monitorAddr, mux); err != nil {
				log.Printf("[modemctl] monitor server stopped: %v", err)
			}
		}()
	}

	var pub *mqttpub.Publisher
	if *mqttBroker != "" {
		pub, err = mqttpub.New(mqttpub.Config{Broker: *mqttBroker, TopicPrefix: "acoustic_modem"})
		if err != nil {
			log.Fatalf("Failed to connect to MQTT broker: %v", err)
		}
		defer pub.Disconnect()
	}

	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		m.RegisterMetrics(reg, "default")
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			log.Printf("[modemctl] prometheus metrics listening on %s/metrics", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Printf("[modemctl] metrics server stopped: %v", err)
			}
		}()
	}

	if *transcriptPath != "" {
		t, err := modem.OpenTranscriptLog(*transcriptPath)
		if err != nil {
			log.Fatalf("Failed to open transcript log: %v", err)
		}
		defer t.Close()
		m.SetTranscriptLog(t)
	}

	if hub != nil || pub != nil {
		go func() {
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				s := m.Stats()
				if hub != nil {
					hub.BroadcastStats(s.MsgsOK, s.MsgsFail, s.CRCFail, s.HammingFail, s.SymFail)
				}
				if pub != nil {
					pub.PublishStats(s.MsgsOK, s.MsgsFail, s.CRCFail, s.HammingFail, s.SymFail)
				}
			}
		}()
	}

	source := audioio.NewPortAudioSource(cfg.SampleRate, *inputDevice)
	err = source.Start(func(block []float32, status audioio.Status) {
		if status.Overflow {
			// spec.md §7: acknowledge overflow by dropping this block
			// rather than stalling the callback.
			return
		}
		for _, msg := range m.OnAudio(block) {
			log.Printf("[modemctl] decoded %q priority=%s", msg.Plaintext, msg.Priority)
			if hub != nil {
				hub.BroadcastMessage(msg.Plaintext, msg.Priority.String())
			}
			if pub != nil {
				pub.PublishMessage(msg.Plaintext, msg.Priority.String())
			}
		}
	})
	if err != nil {
		log.Fatalf("Failed to start audio input: %v", err)
	}
	defer source.Stop()

	log.Printf("[modemctl] listening (mode=%s, sample_rate=%d, baud=%d); press Ctrl+C to stop", cfg.Mode, cfg.SampleRate, cfg.Baud)
	select {}
}

func runDevices(args []string) {
	fs := flag.NewFlagSet("devices", flag.ExitOnError)
	fs.Parse(args)

	inputs, err := audioio.ListInputDevices()
	if err != nil {
		log.Fatalf("Failed to list input devices: %v", err)
	}
	outputs, err := audioio.ListOutputDevices()
	if err != nil {
		log.Fatalf("Failed to list output devices: %v", err)
	}

	fmt.Println("Input devices:")
	for _, d := range inputs {
		fmt.Printf("  [%d] %s (channels=%d, default=%v)\n", d.Index, d.Name, d.MaxChannels, d.IsDefault)
	}
	fmt.Println("Output devices:")
	for _, d := range outputs {
		fmt.Printf("  [%d] %s (channels=%d, default=%v)\n", d.Index, d.Name, d.MaxChannels, d.IsDefault)
	}
}
