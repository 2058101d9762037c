package modem

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stats is the plain snapshot returned by Modem.Stats() (spec.md §6).
type Stats struct {
	MsgsOK      uint64
	MsgsFail    uint64
	CRCFail     uint64
	HammingFail uint64
	SymFail     uint64
}

// modemMetrics holds the optional prometheus counters behind Stats, mirroring
// prometheus.go's PrometheusMetrics struct-of-promauto-collectors shape. It
// is nil until RegisterMetrics is called, so plain internal/modem use never
// requires a metrics registry.
type modemMetrics struct {
	msgsOK      prometheus.Counter
	msgsFail    prometheus.Counter
	crcFail     prometheus.Counter
	hammingFail prometheus.Counter
	symFail     prometheus.Counter
}

// RegisterMetrics registers this modem's counters with reg and attaches them,
// mirroring main.go's `if config.Prometheus.Enabled { prometheusMetrics = ... }`
// guard. Call at most once per Modem.
func (m *Modem) RegisterMetrics(reg prometheus.Registerer, modemName string) {
	factory := promauto.With(reg)
	m.rx.metrics = &modemMetrics{
		msgsOK: factory.NewCounter(prometheus.CounterOpts{
			Name:        "acoustic_modem_messages_ok_total",
			Help:        "Messages successfully decoded end to end.",
			ConstLabels: prometheus.Labels{"modem": modemName},
		}),
		msgsFail: factory.NewCounter(prometheus.CounterOpts{
			Name:        "acoustic_modem_messages_failed_total",
			Help:        "Messages that failed to decode for any reason.",
			ConstLabels: prometheus.Labels{"modem": modemName},
		}),
		crcFail: factory.NewCounter(prometheus.CounterOpts{
			Name:        "acoustic_modem_crc_failures_total",
			Help:        "Frames rejected by CRC-16/XMODEM verification.",
			ConstLabels: prometheus.Labels{"modem": modemName},
		}),
		hammingFail: factory.NewCounter(prometheus.CounterOpts{
			Name:        "acoustic_modem_hamming_failures_total",
			Help:        "Hamming(7,4) syndromes naming an invalid position.",
			ConstLabels: prometheus.Labels{"modem": modemName},
		}),
		symFail: factory.NewCounter(prometheus.CounterOpts{
			Name:        "acoustic_modem_symbol_failures_total",
			Help:        "Decided MFSK symbols at or beyond the configured M.",
			ConstLabels: prometheus.Labels{"modem": modemName},
		}),
	}
}

func (m *modemMetrics) incMsgsOK() {
	if m != nil {
		m.msgsOK.Inc()
	}
}

func (m *modemMetrics) incMsgsFail() {
	if m != nil {
		m.msgsFail.Inc()
	}
}

func (m *modemMetrics) incCRCFail() {
	if m != nil {
		m.crcFail.Inc()
	}
}

func (m *modemMetrics) incHammingFail() {
	if m != nil {
		m.hammingFail.Inc()
	}
}

func (m *modemMetrics) incSymFail() {
	if m != nil {
		m.symFail.Inc()
	}
}
