// Package mqttpub is an optional MQTT publisher for modem events, grounded
// on mqtt_publisher.go's NewClientOptions/AddBroker/TLS-loader shape but
// trimmed to two topics, "<prefix>/messages" and "<prefix>/stats", carrying
// decoded messages and stat snapshots as JSON (SPEC_FULL.md's structured equivalent of the original's stdout
// logging).
package mqttpub

import (
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// TLSConfig mirrors config.go's MQTTTLSConfig shape.
type TLSConfig struct {
	Enabled    bool
	CACert     string
	ClientCert string
	ClientKey  string
}

// Config mirrors config.go's MQTTConfig shape, trimmed to what a modem
// publisher needs: no spectrum/metrics-interval fields, since the modem has
// no spectrum concept.
type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Retain      bool
	TLS         TLSConfig
}

// Publisher publishes decoded-message and stats events to a single MQTT
// broker, mirroring MQTTPublisher's client/config pairing.
type Publisher struct {
	client mqtt.Client
	cfg    Config
}

func generateClientID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return "acoustic_modem_" + hex.EncodeToString(b)
}

func loadTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	tlsCfg := &tls.Config{}
	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("mqttpub: read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("mqttpub: parse CA cert")
		}
		tlsCfg.RootCAs = pool
	}
	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("mqttpub: load client cert: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

// New connects to cfg.Broker and returns a ready Publisher.
func New(cfg Config) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(generateClientID())
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	if cfg.TLS.Enabled {
		tlsCfg, err := loadTLSConfig(cfg.TLS)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Println("[MQTT] connected to broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("[MQTT] connection lost: %v", err)
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		log.Println("[MQTT] reconnecting...")
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqttpub: connect to %s: %w", cfg.Broker, token.Error())
	}
	log.Printf("[MQTT] connected to %s", cfg.Broker)

	return &Publisher{client: client, cfg: cfg}, nil
}

// messagePayload is published to "<prefix>/messages" for each decoded message.
type messagePayload struct {
	Timestamp string `json:"timestamp"`
	Plaintext string `json:"plaintext"`
	Priority  string `json:"priority"`
}

// statsPayload is published to "<prefix>/stats".
type statsPayload struct {
	Timestamp   string `json:"timestamp"`
	MsgsOK      uint64 `json:"msgs_ok"`
	MsgsFail    uint64 `json:"msgs_fail"`
	CRCFail     uint64 `json:"crc_fail"`
	HammingFail uint64 `json:"hamming_fail"`
	SymFail     uint64 `json:"sym_fail"`
}

func (p *Publisher) publish(topic string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("[MQTT] marshal failed for %s: %v", topic, err)
		return
	}
	token := p.client.Publish(p.cfg.TopicPrefix+"/"+topic, p.cfg.QoS, p.cfg.Retain, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		log.Printf("[MQTT] publish to %s failed: %v", topic, err)
	}
}

// PublishMessage publishes one decoded message.
func (p *Publisher) PublishMessage(plaintext, priority string) {
	p.publish("messages", messagePayload{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Plaintext: plaintext,
		Priority:  priority,
	})
}

// PublishStats publishes a stats snapshot.
func (p *Publisher) PublishStats(msgsOK, msgsFail, crcFail, hammingFail, symFail uint64) {
	p.publish("stats", statsPayload{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		MsgsOK:      msgsOK,
		MsgsFail:    msgsFail,
		CRCFail:     crcFail,
		HammingFail: hammingFail,
		SymFail:     symFail,
	})
}

// Disconnect gracefully disconnects from the broker.
func (p *Publisher) Disconnect() {
	p.client.Disconnect(250)
}
