package modem

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// TransLog is an append-only, zstd-compressed transcript of decoded
// messages, grounded on decoder_spots_log.go's open-file-plus-mutex
// append pattern but swapping its plain CSV writer for a real streaming
// compressor, one JSON line per decoded message.
type TransLog struct {
	mu      sync.Mutex
	file    *os.File
	encoder *zstd.Encoder
}

// transcriptRecord is one decoded-message line in the transcript.
type transcriptRecord struct {
	Time      time.Time `json:"time"`
	Plaintext string    `json:"plaintext"`
	Priority  string    `json:"priority"`
}

// OpenTranscriptLog opens (creating if needed) a zstd-compressed
// append-only transcript file at path.
func OpenTranscriptLog(path string) (*TransLog, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("translog: open %s: %w", path, err)
	}
	enc, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("translog: new zstd encoder: %w", err)
	}
	return &TransLog{file: f, encoder: enc}, nil
}

// Append writes one decoded message as a zstd-compressed JSON line and
// flushes so a crash loses at most the in-flight record.
func (t *TransLog) Append(msg DecodedMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := transcriptRecord{
		Time:      time.Now(),
		Plaintext: msg.Plaintext,
		Priority:  msg.Priority.String(),
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("translog: marshal: %w", err)
	}
	line = append(line, '\n')

	if _, err := t.encoder.Write(line); err != nil {
		return fmt.Errorf("translog: write: %w", err)
	}
	return t.encoder.Flush()
}

// Close flushes and closes the underlying encoder and file.
func (t *TransLog) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.encoder.Close(); err != nil {
		t.file.Close()
		return fmt.Errorf("translog: close encoder: %w", err)
	}
	return t.file.Close()
}
