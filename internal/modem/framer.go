package modem

import (
	"strings"
)

const (
	stxByte  = 0x02
	etxByte  = 0x03
	crcDelim = '|'
)

// symbolToBits splits a decided MFSK symbol into its bits_per_symbol bits,
// MSB-first. For BFSK the symbol IS the single bit.
func symbolToBits(cfg Config, symbol int) []int {
	n := cfg.BitsPerSymbol()
	bits := make([]int, n)
	for i := 0; i < n; i++ {
		bits[i] = (symbol >> (n - 1 - i)) & 1
	}
	return bits
}

// packBitsMSB packs bits (MSB-first) into an integer; used for symbols,
// nibbles, and bytes alike.
func packBitsMSB(bits []int) int {
	v := 0
	for _, b := range bits {
		v = (v << 1) | b
	}
	return v
}

// bytesToBits serializes bytes MSB-first into a bit slice.
func bytesToBits(data []byte) []int {
	bits := make([]int, 0, len(data)*8)
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			bits = append(bits, int((b>>uint(i))&1))
		}
	}
	return bits
}

// padBitsTrailingZero pads bits with trailing zeros to a multiple of n
// (spec.md §9 "padding is always trailing zeros").
func padBitsTrailingZero(bits []int, n int) []int {
	rem := len(bits) % n
	if rem == 0 {
		return bits
	}
	return append(bits, make([]int, n-rem)...)
}

// buildFrame implements spec.md §4.6's transmit side: payload construction,
// STX/ETX framing, bit serialization, and (for MFSK) Hamming encoding, down
// to a symbol sequence ready for tone synthesis. BFSK produces one "symbol"
// (0 or 1) per raw bit, with no FEC layer.
func buildFrame(cfg Config, cipherB64 string, crcHex string) []int {
	payload := cipherB64 + string(rune(crcDelim)) + crcHex
	framed := make([]byte, 0, len(payload)+2)
	framed = append(framed, stxByte)
	framed = append(framed, []byte(payload)...)
	framed = append(framed, etxByte)

	rawBits := bytesToBits(framed)

	if cfg.Mode != ModeMFSK {
		return rawBits
	}

	rawBits = padBitsTrailingZero(rawBits, 4)
	fecBits := make([]int, 0, len(rawBits)/4*7)
	for i := 0; i < len(rawBits); i += 4 {
		nibble := byte(packBitsMSB(rawBits[i : i+4]))
		code := hammingEncode(nibble)
		for b := 6; b >= 0; b-- {
			fecBits = append(fecBits, int((code>>uint(b))&1))
		}
	}

	bps := cfg.BitsPerSymbol()
	fecBits = padBitsTrailingZero(fecBits, bps)

	symbols := make([]int, 0, len(fecBits)/bps)
	for i := 0; i < len(fecBits); i += bps {
		symbols = append(symbols, packBitsMSB(fecBits[i:i+bps]))
	}
	return symbols
}

// deframer accumulates decided symbols into bytes and, ultimately, a
// decoded message, implementing spec.md §4.6's receive side. It holds all
// in-flight frame state; receiver.go drives it synchronously from on_audio.
type deframer struct {
	cfg         Config
	rawBits     []int
	decodedBits []int
	textBuf     strings.Builder
}

func newDeframer(cfg Config) *deframer {
	return &deframer{cfg: cfg}
}

func (d *deframer) reset() {
	d.rawBits = d.rawBits[:0]
	d.decodedBits = d.decodedBits[:0]
	d.textBuf.Reset()
}

// pushSymbol appends one decided symbol's bits to the in-flight frame and
// advances the byte/FEC pipeline as far as the accumulated bits allow. The
// caller (receiver.go) is responsible for verifying CRC and decrypting;
// pushSymbol only does bit/byte assembly plus Hamming decode, handing back
// a completed STX..ETX text buffer when ETX is seen.
func (d *deframer) pushSymbol(symbol int) (etxPayload string, gotETX bool, hammFail bool) {
	bits := symbolToBits(d.cfg, symbol)
	d.rawBits = append(d.rawBits, bits...)

	if d.cfg.Mode == ModeMFSK {
		for len(d.rawBits) >= 7 {
			code := d.rawBits[:7]
			d.rawBits = d.rawBits[7:]
			nibble, err := hammingDecode(byte(packBitsMSB(code)))
			if err != nil {
				return "", false, true
			}
			for b := 3; b >= 0; b-- {
				d.decodedBits = append(d.decodedBits, int((nibble>>uint(b))&1))
			}
		}
	} else {
		d.decodedBits = append(d.decodedBits, d.rawBits...)
		d.rawBits = d.rawBits[:0]
	}

	for len(d.decodedBits) >= 8 {
		byteBits := d.decodedBits[:8]
		d.decodedBits = d.decodedBits[8:]
		b := byte(packBitsMSB(byteBits))

		switch b {
		case stxByte:
			d.textBuf.Reset()
		case etxByte:
			payload := d.textBuf.String()
			d.textBuf.Reset()
			return payload, true, false
		default:
			d.textBuf.WriteByte(b)
		}
	}
	return "", false, false
}

// splitPayload splits "cipher|CRCHEX" on the LAST '|', per spec.md §4.6.
func splitPayload(payload string) (cipher string, crcHex string, ok bool) {
	idx := strings.LastIndexByte(payload, crcDelim)
	if idx < 0 {
		return "", "", false
	}
	return payload[:idx], payload[idx+1:], true
}
