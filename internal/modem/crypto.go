package modem

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"
)

// CipherError reports a failure in the crypto envelope: bad length,
// bad padding, or non-UTF-8 plaintext after decryption. Decryption
// does not authenticate by itself; integrity comes from the frame CRC
// (spec.md §4.1).
type CipherError struct {
	msg string
}

func (e *CipherError) Error() string { return "cipher: " + e.msg }

func newCipherError(format string, args ...interface{}) error {
	return &CipherError{msg: fmt.Sprintf(format, args...)}
}

const (
	pbkdf2Iterations = 100_000
	keyLen           = 32 // AES-256
	saltLen          = 16
	ivLen            = 16
	blockSize        = 16
)

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keyLen, sha256.New)
}

func pkcs7Pad(data []byte) []byte {
	padLen := blockSize - (len(data) % blockSize)
	if padLen == 0 {
		padLen = blockSize
	}
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, newCipherError("padded plaintext length %d is not a positive multiple of %d", len(data), blockSize)
	}
	padLen := int(data[len(data)-1])
	if padLen < 1 || padLen > blockSize || padLen > len(data) {
		return nil, newCipherError("invalid PKCS#7 padding length %d", padLen)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, newCipherError("inconsistent PKCS#7 padding bytes")
		}
	}
	return data[:len(data)-padLen], nil
}

// encrypt implements spec.md §4.1's encrypt operation: derive a key
// from a random salt, encrypt with AES-256-CBC under a random IV, and
// return base64(salt‖iv‖ciphertext).
func encrypt(plaintext string, passphrase string) (string, error) {
	if passphrase == "" {
		return "", newCipherError("passphrase must not be empty")
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cipher: failed to generate salt: %w", err)
	}
	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("cipher: failed to generate iv: %w", err)
	}

	key := deriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("cipher: failed to create AES cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext))
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	out := make([]byte, 0, saltLen+ivLen+len(ciphertext))
	out = append(out, salt...)
	out = append(out, iv...)
	out = append(out, ciphertext...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// decrypt implements spec.md §4.1's decrypt operation.
func decrypt(encoded string, passphrase string) (string, error) {
	if passphrase == "" {
		return "", newCipherError("passphrase must not be empty")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", newCipherError("invalid base64: %v", err)
	}
	if len(raw) < saltLen+ivLen || (len(raw)-saltLen-ivLen)%blockSize != 0 {
		return "", newCipherError("invalid envelope length %d", len(raw))
	}

	salt := raw[:saltLen]
	iv := raw[saltLen : saltLen+ivLen]
	ciphertext := raw[saltLen+ivLen:]

	key := deriveKey(passphrase, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("cipher: failed to create AES cipher: %w", err)
	}
	if len(ciphertext) == 0 {
		return "", newCipherError("empty ciphertext")
	}

	padded := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plain, err := pkcs7Unpad(padded)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plain) {
		return "", newCipherError("decrypted plaintext is not valid UTF-8")
	}
	return string(plain), nil
}

// crc16XModem computes CRC-16/XMODEM (poly 0x1021, init 0x0000, no
// reflection, no final XOR) over data and returns it as a uint16;
// crc16Hex formats it as an uppercase 4-hex-digit string (spec.md §4.1,
// §GLOSSARY).
func crc16XModem(data []byte) uint16 {
	crc := uint16(0x0000)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func crc16Hex(data string) string {
	return fmt.Sprintf("%04X", crc16XModem([]byte(data)))
}

func verifyCRC(data string, hexCRC string) bool {
	want := crc16Hex(data)
	return len(hexCRC) == len(want) && equalFoldASCII(want, hexCRC)
}

func equalFoldASCII(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'a' && ca <= 'z' {
			ca -= 'a' - 'A'
		}
		if cb >= 'a' && cb <= 'z' {
			cb -= 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
