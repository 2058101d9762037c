package modem

import "fmt"

// HammingError reports a Hamming(7,4) decode failure: a syndrome that
// names an error position beyond the 7-bit codeword, which must never
// occur for a valid codeword (spec.md §4.2).
type HammingError struct {
	syndrome int
}

func (e *HammingError) Error() string {
	return fmt.Sprintf("hamming: syndrome %d names an invalid bit position", e.syndrome)
}

// hammingG is the systematic (7,4) generator matrix, rows = output bit
// position 1..7, columns = data bits b3 b2 b1 b0 (MSB-first), taken
// bit-exact from original_source/cryptofunctions.py's hamming_encode_4bit.
var hammingG = [7][4]int{
	{1, 1, 0, 1},
	{1, 0, 1, 1},
	{1, 0, 0, 0},
	{0, 1, 1, 1},
	{0, 1, 0, 0},
	{0, 0, 1, 0},
	{0, 0, 0, 1},
}

// hammingH is the parity-check matrix; H·r mod 2, read as a binary
// number, is the syndrome of a single bit error (0 = none).
var hammingH = [3][7]int{
	{1, 0, 1, 0, 1, 0, 1},
	{0, 1, 1, 0, 0, 1, 1},
	{0, 0, 0, 1, 1, 1, 1},
}

// hammingSyndromeToIndex maps a nonzero syndrome to the zero-based bit
// index it actually names, found by matching the syndrome against
// which column of hammingH equals it.
// original_source/cryptofunctions.py's hamming_decode_7bit instead
// reads the syndrome directly as a 1-based bit index
// (`bits[error_pos - 1] ^= 1`). That coincides with this table only for
// syndromes 2, 5 and 7: the columns at zero-based bit indices 0, 2, 3 and
// 5 have syndromes 4, 6, 1 and 3 rather than 1, 3, 4 and 6, so a direct
// reading flips the wrong bit for those four and silently fails to
// correct the error.
// We deviate from the original here since spec.md §8 property 4
// requires every single-bit error to be corrected, which is the entire
// reason MFSK carries Hamming FEC over the legacy BFSK path (spec.md
// §2, §9).
var hammingSyndromeToIndex = [8]int{-1, 3, 1, 5, 0, 4, 2, 6}

// hammingEncode encodes a 4-bit nibble (0..15) into a 7-bit codeword,
// returned as the low 7 bits of the result, MSB-first (bit 6 is the
// first transmitted bit).
func hammingEncode(nibble byte) byte {
	bits := [4]int{
		int((nibble >> 3) & 1),
		int((nibble >> 2) & 1),
		int((nibble >> 1) & 1),
		int(nibble & 1),
	}

	var codeword byte
	for i := 0; i < 7; i++ {
		sum := 0
		for j := 0; j < 4; j++ {
			sum += hammingG[i][j] * bits[j]
		}
		bit := byte(sum % 2)
		codeword = (codeword << 1) | bit
	}
	return codeword
}

// hammingDecode decodes a 7-bit codeword (low 7 bits of in, MSB-first)
// into a 4-bit nibble, correcting any single-bit error via
// hammingSyndromeToIndex. A syndrome outside 1..7 cannot occur for a
// 3-bit syndrome and would be a programming error, not a transmission
// error.
func hammingDecode(codeword byte) (byte, error) {
	bits := make([]int, 7)
	for i := 0; i < 7; i++ {
		bits[i] = int((codeword >> (6 - i)) & 1)
	}

	syndrome := 0
	for i := 0; i < 3; i++ {
		sum := 0
		for j := 0; j < 7; j++ {
			sum += hammingH[i][j] * bits[j]
		}
		syndrome = (syndrome << 1) | (sum % 2)
	}

	if syndrome != 0 {
		if syndrome < 1 || syndrome > 7 {
			return 0, &HammingError{syndrome: syndrome}
		}
		bits[hammingSyndromeToIndex[syndrome]] ^= 1
	}

	// Data bits live at zero-based positions 2,4,5,6 of the corrected
	// codeword, packed MSB-first (spec.md §4.2).
	nibble := byte(bits[2])<<3 | byte(bits[4])<<2 | byte(bits[5])<<1 | byte(bits[6])
	return nibble, nil
}
