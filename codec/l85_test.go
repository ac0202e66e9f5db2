package codec

import (
	"bytes"
	"crypto/sha1"
	"sort"
	"testing"
)

func TestL85VerifyAlphabet(t *testing.T) {
	// Verify the alphabet is exactly 85 characters
	if len(L85Alphabet) != 85 {
		t.Errorf("Alphabet length is %d, expected 85", len(L85Alphabet))
	}

	// Verify no duplicates
	seen := make(map[rune]bool)
	for i, c := range L85Alphabet {
		if seen[c] {
			t.Errorf("Duplicate character %c at position %d", c, i)
		}
		seen[c] = true
	}

	// Verify alphabet is sorted (for sort order preservation)
	sorted := []byte(L85Alphabet)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})
	if string(sorted) != L85Alphabet {
		t.Error("Alphabet is not in sorted order")
		t.Logf("Expected: %s", string(sorted))
		t.Logf("Actual:   %s", L85Alphabet)
	}
}

func TestL85VerifySortOrder(t *testing.T) {
	// Create many hashes and verify encoding preserves sort order, since
	// that property is the entire reason Fingerprint uses this codec
	// instead of plain hex.
	var data []struct {
		str     string
		hash    [20]byte
		encoded string
	}

	testStrings := []string{
		"", "a", "b", "c", "aa", "ab", "ba", "bb",
		"alice", "bob", "charlie", "diana", "eve",
		"test1", "test2", "test10", "test20",
	}

	for _, s := range testStrings {
		hash := sha1.Sum([]byte(s))
		encoded := EncodeL85(hash[:])
		data = append(data, struct {
			str     string
			hash    [20]byte
			encoded string
		}{s, hash, encoded})
	}

	sortedByHash := make([]int, len(data))
	for i := range sortedByHash {
		sortedByHash[i] = i
	}
	sort.Slice(sortedByHash, func(i, j int) bool {
		return bytes.Compare(
			data[sortedByHash[i]].hash[:],
			data[sortedByHash[j]].hash[:],
		) < 0
	})

	sortedByEncoded := make([]int, len(data))
	for i := range sortedByEncoded {
		sortedByEncoded[i] = i
	}
	sort.Slice(sortedByEncoded, func(i, j int) bool {
		return data[sortedByEncoded[i]].encoded < data[sortedByEncoded[j]].encoded
	})

	for i := range sortedByHash {
		if sortedByHash[i] != sortedByEncoded[i] {
			t.Errorf("sort order mismatch at position %d: by hash %q, by encoded %q",
				i, data[sortedByHash[i]].str, data[sortedByEncoded[i]].str)
		}
	}
}

func TestL85VerifySpecificBytes(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"all zeros", bytes.Repeat([]byte{0x00}, 20)},
		{"all ones", bytes.Repeat([]byte{0xFF}, 20)},
		{"single byte", []byte{0x42}},
		{"eight bytes", []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodeL85(tt.input)
			if len(tt.input) == 0 && encoded != "" {
				t.Errorf("expected empty input to encode to empty string, got %q", encoded)
			}
			// Encoding is a pure function of the input bytes.
			if again := EncodeL85(tt.input); again != encoded {
				t.Errorf("EncodeL85 is not deterministic: %q != %q", encoded, again)
			}
		})
	}
}
