package embed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTokenizerFiles(t *testing.T, vocab, merges string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	vocabPath := filepath.Join(dir, "vocab.json")
	mergesPath := filepath.Join(dir, "merges.txt")
	require.NoError(t, os.WriteFile(vocabPath, []byte(vocab), 0644))
	require.NoError(t, os.WriteFile(mergesPath, []byte(merges), 0644))
	return vocabPath, mergesPath
}

func newTinyTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	vocabPath, mergesPath := writeTokenizerFiles(t,
		`{"<|startoftext|>": 1, "<|endoftext|>": 2, "h": 3, "i": 4, "i</w>": 5, "hi</w>": 6}`,
		"h i</w>\n")
	tok, err := NewTokenizer(vocabPath, mergesPath)
	require.NoError(t, err)
	return tok
}

func TestTokenizerEncodeMergesWord(t *testing.T) {
	tok := newTinyTokenizer(t)

	ids, mask := tok.Encode("hi")

	require.Len(t, ids, contextLength)
	require.Len(t, mask, contextLength)

	assert.Equal(t, int64(1), ids[0], "sequence starts with <|startoftext|>")
	assert.Equal(t, int64(6), ids[1], "h+i</w> merges into hi</w>")
	assert.Equal(t, int64(2), ids[2], "sequence ends with <|endoftext|>")
	assert.Equal(t, int64(0), ids[3], "remainder is zero padding")

	assert.Equal(t, []int64{1, 1, 1, 0}, mask[:4])
}

func TestTokenizerEncodeLowercasesAndCollapsesWhitespace(t *testing.T) {
	tok := newTinyTokenizer(t)

	plain, _ := tok.Encode("hi")
	shouted, _ := tok.Encode("  HI \t ")

	assert.Equal(t, plain, shouted)
}

func TestTokenizerEncodeSkipsUnknownSymbols(t *testing.T) {
	tok := newTinyTokenizer(t)

	ids, mask := tok.Encode("zz")

	assert.Equal(t, int64(1), ids[0])
	assert.Equal(t, int64(2), ids[1], "unknown word contributes no ids")
	assert.Equal(t, []int64{1, 1, 0}, mask[:3])
}

func TestTokenizerEncodeTruncatesToContextLength(t *testing.T) {
	tok := newTinyTokenizer(t)

	ids, mask := tok.Encode(strings.Repeat("hi ", 200))

	require.Len(t, ids, contextLength)
	assert.Equal(t, int64(2), ids[contextLength-1], "end marker survives truncation")
	for _, m := range mask {
		assert.Equal(t, int64(1), m)
	}
}

func TestNewTokenizerRejectsMissingSpecials(t *testing.T) {
	vocabPath, mergesPath := writeTokenizerFiles(t, `{"h": 3}`, "")

	_, err := NewTokenizer(vocabPath, mergesPath)
	assert.Error(t, err)
}

func TestBuildByteEncoderCoversAllBytes(t *testing.T) {
	enc := buildByteEncoder()

	require.Len(t, enc, 256)
	assert.Equal(t, 'h', enc['h'], "printable ascii maps to itself")

	seen := make(map[rune]bool, 256)
	for _, r := range enc {
		assert.False(t, seen[r], "byte encoder must be injective")
		seen[r] = true
	}
}
