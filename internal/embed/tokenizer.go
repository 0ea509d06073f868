package embed

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// contextLength is the fixed token window of the CLIP text encoder.
const contextLength = 77

const (
	startOfText = "<|startoftext|>"
	endOfText   = "<|endoftext|>"
)

// tokenPattern matches the CLIP tokenizer's word splitting rules.
var tokenPattern = regexp.MustCompile(`(?i)'s|'t|'re|'ve|'m|'ll|'d|[\p{L}]+|[\p{N}]|[^\s\p{L}\p{N}]+`)

// Tokenizer implements CLIP's byte-pair encoding. It is loaded from the
// vocab.json and merges.txt files shipped alongside the exported model.
type Tokenizer struct {
	vocab       map[string]int64
	ranks       map[[2]string]int
	byteEncoder map[byte]rune
	cache       map[string][]string
	sotID       int64
	eotID       int64
}

// NewTokenizer loads a BPE tokenizer from vocab and merges files.
func NewTokenizer(vocabPath, mergesPath string) (*Tokenizer, error) {
	vocabData, err := os.ReadFile(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocab: %w", err)
	}

	vocab := make(map[string]int64)
	if err := json.Unmarshal(vocabData, &vocab); err != nil {
		return nil, fmt.Errorf("failed to parse vocab: %w", err)
	}

	sotID, ok := vocab[startOfText]
	if !ok {
		return nil, fmt.Errorf("vocab missing %s token", startOfText)
	}
	eotID, ok := vocab[endOfText]
	if !ok {
		return nil, fmt.Errorf("vocab missing %s token", endOfText)
	}

	mergesFile, err := os.Open(mergesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read merges: %w", err)
	}
	defer mergesFile.Close()

	ranks := make(map[[2]string]int)
	scanner := bufio.NewScanner(mergesFile)
	rank := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			continue
		}
		ranks[[2]string{parts[0], parts[1]}] = rank
		rank++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan merges: %w", err)
	}

	return &Tokenizer{
		vocab:       vocab,
		ranks:       ranks,
		byteEncoder: buildByteEncoder(),
		cache:       make(map[string][]string),
		sotID:       sotID,
		eotID:       eotID,
	}, nil
}

// Encode tokenizes text into a fixed-length id sequence, wrapped in
// start/end markers, truncated and zero-padded to the context length.
// The second return value is the matching attention mask.
func (t *Tokenizer) Encode(text string) ([]int64, []int64) {
	cleaned := strings.Join(strings.Fields(strings.ToLower(text)), " ")

	ids := make([]int64, 0, contextLength)
	ids = append(ids, t.sotID)

	for _, word := range tokenPattern.FindAllString(cleaned, -1) {
		for _, sym := range t.bpe(word) {
			if id, ok := t.vocab[sym]; ok {
				ids = append(ids, id)
			}
		}
	}

	if len(ids) > contextLength-1 {
		ids = ids[:contextLength-1]
	}
	ids = append(ids, t.eotID)

	padded := make([]int64, contextLength)
	mask := make([]int64, contextLength)
	copy(padded, ids)
	for i := range ids {
		mask[i] = 1
	}
	return padded, mask
}

// bpe applies byte-pair merges to a single word. The final symbol carries an
// end-of-word marker, matching the CLIP vocabulary.
func (t *Tokenizer) bpe(word string) []string {
	if cached, ok := t.cache[word]; ok {
		return cached
	}

	var symbols []string
	for _, b := range []byte(word) {
		symbols = append(symbols, string(t.byteEncoder[b]))
	}
	if len(symbols) == 0 {
		return nil
	}
	symbols[len(symbols)-1] += "</w>"

	for len(symbols) > 1 {
		bestRank := -1
		bestIdx := -1
		for i := 0; i < len(symbols)-1; i++ {
			if rank, ok := t.ranks[[2]string{symbols[i], symbols[i+1]}]; ok {
				if bestRank < 0 || rank < bestRank {
					bestRank = rank
					bestIdx = i
				}
			}
		}
		if bestIdx < 0 {
			break
		}

		merged := symbols[bestIdx] + symbols[bestIdx+1]
		next := make([]string, 0, len(symbols)-1)
		next = append(next, symbols[:bestIdx]...)
		next = append(next, merged)
		next = append(next, symbols[bestIdx+2:]...)
		symbols = next
	}

	t.cache[word] = symbols
	return symbols
}

// buildByteEncoder maps raw bytes to the printable runes the BPE vocab uses
func buildByteEncoder() map[byte]rune {
	var bs []int
	for i := int('!'); i <= int('~'); i++ {
		bs = append(bs, i)
	}
	for i := 0xA1; i <= 0xAC; i++ {
		bs = append(bs, i)
	}
	for i := 0xAE; i <= 0xFF; i++ {
		bs = append(bs, i)
	}

	seen := make(map[int]bool, len(bs))
	for _, b := range bs {
		seen[b] = true
	}

	cs := append([]int(nil), bs...)
	n := 0
	for b := 0; b < 256; b++ {
		if !seen[b] {
			bs = append(bs, b)
			cs = append(cs, 256+n)
			n++
		}
	}

	enc := make(map[byte]rune, 256)
	for i := range bs {
		enc[byte(bs[i])] = rune(cs[i])
	}
	return enc
}
