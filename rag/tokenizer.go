package rag

import (
	"strings"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer measures text length in tokens for context packing.
type Tokenizer interface {
	CountTokens(text string) int
}

// ApproxTokenizer counts whitespace/punctuation-delimited units. It is
// the default: fast, dependency-free at runtime, and close enough for
// budget enforcement.
type ApproxTokenizer struct{}

// CountTokens returns the number of word units in text.
func (ApproxTokenizer) CountTokens(text string) int {
	return len(strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}))
}

// TiktokenTokenizer counts tokens with a BPE encoding, matching what
// OpenAI-family models actually consume.
type TiktokenTokenizer struct {
	encoder *tiktoken.Tiktoken
}

// NewTiktokenTokenizer creates a tokenizer for the named encoding,
// e.g. "cl100k_base".
func NewTiktokenTokenizer(encoding string) (*TiktokenTokenizer, error) {
	encoder, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &TiktokenTokenizer{encoder: encoder}, nil
}

// CountTokens returns the BPE token count of text.
func (t *TiktokenTokenizer) CountTokens(text string) int {
	return len(t.encoder.Encode(text, nil, nil))
}
