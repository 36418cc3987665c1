package analyzer

import (
	"reflect"
	"testing"
)

func TestTokenizer_Tokenize(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("The Quick brown fox, and the lazy dog.")
	want := []string{"quick", "brown", "fox", "lazy", "dog"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("Tokenize() = %v, want %v", tokens, want)
	}
}

func TestTokenizer_ShortWordRemoval(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("a I go x9 é")
	for _, token := range tokens {
		if len([]rune(token)) < 2 {
			t.Errorf("short word should be removed: %s", token)
		}
	}
	if len(tokens) != 2 {
		t.Errorf("expected [go x9], got %v", tokens)
	}
}

func TestTokenizer_Unicode(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("Größe über Maß")
	want := []string{"größe", "über", "maß"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("Tokenize() = %v, want %v", tokens, want)
	}
}

func TestTokenizer_Terms(t *testing.T) {
	tok := NewTokenizer()

	terms := tok.Terms("revenue grew, revenue fell")
	if len(terms) != 3 {
		t.Errorf("expected 3 distinct terms, got %v", terms)
	}
	if _, ok := terms["revenue"]; !ok {
		t.Errorf("expected 'revenue' in %v", terms)
	}
}

func TestTokenizer_EmptyInput(t *testing.T) {
	tok := NewTokenizer()

	if tokens := tok.Tokenize(""); len(tokens) != 0 {
		t.Errorf("expected 0 tokens for empty input, got %d", len(tokens))
	}
	if tokens := tok.Tokenize("the and of"); len(tokens) != 0 {
		t.Errorf("expected stopwords only to yield nothing, got %v", tokens)
	}
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"hello world", 2},
		{"hello_world", 2},
		{"hello-world", 2},
		{"don't stop", 3},
		{"CamelCase", 1},
		{"123numbers456", 1},
		{"  \n\t ", 0},
	}

	for _, tt := range tests {
		words := splitWords(tt.input)
		if len(words) != tt.expected {
			t.Errorf("splitWords(%q) = %d words, want %d: %v", tt.input, len(words), tt.expected, words)
		}
	}
}
