package embed

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// ErrNotTrained is returned when a TF-IDF embedder is used before Train or
// UnmarshalState.
var ErrNotTrained = errors.New("embed: tfidf embedder not trained")

// TFIDF is a deterministic TF-IDF text embedder. It must be trained on the
// chunk corpus before indexing; the trained state is persisted with the
// index and restored at load time so query vectors stay comparable.
type TFIDF struct {
	vocabulary map[string]int // word -> vector index
	idf        []float32
	maxDims    int
	trained    bool
	mu         sync.RWMutex
}

// NewTFIDF creates a TF-IDF embedder with a vocabulary cap.
func NewTFIDF(maxDims int) *TFIDF {
	if maxDims <= 0 {
		maxDims = 4096
	}
	return &TFIDF{
		vocabulary: make(map[string]int),
		maxDims:    maxDims,
	}
}

// Train builds the vocabulary and IDF table from the corpus. Vocabulary
// order is deterministic: document frequency descending, word ascending.
func (t *TFIDF) Train(documents []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	df := make(map[string]int)
	for _, doc := range documents {
		seen := make(map[string]bool)
		for _, word := range tokenize(doc) {
			if !seen[word] {
				df[word]++
				seen[word] = true
			}
		}
	}

	type wordFreq struct {
		word string
		freq int
	}
	wf := make([]wordFreq, 0, len(df))
	for w, f := range df {
		wf = append(wf, wordFreq{w, f})
	}
	sort.Slice(wf, func(i, j int) bool {
		if wf[i].freq != wf[j].freq {
			return wf[i].freq > wf[j].freq
		}
		return wf[i].word < wf[j].word
	})
	if len(wf) > t.maxDims {
		wf = wf[:t.maxDims]
	}

	t.vocabulary = make(map[string]int, len(wf))
	t.idf = make([]float32, len(wf))
	n := float64(len(documents))
	for i, w := range wf {
		t.vocabulary[w.word] = i
		t.idf[i] = float32(math.Log(n / float64(w.freq)))
	}
	t.trained = true
	return nil
}

// Embed converts texts to L2-normalized TF-IDF vectors.
func (t *TFIDF) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.trained {
		return nil, ErrNotTrained
	}

	dims := len(t.vocabulary)
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, dims)
		words := tokenize(text)

		tf := make(map[string]int)
		for _, w := range words {
			tf[w]++
		}
		for word, count := range tf {
			if idx, ok := t.vocabulary[word]; ok {
				tfVal := float32(count) / float32(len(words))
				vec[idx] = tfVal * t.idf[idx]
			}
		}

		var norm float32
		for _, v := range vec {
			norm += v * v
		}
		if norm > 0 {
			norm = float32(math.Sqrt(float64(norm)))
			for j := range vec {
				vec[j] /= norm
			}
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimensions returns the trained vocabulary size.
func (t *TFIDF) Dimensions() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.vocabulary)
}

// Name returns the embedder identifier.
func (t *TFIDF) Name() string {
	return "tfidf"
}

// tfidfState is the serialized trained state.
type tfidfState struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float32      `json:"idf"`
	MaxDims    int            `json:"max_dims"`
}

// MarshalState serializes the trained vocabulary and IDF table.
func (t *TFIDF) MarshalState() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.trained {
		return nil, ErrNotTrained
	}
	return json.Marshal(tfidfState{
		Vocabulary: t.vocabulary,
		IDF:        t.idf,
		MaxDims:    t.maxDims,
	})
}

// UnmarshalState restores a previously trained state.
func (t *TFIDF) UnmarshalState(data []byte) error {
	var s tfidfState
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.vocabulary = s.Vocabulary
	t.idf = s.IDF
	if s.MaxDims > 0 {
		t.maxDims = s.MaxDims
	}
	t.trained = true
	return nil
}

// tokenize splits text into lowercase words. Letters, digits and
// combining marks of any script count as word runes; Devanagari matras
// are combining marks, so Hindi words stay intact.
func tokenize(text string) []string {
	var words []string
	var word strings.Builder

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Mc, r) {
			word.WriteRune(r)
		} else if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}
	if word.Len() > 0 {
		words = append(words, word.String())
	}
	return words
}
