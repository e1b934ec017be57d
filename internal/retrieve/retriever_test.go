package retrieve

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doubtsolver/internal/chunker"
	"doubtsolver/internal/vecindex"
)

type hashEmbedder struct{ dims int }

func (h hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, h.dims)
		for _, w := range strings.Fields(strings.ToLower(text)) {
			f := fnv.New32a()
			f.Write([]byte(strings.Trim(w, ".,?!")))
			vec[int(f.Sum32())%h.dims]++
		}
		out[i] = vec
	}
	return out, nil
}

func (h hashEmbedder) Dimensions() int { return h.dims }
func (h hashEmbedder) Name() string    { return "hash" }

func buildIndex(t *testing.T) *vecindex.Index {
	t.Helper()
	chunks := []chunker.Chunk{
		{Text: "Photosynthesis converts light into chemical energy.", SourceID: "Grade10_Science_Ch1.pdf", Page: 1, Meta: map[string]string{"grade": "10", "subject": "Science"}},
		{Text: "Photosynthesis occurs in the chloroplasts of plant cells.", SourceID: "Grade9_Science_Ch2.pdf", Page: 5, Meta: map[string]string{"grade": "9", "subject": "Science"}},
		{Text: "The French Revolution began in 1789.", SourceID: "Grade9_History_Ch1.pdf", Page: 7, Meta: map[string]string{"grade": "9", "subject": "History"}},
	}
	idx, err := vecindex.Build(context.Background(), chunks, hashEmbedder{dims: 64})
	require.NoError(t, err)
	return idx
}

func TestRetrieveUnfiltered(t *testing.T) {
	r := New(buildIndex(t), 3)
	chunks, err := r.Retrieve(context.Background(), "what is photosynthesis", 2, nil)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0].Text, "Photosynthesis")
}

func TestRetrieveZeroTopK(t *testing.T) {
	r := New(buildIndex(t), 3)
	chunks, err := r.Retrieve(context.Background(), "photosynthesis", 0, nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	idx, err := vecindex.Build(context.Background(), nil, hashEmbedder{dims: 64})
	require.ErrorIs(t, err, vecindex.ErrEmptyCorpus)

	r := New(idx, 3)
	chunks, err := r.Retrieve(context.Background(), "photosynthesis", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRetrieveNilIndex(t *testing.T) {
	r := New(nil, 3)
	chunks, err := r.Retrieve(context.Background(), "photosynthesis", 5, nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRetrieveFilterByGrade(t *testing.T) {
	r := New(buildIndex(t), 3)
	chunks, err := r.Retrieve(context.Background(), "photosynthesis in plants", 3, map[string]string{"grade": "9"})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, "9", c.Meta["grade"])
	}
}

func TestRetrieveFilterBySubjectExcludesOthers(t *testing.T) {
	r := New(buildIndex(t), 3)
	chunks, err := r.Retrieve(context.Background(), "photosynthesis", 3, map[string]string{"subject": "History"})
	require.NoError(t, err)
	for _, c := range chunks {
		assert.Equal(t, "History", c.Meta["subject"])
	}
}

func TestRetrieveFilterNoMatches(t *testing.T) {
	r := New(buildIndex(t), 3)
	chunks, err := r.Retrieve(context.Background(), "photosynthesis", 3, map[string]string{"grade": "12"})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRetrieveUnknownFilterKey(t *testing.T) {
	r := New(buildIndex(t), 3)
	_, err := r.Retrieve(context.Background(), "photosynthesis", 3, map[string]string{"publisher": "NCERT"})
	assert.ErrorIs(t, err, ErrBadFilter)
}

func TestValidateFilters(t *testing.T) {
	assert.NoError(t, ValidateFilters(nil))
	assert.NoError(t, ValidateFilters(map[string]string{"grade": "10", "subject": "Science"}))
	assert.ErrorIs(t, ValidateFilters(map[string]string{"teacher": "x"}), ErrBadFilter)
}

func TestRetrieveScoredParallelSlices(t *testing.T) {
	r := New(buildIndex(t), 3)
	res, err := r.RetrieveScored(context.Background(), "photosynthesis", 2, nil)
	require.NoError(t, err)
	assert.Len(t, res.Scores, len(res.Chunks))
}
