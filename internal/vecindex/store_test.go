package vecindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doubtsolver/internal/embed"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	e := fakeEmbedder{dims: 64, name: "fake"}

	built, err := Build(context.Background(), testChunks(), e)
	require.NoError(t, err)
	require.NoError(t, built.Save(dir))

	loaded, err := Load(dir, e)
	require.NoError(t, err)
	require.Equal(t, built.Len(), loaded.Len())
	assert.Equal(t, built.Dimensions(), loaded.Dimensions())

	// Search results must be identical before and after persistence.
	query := embedQuery(t, e, "photosynthesis chemical energy")
	want, err := built.Search(query, 3)
	require.NoError(t, err)
	got, err := loaded.Search(query, 3)
	require.NoError(t, err)

	require.Equal(t, len(want.Chunks), len(got.Chunks))
	for i := range want.Chunks {
		assert.Equal(t, want.Chunks[i], got.Chunks[i])
		assert.InDelta(t, want.Scores[i], got.Scores[i], 1e-6)
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	_, err := Load(t.TempDir()+"/absent", fakeEmbedder{dims: 64, name: "fake"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadEmptyDirectory(t *testing.T) {
	_, err := Load(t.TempDir(), fakeEmbedder{dims: 64, name: "fake"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadDimensionMismatch(t *testing.T) {
	dir := t.TempDir()
	built, err := Build(context.Background(), testChunks(), fakeEmbedder{dims: 384, name: "minilm"})
	require.NoError(t, err)
	require.NoError(t, built.Save(dir))

	_, err = Load(dir, fakeEmbedder{dims: 768, name: "minilm"})
	assert.ErrorIs(t, err, ErrDimMismatch)
}

func TestLoadEmbedderNameMismatch(t *testing.T) {
	dir := t.TempDir()
	built, err := Build(context.Background(), testChunks(), fakeEmbedder{dims: 64, name: "fake"})
	require.NoError(t, err)
	require.NoError(t, built.Save(dir))

	_, err = Load(dir, fakeEmbedder{dims: 64, name: "other"})
	assert.ErrorIs(t, err, ErrEmbedderMismatch)
}

func TestSaveLoadRestoresTFIDFState(t *testing.T) {
	dir := t.TempDir()
	chunks := testChunks()

	trained := embed.NewTFIDF(256)
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	require.NoError(t, trained.Train(texts))

	built, err := Build(context.Background(), chunks, trained)
	require.NoError(t, err)
	require.NoError(t, built.Save(dir))

	// A fresh, untrained TF-IDF embedder must come back trained from the
	// store and produce identical query vectors.
	fresh := embed.NewTFIDF(0)
	loaded, err := Load(dir, fresh)
	require.NoError(t, err)
	assert.Equal(t, trained.Dimensions(), fresh.Dimensions())

	query := "photosynthesis converts light"
	wantVec, err := trained.Embed(context.Background(), []string{query})
	require.NoError(t, err)
	gotVec, err := fresh.Embed(context.Background(), []string{query})
	require.NoError(t, err)
	assert.Equal(t, wantVec, gotVec)

	res, err := loaded.Search(gotVec[0], 1)
	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
	assert.Equal(t, "Grade10_Science_Ch1.pdf", res.Chunks[0].SourceID)
}

func TestLoadCorruptMetadataFails(t *testing.T) {
	dir := t.TempDir()
	e := fakeEmbedder{dims: 64, name: "fake"}

	built, err := Build(context.Background(), testChunks(), e)
	require.NoError(t, err)
	require.NoError(t, built.Save(dir))

	db, err := openDB(filepath.Join(dir, DBFileName))
	require.NoError(t, err)
	_, err = db.Exec("UPDATE chunks SET metadata = 'not-json' WHERE pos = 0")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Load(dir, e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt metadata")
}

func TestSaveOverwritesPreviousIndex(t *testing.T) {
	dir := t.TempDir()
	e := fakeEmbedder{dims: 64, name: "fake"}

	first, err := Build(context.Background(), testChunks(), e)
	require.NoError(t, err)
	require.NoError(t, first.Save(dir))

	second, err := Build(context.Background(), testChunks()[:1], e)
	require.NoError(t, err)
	require.NoError(t, second.Save(dir))

	loaded, err := Load(dir, e)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
}
