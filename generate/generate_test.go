package generate

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studykit/model"
	"studykit/store"
	"studykit/types"
)

type cacheKey struct {
	doc        uuid.UUID
	difficulty string
}

type fakeContentStore struct {
	docs    map[uuid.UUID]*types.Document
	chunks  map[uuid.UUID][]types.Chunk
	cache   map[cacheKey]types.CachedContent
	paths   []types.LearningPath
	credits int
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{
		docs:    make(map[uuid.UUID]*types.Document),
		chunks:  make(map[uuid.UUID][]types.Chunk),
		cache:   make(map[cacheKey]types.CachedContent),
		credits: 10,
	}
}

func (f *fakeContentStore) GetDocumentByID(ctx context.Context, docID uuid.UUID) (*types.Document, error) {
	doc, ok := f.docs[docID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return doc, nil
}

func (f *fakeContentStore) SelectChunks(ctx context.Context, docID uuid.UUID, limit int) ([]types.Chunk, error) {
	chunks := f.chunks[docID]
	if limit > 0 && len(chunks) > limit {
		chunks = chunks[:limit]
	}
	return chunks, nil
}

func (f *fakeContentStore) GetCache(ctx context.Context, docID uuid.UUID, difficulty string) (*types.CachedContent, error) {
	cached, ok := f.cache[cacheKey{docID, difficulty}]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &cached, nil
}

func (f *fakeContentStore) DeleteCache(ctx context.Context, docID uuid.UUID, difficulty string) error {
	delete(f.cache, cacheKey{docID, difficulty})
	return nil
}

func (f *fakeContentStore) InsertCache(ctx context.Context, cached types.CachedContent) error {
	f.cache[cacheKey{cached.DocumentID, cached.Difficulty}] = cached
	return nil
}

func (f *fakeContentStore) InsertLearningPath(ctx context.Context, path types.LearningPath) (uuid.UUID, error) {
	id := uuid.New()
	path.ID = id
	f.paths = append(f.paths, path)
	return id, nil
}

func (f *fakeContentStore) DeductCredit(ctx context.Context, email string) (bool, error) {
	if f.credits <= 0 {
		return false, nil
	}
	f.credits--
	return true, nil
}

type recordingGenerator struct {
	mu       sync.Mutex
	requests []model.CompletionRequest
	response string
	err      error
}

func (g *recordingGenerator) Complete(ctx context.Context, req model.CompletionRequest) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func (g *recordingGenerator) CompleteStream(ctx context.Context, req model.CompletionRequest, onToken func(string)) error {
	out, err := g.Complete(ctx, req)
	if err != nil {
		return err
	}
	onToken(out)
	return nil
}

const studyJSON = `{
	"summary": "a summary",
	"flashcards": [{"question": "q1", "answer": "a1"}],
	"questions": [{"question": "m1", "options": ["a","b","c","d"], "correct_answer": "a"}]
}`

func seedDocument(st *fakeContentStore, withChunks bool) uuid.UUID {
	docID := uuid.New()
	st.docs[docID] = &types.Document{ID: docID, Title: "Intro to Graphs", SourceURL: "https://youtu.be/abc"}
	if withChunks {
		st.chunks[docID] = []types.Chunk{
			{Index: 0, Content: "graphs are nodes and edges"},
			{Index: 1, Content: "traversal visits nodes"},
		}
	}
	return docID
}

func TestStudyMaterialGeneratesAndCachesDefault(t *testing.T) {
	st := newFakeContentStore()
	docID := seedDocument(st, true)
	gen := &recordingGenerator{response: studyJSON}
	svc := NewService(st, gen)

	material, fromCache, err := svc.StudyMaterial(context.Background(), docID, "")
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, "a summary", material.Summary)
	require.Len(t, material.Flashcards, 1)

	// The default variant landed in the cache and spent one credit.
	cached, ok := st.cache[cacheKey{docID, DefaultDifficulty}]
	require.True(t, ok)
	assert.Equal(t, "a summary", cached.Summary)
	assert.Equal(t, 9, st.credits)
}

func TestStudyMaterialCacheHitSkipsGeneration(t *testing.T) {
	st := newFakeContentStore()
	docID := seedDocument(st, true)
	st.cache[cacheKey{docID, DefaultDifficulty}] = types.CachedContent{
		DocumentID: docID,
		Difficulty: DefaultDifficulty,
		Summary:    "cached summary",
	}
	gen := &recordingGenerator{response: studyJSON}
	svc := NewService(st, gen)

	material, fromCache, err := svc.StudyMaterial(context.Background(), docID, "medium")
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, "cached summary", material.Summary)
	assert.Empty(t, gen.requests)
	assert.Equal(t, 10, st.credits)
}

func TestStudyMaterialNonDefaultDifficultyNotCached(t *testing.T) {
	st := newFakeContentStore()
	docID := seedDocument(st, true)
	st.cache[cacheKey{docID, DefaultDifficulty}] = types.CachedContent{
		DocumentID: docID,
		Difficulty: DefaultDifficulty,
		Summary:    "cached summary",
	}
	gen := &recordingGenerator{response: studyJSON}
	svc := NewService(st, gen)

	_, fromCache, err := svc.StudyMaterial(context.Background(), docID, "hard")
	require.NoError(t, err)
	assert.False(t, fromCache)
	require.Len(t, gen.requests, 1)

	// The default variant's cache entry is untouched.
	assert.Equal(t, "cached summary", st.cache[cacheKey{docID, DefaultDifficulty}].Summary)
	_, hardCached := st.cache[cacheKey{docID, "hard"}]
	assert.False(t, hardCached)
}

func TestStudyMaterialExhaustedCredits(t *testing.T) {
	st := newFakeContentStore()
	docID := seedDocument(st, true)
	st.credits = 0
	svc := NewService(st, &recordingGenerator{response: studyJSON})

	_, _, err := svc.StudyMaterial(context.Background(), docID, "easy")
	require.ErrorIs(t, err, ErrInsufficientCredits)
}

func TestStudyMaterialFallsBackToTopicPrompt(t *testing.T) {
	st := newFakeContentStore()
	docID := seedDocument(st, false)
	gen := &recordingGenerator{response: studyJSON}
	svc := NewService(st, gen)

	_, _, err := svc.StudyMaterial(context.Background(), docID, "medium")
	require.NoError(t, err)
	require.Len(t, gen.requests, 1)
	assert.Contains(t, gen.requests[0].Prompt, "general knowledge")
}

func TestStudyMaterialNoChunksNoURL(t *testing.T) {
	st := newFakeContentStore()
	docID := uuid.New()
	st.docs[docID] = &types.Document{ID: docID, Title: "orphan"}
	svc := NewService(st, &recordingGenerator{response: studyJSON})

	_, _, err := svc.StudyMaterial(context.Background(), docID, "medium")
	require.ErrorIs(t, err, ErrNoContent)
}

func TestLearningPathModelSelection(t *testing.T) {
	tests := []struct {
		name    string
		days    int
		tier    model.ModelTier
		maxToks int64
	}{
		{name: "short timeframe uses capable model", days: 7, tier: model.ModelCapable, maxToks: shortPathMaxToks},
		{name: "boundary stays capable", days: 14, tier: model.ModelCapable, maxToks: shortPathMaxToks},
		{name: "long timeframe uses fast model", days: 30, tier: model.ModelFast, maxToks: longPathMaxToks},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := newFakeContentStore()
			gen := &recordingGenerator{response: `{"days":[{"day":1,"topic":"basics","description":"start here","completed":true}]}`}
			svc := NewService(st, gen)

			path, err := svc.LearningPath(context.Background(), "learn go", tc.days)
			require.NoError(t, err)

			require.Len(t, gen.requests, 1)
			assert.Equal(t, tc.tier, gen.requests[0].Model)
			assert.Equal(t, tc.maxToks, gen.requests[0].MaxTokens)

			// Progress flags always start cleared, whatever the model said.
			require.Len(t, path.Roadmap.Days, 1)
			assert.False(t, path.Roadmap.Days[0].Completed)
			require.Len(t, st.paths, 1)
		})
	}
}

func TestNormalizeDifficulty(t *testing.T) {
	assert.Equal(t, "easy", NormalizeDifficulty("Easy"))
	assert.Equal(t, "hard", NormalizeDifficulty(" hard "))
	assert.Equal(t, DefaultDifficulty, NormalizeDifficulty(""))
	assert.Equal(t, DefaultDifficulty, NormalizeDifficulty("extreme"))
}
