package summary

import (
	"context"

	"github.com/google/uuid"

	"github.com/protokol-team/protokol/internal/adapter/repository"
	"github.com/protokol-team/protokol/internal/domain/entities"
	"github.com/protokol-team/protokol/pkg/ai"
	"github.com/protokol-team/protokol/pkg/config"
)

type fakeChatter struct {
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeChatter) Chat(_ context.Context, messages []ai.ChatMessage, _ ai.ChatOptions) (string, error) {
	i := len(f.prompts)
	f.prompts = append(f.prompts, messages[len(messages)-1].Content)

	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var resp string
	if i < len(f.responses) {
		resp = f.responses[i]
	}
	return resp, err
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return f.vec, f.err
}

type fakeSearcher struct {
	hits []repository.SimilarSegment
	err  error
}

func (f *fakeSearcher) TopKSimilar(context.Context, uuid.UUID, []float32, int) ([]repository.SimilarSegment, error) {
	return f.hits, f.err
}

type fakeDrafts struct {
	draft string
}

func (f *fakeDrafts) SaveDraft(_ context.Context, _ uuid.UUID, draft string) error {
	f.draft = draft
	return nil
}

type fakeResults struct {
	result *entities.SummaryResult
}

func (f *fakeResults) ReplaceResult(_ context.Context, _ uuid.UUID, result *entities.SummaryResult) error {
	f.result = result
	return nil
}

func testSummaryConfig() *config.SummaryConfig {
	return &config.SummaryConfig{
		ChunkCharLimit:     200,
		TopK:               5,
		MinScore:           0.35,
		EmbedWindowChars:   4000,
		MaxRefsChars:       3000,
		MaxDraftChars:      8000,
		MaxFinalDraftChars: 12000,
		TimeBuckets:        10,
		PerBucket:          2,
		NumPredictBatch:    256,
		NumPredictFinal:    512,
		Temperature:        0.2,
	}
}

func newTestService(chat Chatter, embed Embedder, search SimilaritySearcher, drafts DraftSaver, results ResultWriter) *Service {
	return &Service{
		chat:    chat,
		embed:   embed,
		search:  search,
		drafts:  drafts,
		results: results,
		cfg:     testSummaryConfig(),
		numCtx:  8192,
	}
}

func testJob() *entities.Job {
	return &entities.Job{ID: uuid.New(), Language: "ru"}
}
