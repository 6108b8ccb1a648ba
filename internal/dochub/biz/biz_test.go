package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/dochub/internal/dochub/store"
	"github.com/kart-io/dochub/pkg/llm"
)

// fakeStore 内存向量存储，按用户命名空间隔离。
type fakeStore struct {
	records    map[string]map[string]*store.ChunkRecord // namespace -> id -> record
	upsertErr  error
	searchErr  error
	deleteErr  error
	upserts    int
	searchHits []*store.ScoredChunk
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]map[string]*store.ChunkRecord)}
}

func (f *fakeStore) EnsureReady(context.Context) error { return nil }

func (f *fakeStore) Upsert(_ context.Context, userID string, records []*store.ChunkRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserts++
	ns := store.Namespace(userID)
	if f.records[ns] == nil {
		f.records[ns] = make(map[string]*store.ChunkRecord)
	}
	for _, rec := range records {
		f.records[ns][rec.ID] = rec
	}
	return nil
}

func (f *fakeStore) Search(_ context.Context, userID string, _ []float32, topK int) ([]*store.ScoredChunk, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if f.searchHits != nil {
		if len(f.searchHits) > topK {
			return f.searchHits[:topK], nil
		}
		return f.searchHits, nil
	}
	return []*store.ScoredChunk{}, nil
}

func (f *fakeStore) DeleteDocument(_ context.Context, userID, documentID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	ns := store.Namespace(userID)
	prefix := fmt.Sprintf("doc:%s:chunk:", documentID)
	for id := range f.records[ns] {
		if strings.HasPrefix(id, prefix) {
			delete(f.records[ns], id)
		}
	}
	return nil
}

func (f *fakeStore) Stats(context.Context) (int64, error) {
	var n int64
	for _, m := range f.records {
		n += int64(len(m))
	}
	return n, nil
}

func (f *fakeStore) Close(context.Context) error { return nil }

// count 返回某个命名空间内的记录数。
func (f *fakeStore) count(userID string) int {
	return len(f.records[store.Namespace(userID)])
}

// fakeEmbedder 确定性嵌入器。
type fakeEmbedder struct {
	dim       int
	err       error
	lastInput llm.InputType
	// shortBy 返回的嵌入数量比请求少 shortBy 个
	shortBy int
	// emptyAt 该下标的嵌入为空向量（-1 表示无）
	emptyAt int
}

func newFakeEmbedder(dim int) *fakeEmbedder {
	return &fakeEmbedder{dim: dim, emptyAt: -1}
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string, input llm.InputType) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastInput = input
	n := len(texts) - f.shortBy
	if n < 0 {
		n = 0
	}
	out := make([][]float32, n)
	for i := range out {
		if i == f.emptyAt {
			out[i] = []float32{}
			continue
		}
		vec := make([]float32, f.dim)
		for j := range vec {
			vec[j] = float32(len(texts[i])%7) + float32(j)
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string, input llm.InputType) ([]float32, error) {
	out, err := f.Embed(ctx, []string{text}, input)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (f *fakeEmbedder) Name() string { return "fake-embedder" }

// fakeChat 固定响应的 Chat 供应商。
type fakeChat struct {
	name       string
	response   *llm.GenerateResponse
	err        error
	lastPrompt string
	lastSystem string
}

func (f *fakeChat) Chat(_ context.Context, _ []llm.Message) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response.Content, nil
}

func (f *fakeChat) Generate(_ context.Context, prompt, system string) (*llm.GenerateResponse, error) {
	f.lastPrompt = prompt
	f.lastSystem = system
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeChat) Name() string { return f.name }
