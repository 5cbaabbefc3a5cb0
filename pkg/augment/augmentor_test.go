package augment_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorybank/memorybank-go/pkg/augment"
	"github.com/memorybank/memorybank-go/pkg/core"
	"github.com/memorybank/memorybank-go/pkg/llm"
)

type fakeStore struct {
	retrieved   []*core.RetrievedRecord
	retrieveErr error
	stored      []string
	storeOpts   [][]core.StoreOption
}

func (f *fakeStore) Retrieve(_ context.Context, query string, opts ...core.RetrieveOption) ([]*core.RetrievedRecord, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	return f.retrieved, nil
}

func (f *fakeStore) Store(_ context.Context, content string, opts ...core.StoreOption) (*core.Record, error) {
	f.stored = append(f.stored, content)
	f.storeOpts = append(f.storeOpts, opts)
	return &core.Record{Content: content}, nil
}

type fakeGenerator struct {
	lastPrompt string
	lastOpts   *llm.GenerateOptions
	response   string
	err        error
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	f.lastPrompt = prompt
	f.lastOpts = llm.ApplyGenerateOptions(opts)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeGenerator) ModelInfo() llm.ModelInfo {
	return llm.ModelInfo{Provider: "fake", Model: "fake-1"}
}

func (f *fakeGenerator) Close() error { return nil }

func memory(content string, created time.Time) *core.RetrievedRecord {
	return &core.RetrievedRecord{
		Record: &core.Record{Content: content, CreatedAt: created},
		Score:  0.9,
	}
}

func TestGenerateWithMemoryFoldsMemoriesIntoSystemPrompt(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{retrieved: []*core.RetrievedRecord{
		memory("user prefers tea", created),
		memory("user lives in Lyon", created),
	}}
	gen := &fakeGenerator{response: "Enjoy your tea in Lyon."}
	a := augment.New(store, gen)

	result, err := a.GenerateWithMemory(context.Background(), "any plans?",
		augment.WithSystemPrompt("You are a helpful assistant."))
	require.NoError(t, err)

	assert.Equal(t, "Enjoy your tea in Lyon.", result.Response)
	assert.Len(t, result.MemoriesUsed, 2)
	assert.Equal(t, "fake", result.ModelInfo.Provider)

	want := "You are a helpful assistant.\n\n" +
		"Relevant memories from previous conversations:\n" +
		fmt.Sprintf("1. user prefers tea (from %s)\n", created.Format(time.RFC3339)) +
		fmt.Sprintf("2. user lives in Lyon (from %s)\n", created.Format(time.RFC3339))
	assert.Equal(t, want, gen.lastOpts.SystemPrompt)
	assert.Equal(t, "any plans?", gen.lastPrompt)
}

func TestGenerateWithMemoryNoMemoriesPassesThrough(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{response: "hello"}
	a := augment.New(store, gen)

	result, err := a.GenerateWithMemory(context.Background(), "hi",
		augment.WithSystemPrompt("Be brief."))
	require.NoError(t, err)

	assert.Equal(t, "hello", result.Response)
	assert.Empty(t, result.MemoriesUsed)
	assert.Equal(t, "Be brief.", gen.lastOpts.SystemPrompt)
}

func TestGenerateWithMemoryMemoriesOnlySystemPrompt(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{retrieved: []*core.RetrievedRecord{memory("a fact", created)}}
	gen := &fakeGenerator{response: "ok"}
	a := augment.New(store, gen)

	_, err := a.GenerateWithMemory(context.Background(), "question")
	require.NoError(t, err)

	assert.Contains(t, gen.lastOpts.SystemPrompt, "Relevant memories from previous conversations:")
	assert.NotContains(t, gen.lastOpts.SystemPrompt, "\n\nRelevant")
}

func TestGenerateWithMemoryZeroTopKSkipsRetrieval(t *testing.T) {
	store := &fakeStore{retrieveErr: errors.New("must not retrieve")}
	gen := &fakeGenerator{response: "ok"}
	a := augment.New(store, gen)

	result, err := a.GenerateWithMemory(context.Background(), "q", augment.WithTopK(0))
	require.NoError(t, err)
	assert.Empty(t, result.MemoriesUsed)
}

func TestGenerateWithMemoryPropagatesErrors(t *testing.T) {
	retrieveErr := errors.New("index down")
	a := augment.New(&fakeStore{retrieveErr: retrieveErr}, &fakeGenerator{})
	_, err := a.GenerateWithMemory(context.Background(), "q")
	assert.ErrorIs(t, err, retrieveErr)

	genErr := errors.New("model down")
	a = augment.New(&fakeStore{}, &fakeGenerator{err: genErr})
	_, err = a.GenerateWithMemory(context.Background(), "q")
	assert.ErrorIs(t, err, genErr)
}

func TestGenerateWithMemoryCapturesExchange(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{response: "sure thing"}
	a := augment.New(store, gen)

	_, err := a.GenerateWithMemory(context.Background(), "remind me later",
		augment.WithUser("u1"), augment.WithCaptureExchange())
	require.NoError(t, err)

	require.Len(t, store.stored, 2)
	assert.Equal(t, "User asked: remind me later", store.stored[0])
	assert.Equal(t, "Assistant responded: sure thing", store.stored[1])
	assert.NotEmpty(t, store.storeOpts[0])
}

func TestGenerateWithMemorySamplingOptions(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{response: "ok"}
	a := augment.New(store, gen)

	_, err := a.GenerateWithMemory(context.Background(), "q",
		augment.WithModel("gpt-4o"),
		augment.WithTemperature(0.2),
		augment.WithMaxTokens(64))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", gen.lastOpts.Model)
	assert.Equal(t, 0.2, gen.lastOpts.Temperature)
	assert.Equal(t, 64, gen.lastOpts.MaxTokens)
}
