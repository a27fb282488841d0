package ai

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"speech-coach-demo/backend/pkg/logger"
)

func newGeminiUnderTest(timeout time.Duration, generate func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error)) *GeminiTranscriber {
	return &GeminiTranscriber{
		logger:      logger.New(logger.Config{Level: "error", Output: io.Discard}),
		model:       "test-model",
		timeout:     timeout,
		instruction: defaultInstruction,
		generate:    generate,
	}
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

func TestTranscribeAppliesCallTimeout(t *testing.T) {
	var deadline time.Time
	g := newGeminiUnderTest(100*time.Millisecond, func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
		var ok bool
		deadline, ok = ctx.Deadline()
		require.True(t, ok)
		return textResponse("TRANSCRIPTION: hi\nANALYSIS: tip\nRESPONSE: hey"), nil
	})

	before := time.Now()
	result, err := g.Transcribe(context.Background(), []byte("audio"))

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.WithinDuration(t, before.Add(100*time.Millisecond), deadline, 50*time.Millisecond)
}

func TestTranscribeTimeoutCollapsesToNoResult(t *testing.T) {
	g := newGeminiUnderTest(20*time.Millisecond, func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	result, err := g.Transcribe(context.Background(), []byte("audio"))

	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestTranscribeTransportFaultCollapsesToNoResult(t *testing.T) {
	g := newGeminiUnderTest(time.Second, func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
		return nil, errors.New("quota exceeded")
	})

	result, err := g.Transcribe(context.Background(), []byte("audio"))

	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestTranscribeSendsInstructionAndAudio(t *testing.T) {
	var sent []*genai.Content
	g := newGeminiUnderTest(time.Second, func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
		sent = contents
		return textResponse("TRANSCRIPTION: hi\nANALYSIS: tip\nRESPONSE: hey"), nil
	})

	result, err := g.Transcribe(context.Background(), []byte{0x01, 0x02})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "hi", result.Transcription)
	assert.Equal(t, "tip", result.Analysis)
	assert.Equal(t, "hey", result.Reply)

	require.Len(t, sent, 1)
	require.Len(t, sent[0].Parts, 2)
	assert.Equal(t, defaultInstruction, sent[0].Parts[0].Text)
	require.NotNil(t, sent[0].Parts[1].InlineData)
	assert.Equal(t, "audio/wav", sent[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte{0x01, 0x02}, sent[0].Parts[1].InlineData.Data)
}
