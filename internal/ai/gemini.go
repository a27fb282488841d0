// Package ai sends recorded audio to a hosted multimodal model and parses
// the transcription, coaching tip, and reply out of the completion.
package ai

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"speech-coach-demo/backend/pkg/logger"
)

// Result holds the three texts produced from one audio clip.
type Result struct {
	Transcription string
	Analysis      string
	Reply         string
}

// Transcriber produces a Result from raw audio. A nil Result with a nil
// error means the model produced nothing usable; callers treat that as a
// normal "no result" outcome, not a fault.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (*Result, error)
}

// GeminiConfig configures the Gemini transcriber. Instruction overrides the
// built-in prompt when set; it must keep the three section markers or every
// completion will parse to nothing.
type GeminiConfig struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	Instruction string
}

// GeminiTranscriber implements Transcriber against the Gemini API.
type GeminiTranscriber struct {
	client      *genai.Client
	logger      *logger.Logger
	model       string
	timeout     time.Duration
	instruction string

	// generate issues one completion request. Held as a field so the
	// timeout and fault handling around it stay testable.
	generate func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error)
}

// NewGeminiTranscriber creates a Gemini-backed transcriber.
func NewGeminiTranscriber(cfg GeminiConfig, log *logger.Logger) (*GeminiTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	instruction := cfg.Instruction
	if instruction == "" {
		instruction = defaultInstruction
	}

	return &GeminiTranscriber{
		client:      client,
		logger:      log,
		model:       model,
		timeout:     timeout,
		instruction: instruction,
		generate: func(ctx context.Context, model string, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
			return client.Models.GenerateContent(ctx, model, contents, nil)
		},
	}, nil
}

// Transcribe sends one instruction-plus-audio request and parses the
// completion. Transport faults and unparsable completions both collapse
// to a nil Result; the distinction is only visible in the logs.
func (g *GeminiTranscriber) Transcribe(ctx context.Context, audio []byte) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(g.instruction),
			genai.NewPartFromBytes(audio, "audio/wav"),
		}, genai.RoleUser),
	}

	response, err := g.generate(ctx, g.model, contents)
	if err != nil {
		g.logger.LogError(err, "gemini request failed", "model", g.model)
		return nil, nil
	}

	text := completionText(response)
	if text == "" {
		g.logger.Warn("gemini returned empty completion", "model", g.model)
		return nil, nil
	}

	result := parseCompletion(text)
	if result == nil {
		g.logger.Warn("gemini completion missing section markers",
			"model", g.model,
			"length", len(text),
		)
	}

	return result, nil
}

// completionText concatenates the text parts of the first candidate.
func completionText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 {
		return ""
	}
	candidate := response.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var text string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	return text
}
