package ai

import (
	"strings"
)

// parseCompletion splits a model completion into its three sections. The
// three markers must all be present, in order; otherwise there is no
// usable result and nil is returned.
func parseCompletion(text string) *Result {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tIdx := strings.Index(text, transcriptionMarker)
	if tIdx < 0 {
		return nil
	}
	aIdx := strings.Index(text[tIdx+len(transcriptionMarker):], analysisMarker)
	if aIdx < 0 {
		return nil
	}
	aIdx += tIdx + len(transcriptionMarker)
	rIdx := strings.Index(text[aIdx+len(analysisMarker):], replyMarker)
	if rIdx < 0 {
		return nil
	}
	rIdx += aIdx + len(analysisMarker)

	return &Result{
		Transcription: strings.TrimSpace(text[tIdx+len(transcriptionMarker) : aIdx]),
		Analysis:      strings.TrimSpace(text[aIdx+len(analysisMarker) : rIdx]),
		Reply:         trimFences(text[rIdx+len(replyMarker):]),
	}
}

// trimFences trims whitespace and any surrounding markdown code fences
// from the reply section.
func trimFences(s string) string {
	s = strings.TrimSpace(s)
	for strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop a language hint on the opening fence, e.g. ```text
		if nl := strings.Index(s, "\n"); nl >= 0 && !strings.ContainsAny(s[:nl], " \t") && len(s[:nl]) <= 16 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	return s
}
