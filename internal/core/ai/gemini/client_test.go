package gemini

import (
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"

	"nutrition-lens/internal/core/ai/provider"
)

func textResponse(reason genai.FinishReason, parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: parts, Role: "model"},
			FinishReason: reason,
		}},
	}
}

func TestInterpret(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		resp     *genai.GenerateContentResponse
		wantKind provider.Kind
		wantText string
	}{
		{
			name:     "text joined",
			resp:     textResponse(genai.FinishReasonStop, genai.Text(`{"detectedItems":`), genai.Text(`[]}`)),
			wantKind: provider.KindSuccess,
			wantText: `{"detectedItems":[]}`,
		},
		{
			name:     "truncated",
			resp:     textResponse(genai.FinishReasonMaxTokens, genai.Text(`{"detected`)),
			wantKind: provider.KindStructuralFailure,
		},
		{
			name:     "safety",
			resp:     textResponse(genai.FinishReasonSafety),
			wantKind: provider.KindStructuralFailure,
		},
		{
			name:     "prompt blocked",
			resp:     &genai.GenerateContentResponse{PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety}},
			wantKind: provider.KindStructuralFailure,
		},
		{
			name:     "no candidates",
			resp:     &genai.GenerateContentResponse{},
			wantKind: provider.KindEmpty,
		},
		{
			name:     "blank text",
			resp:     textResponse(genai.FinishReasonStop, genai.Text("  \n")),
			wantKind: provider.KindEmpty,
		},
		{
			name:     "nil content",
			resp:     &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonStop}}},
			wantKind: provider.KindEmpty,
		},
	}
	for _, tc := range cases {
		out, err := interpret(tc.resp, nil)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if out.Kind != tc.wantKind {
			t.Fatalf("%s: kind want=%s got=%s (%s)", tc.name, tc.wantKind, out.Kind, out.Reason)
		}
		if tc.wantText != "" && out.Text != tc.wantText {
			t.Fatalf("%s: text want=%q got=%q", tc.name, tc.wantText, out.Text)
		}
	}
}

func TestInterpretErrors(t *testing.T) {
	t.Parallel()

	blocked := &genai.BlockedError{PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonOther}}
	out, err := interpret(nil, blocked)
	if err != nil || out.Kind != provider.KindStructuralFailure {
		t.Fatalf("blocked: want structural failure got=%v err=%v", out.Kind, err)
	}

	transport := errors.New("googleapi: Error 503: The model is overloaded")
	_, err = interpret(nil, transport)
	if !errors.Is(err, transport) {
		t.Fatalf("transport: want passthrough got=%v", err)
	}
}
