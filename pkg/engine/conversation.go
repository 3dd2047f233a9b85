package engine

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/lamina-mem/lamina/pkg/convo"
	"github.com/lamina-mem/lamina/pkg/errors"
	"github.com/lamina-mem/lamina/pkg/log"
	"github.com/lamina-mem/lamina/pkg/mem/ltm"
	"github.com/lamina-mem/lamina/pkg/reasoning"
)

// extractionInstruction is the fixed prompt sent ahead of the transcript.
const extractionInstruction = `You are a memory extraction assistant. Read the conversation and identify facts worth remembering long-term: user preferences, decisions, goals, and personal details.

Respond with JSON only, in this exact shape:
{"memories": [{"content": "...", "importance": 0.5, "tags": ["..."], "type": "semantic"}]}

Use "semantic" for facts and preferences, "episodic" for things that happened. Importance is between 0.0 and 1.0. Return {"memories": []} if nothing is worth remembering.`

// defaultCandidateImportance is used when a candidate omits its score.
const defaultCandidateImportance = 0.5

// candidatesResponse is the structured format of candidates from the LLM.
type candidatesResponse struct {
	Memories []candidateData `json:"memories"`
}

// candidateData is an individual candidate memory in the LLM response.
type candidateData struct {
	Content    string   `json:"content"`
	Importance *float64 `json:"importance"`
	Tags       []string `json:"tags"`
	Type       string   `json:"type"`
}

// ExtractFromConversation loads a conversation's full message history, asks
// the reasoning engine for structured candidate memories, and promotes each
// candidate through the regular creation pipeline.
//
// An empty conversation is a no-op. A malformed provider response abandons
// the whole call (logged, no partial promotion). A storage failure on one
// candidate is logged and the remaining candidates still attempt promotion.
func (e *Engine) ExtractFromConversation(ctx context.Context, conversationID, ownerUserID string) ([]ltm.MemoryRecord, error) {
	if e.history == nil {
		return nil, errors.Wrap(errors.ErrValidation, "no conversation history configured")
	}

	messages, err := e.history.Messages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		log.DebugContext(ctx, "Conversation empty, nothing to extract", "conversation_id", conversationID)
		return nil, nil
	}

	transcript := buildTranscript(messages)

	response, err := e.reasoning.ProcessMessages(ctx, []reasoning.Message{
		{Role: "system", Content: extractionInstruction},
		{Role: "user", Content: transcript},
	}, reasoning.WithTemperature(0.2))
	if err != nil {
		return nil, err
	}

	candidates, err := parseCandidates(response)
	if err != nil {
		log.WarnContext(ctx, "Abandoning conversation extraction, response unparseable",
			"conversation_id", conversationID,
			"error", err,
		)
		return nil, nil
	}

	promoted := make([]ltm.MemoryRecord, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Content == "" {
			continue
		}

		importance := defaultCandidateImportance
		if candidate.Importance != nil {
			importance = *candidate.Importance
		}

		tags := candidate.Tags
		if tags == nil {
			tags = []string{}
		}

		memoryType := ltm.MemoryType(candidate.Type)
		if candidate.Type == "" {
			memoryType = ltm.MemoryTypeSemantic
		}

		record, err := e.CreateMemory(ctx, CreateMemoryRequest{
			Content:    candidate.Content,
			MemoryType: memoryType,
			Importance: &importance,
			UserID:     ownerUserID,
			Tags:       tags,
			Metadata: map[string]interface{}{
				"source":          "conversation",
				"conversation_id": conversationID,
			},
		})
		if err != nil {
			log.ErrorContext(ctx, "Failed to promote conversation candidate",
				"conversation_id", conversationID,
				"error", err,
			)
			continue
		}
		promoted = append(promoted, record)
	}

	log.InfoContext(ctx, "Conversation extraction complete",
		"conversation_id", conversationID,
		"candidates", len(candidates),
		"promoted", len(promoted),
	)

	return promoted, nil
}

// buildTranscript concatenates messages into a "role: content" transcript.
func buildTranscript(messages []convo.Message) string {
	lines := make([]string, 0, len(messages))
	for _, message := range messages {
		lines = append(lines, message.Role+": "+message.Content)
	}
	return strings.Join(lines, "\n")
}

// parseCandidates parses the LLM response into candidate memories.
func parseCandidates(response string) ([]candidateData, error) {
	if response == "" {
		return nil, errors.Wrap(errors.ErrParse, "empty response from reasoning engine")
	}

	var parsed candidatesResponse
	if err := json.Unmarshal([]byte(stripCodeFence(response)), &parsed); err != nil {
		return nil, errors.Classify(errors.ErrParse, err, "failed to parse candidates")
	}

	return parsed.Memories, nil
}

// stripCodeFence removes a surrounding markdown code fence, which chat
// models add even when asked for bare JSON.
func stripCodeFence(response string) string {
	trimmed := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
