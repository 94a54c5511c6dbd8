package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/danbryan/redline/internal/extract"
	"github.com/danbryan/redline/internal/providers"
)

// Default chunking geometry, in words. Roughly tracks a 6k-token window
// with a 10% overlap so clauses split across a boundary appear in both
// neighboring chunks.
const (
	defaultChunkWords   = 4500
	defaultChunkOverlap = 450
)

// Request carries everything an executor needs to run one stage.
type Request struct {
	Label    string
	Agent    string
	Contract string

	// Prior holds raw outputs of earlier stages, keyed by label.
	Prior map[string]string
}

// Executor produces the raw output for a single analytic stage.
type Executor interface {
	Execute(ctx context.Context, req Request) (string, error)
}

// LLMExecutor runs stages against a chat backend, chunking long contracts
// and merging per-chunk structured results.
type LLMExecutor struct {
	client       providers.ChatClient
	model        string
	temperature  float64
	chunkWords   int
	chunkOverlap int
	logger       *slog.Logger
}

// LLMExecutorConfig configures an LLMExecutor.
type LLMExecutorConfig struct {
	Client       providers.ChatClient
	Model        string
	Temperature  float64
	ChunkWords   int
	ChunkOverlap int
	Logger       *slog.Logger
}

// NewLLMExecutor creates an executor backed by the given chat client.
func NewLLMExecutor(cfg LLMExecutorConfig) *LLMExecutor {
	if cfg.ChunkWords <= 0 {
		cfg.ChunkWords = defaultChunkWords
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = defaultChunkOverlap
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &LLMExecutor{
		client:       cfg.Client,
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		chunkWords:   cfg.ChunkWords,
		chunkOverlap: cfg.ChunkOverlap,
		logger:       cfg.Logger,
	}
}

// Execute runs one stage and returns its raw output. Array stages come back
// as canonical JSON when at least one chunk parsed; otherwise the model's
// raw text is returned unchanged so callers can still display it.
func (e *LLMExecutor) Execute(ctx context.Context, req Request) (string, error) {
	def, ok := DefFor(req.Label)
	if !ok {
		return "", fmt.Errorf("unknown stage: %s", req.Label)
	}

	chunks := chunkWords(req.Contract, e.chunkWords, e.chunkOverlap)
	if len(chunks) > 1 {
		e.logger.Debug("contract split for stage",
			"stage", def.Label, "chunks", len(chunks))
	}

	switch def.Shape {
	case ShapeArray:
		return e.runArrayStage(ctx, def, chunks, req.Prior)
	case ShapeObject:
		return e.runObjectStage(ctx, def, chunks)
	default:
		return e.runScalarStage(ctx, def, chunks)
	}
}

// runArrayStage collects items across chunks, validates them, applies the
// stage-specific merge, and re-encodes the result as JSON.
func (e *LLMExecutor) runArrayStage(ctx context.Context, def Def, chunks []string, prior map[string]string) (string, error) {
	var items []any
	var lastRaw string
	parsedAny := false

	for i, chunk := range chunks {
		raw, err := e.chat(ctx, def, stagePrompt(def.Label, chunk))
		if err != nil {
			return "", fmt.Errorf("stage %s chunk %d: %w", def.Label, i+1, err)
		}
		lastRaw = raw

		arr := extract.ResolveArray(raw)
		if arr == nil {
			e.logger.Warn("stage chunk output did not resolve to an array",
				"stage", def.Label, "chunk", i+1)
			continue
		}
		parsedAny = true
		items = append(items, validItems(def.Label, arr)...)
	}

	// Nothing parsed anywhere. Hand back the last raw output so the
	// client-side resolver (or a human) gets a shot at it.
	if !parsedAny {
		return lastRaw, nil
	}

	switch def.Label {
	case LabelLegalRisks:
		items = MergeRisks(items)
	case LabelMitigations:
		risks := extract.ResolveArray(prior[LabelLegalRisks])
		items = AlignMitigations(items, RiskClauses(risks))
	case LabelCommercial:
		items = dedupeByClause(items)
	}

	out, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s items: %w", def.Label, err)
	}
	return string(out), nil
}

// runObjectStage runs as a scalar stage, then resolves and validates the
// object against the stage schema. A conforming object is re-encoded as
// canonical JSON; anything else comes back as the raw text so callers can
// still display it.
func (e *LLMExecutor) runObjectStage(ctx context.Context, def Def, chunks []string) (string, error) {
	raw, err := e.runScalarStage(ctx, def, chunks)
	if err != nil {
		return "", err
	}

	obj := extract.ResolveObject(raw)
	if obj == nil || !validObject(def.Label, obj) {
		e.logger.Warn("stage output did not resolve to a conforming object",
			"stage", def.Label)
		return raw, nil
	}

	out, err := json.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s object: %w", def.Label, err)
	}
	return string(out), nil
}

// runScalarStage handles text stages: a single call for short contracts, or
// per-chunk calls followed by a combine pass.
func (e *LLMExecutor) runScalarStage(ctx context.Context, def Def, chunks []string) (string, error) {
	if len(chunks) == 1 {
		return e.chat(ctx, def, stagePrompt(def.Label, chunks[0]))
	}

	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		raw, err := e.chat(ctx, def, stagePrompt(def.Label, chunk))
		if err != nil {
			return "", fmt.Errorf("stage %s chunk %d: %w", def.Label, i+1, err)
		}
		parts = append(parts, strings.TrimSpace(raw))
	}

	combined, err := e.chat(ctx, def, combinePrompt(def.Label, parts))
	if err != nil {
		return "", fmt.Errorf("stage %s combine: %w", def.Label, err)
	}
	return combined, nil
}

func (e *LLMExecutor) chat(ctx context.Context, def Def, prompt string) (string, error) {
	res, err := e.client.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: systemPrompt(def)},
			{Role: "user", Content: prompt},
		},
		Model:       e.model,
		Temperature: e.temperature,
		RequestID:   uuid.New().String(),
	})
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

func systemPrompt(def Def) string {
	return fmt.Sprintf("You are a %s reviewing a commercial contract. Be precise, cite the contract text, and follow the output format exactly.", def.Agent)
}

// dedupeByClause drops repeated clauses, keeping first occurrence order.
func dedupeByClause(items []any) []any {
	seen := make(map[string]bool, len(items))
	kept := make([]any, 0, len(items))
	for _, item := range items {
		clause := strings.ToLower(strings.TrimSpace(itemString(item, "clause")))
		if clause == "" || seen[clause] {
			continue
		}
		seen[clause] = true
		kept = append(kept, item)
	}
	return kept
}
