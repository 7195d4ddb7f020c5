// Package brain drives the memory store around conversational turns: each
// incoming signal is remembered and answered with the most relevant earlier
// memories, packed into a token budget.
package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agency1/hippocampus/internal/keygen"
	"github.com/agency1/hippocampus/internal/model"
	"github.com/agency1/hippocampus/internal/store"
)

// ErrEmptySignal is returned for blank input.
var ErrEmptySignal = errors.New("empty signal")

// Memory is the part of the memory store the brain uses.
type Memory interface {
	Store(ctx context.Context, payload any, longTerm bool) (string, error)
	Search(ctx context.Context, query string, topK int, threshold float64) ([]model.Match, error)
	Feedback(ctx context.Context, key string, positive bool) (bool, error)
	Consolidate(ctx context.Context, age time.Duration) (int, error)
	Stats() store.Stats
}

// NetworkConfig describes the downstream network stage. It is carried
// through unchanged and has no behavior of its own.
type NetworkConfig struct {
	InputSize    int    `yaml:"input_size" json:"input_size"`
	HiddenLayers []int  `yaml:"hidden_layers" json:"hidden_layers"`
	OutputSize   int    `yaml:"output_size" json:"output_size"`
	Activation   string `yaml:"activation" json:"activation"`
}

// Config tunes turn processing.
type Config struct {
	TopK                int
	SimilarityThreshold float64
	// ContextBudget caps the tokens of context attached to a turn. 0 means
	// no cap.
	ContextBudget int
	Network       NetworkConfig
}

// ContextItem is one remembered entry attached to a turn.
type ContextItem struct {
	Key        string     `json:"key"`
	Tier       model.Tier `json:"tier"`
	Similarity float64    `json:"similarity"`
	Text       string     `json:"text"`
	Tokens     int        `json:"tokens"`
}

// Turn is the outcome of processing one signal.
type Turn struct {
	ID       string        `json:"id"`
	Key      string        `json:"key"`
	Signal   string        `json:"signal"`
	Context  []ContextItem `json:"context"`
	Budget   int           `json:"budget"`
	Used     int           `json:"used"`
	Network  NetworkConfig `json:"network"`
	Warnings []string      `json:"warnings,omitempty"`
}

// Brain orchestrates store, recall and feedback calls.
type Brain struct {
	mem    Memory
	cfg    Config
	tokens TokenCounter
	logger *slog.Logger
}

// Option configures a Brain.
type Option func(*Brain)

// WithTokenCounter sets how context size is measured.
func WithTokenCounter(c TokenCounter) Option {
	return func(b *Brain) { b.tokens = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Brain) { b.logger = l }
}

// New creates a Brain over mem.
func New(mem Memory, cfg Config, opts ...Option) *Brain {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	b := &Brain{mem: mem, cfg: cfg, tokens: ApproxTokens, logger: slog.Default()}
	for _, o := range opts {
		o(b)
	}
	b.logger = b.logger.With("component", "brain")
	return b
}

// Config returns the active configuration.
func (b *Brain) Config() Config { return b.cfg }

// ProcessSignal remembers text in the recent tier and returns the turn with
// the related memories that fit the context budget. The signal itself is
// never part of its own context. Soft failures are reported as warnings.
func (b *Brain) ProcessSignal(ctx context.Context, text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptySignal
	}

	turn := &Turn{
		ID:      uuid.NewString(),
		Signal:  text,
		Context: []ContextItem{},
		Budget:  b.cfg.ContextBudget,
		Network: b.cfg.Network,
	}

	key, err := b.mem.Store(ctx, text, false)
	if key == "" {
		return nil, fmt.Errorf("store signal: %w", err)
	}
	turn.Key = key
	b.warn(turn, err)

	matches, err := b.mem.Search(ctx, text, b.cfg.TopK+1, b.cfg.SimilarityThreshold)
	if err != nil && !store.IsSoft(err) {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	b.warn(turn, err)

	for _, m := range matches {
		if m.Key == key {
			continue
		}
		if len(turn.Context) == b.cfg.TopK {
			break
		}
		item := ContextItem{Key: m.Key, Tier: m.Tier, Similarity: m.Similarity, Text: render(m.Payload)}
		item.Tokens = b.tokens(item.Text)
		if b.cfg.ContextBudget > 0 && turn.Used+item.Tokens > b.cfg.ContextBudget {
			continue
		}
		turn.Context = append(turn.Context, item)
		turn.Used += item.Tokens
	}

	b.logger.Debug("processed signal", "turn", turn.ID, "key", key, "context", len(turn.Context), "tokens", turn.Used)
	return turn, nil
}

func (b *Brain) warn(turn *Turn, err error) {
	if err == nil {
		return
	}
	b.logger.Warn("turn degraded", "turn", turn.ID, "err", err)
	turn.Warnings = append(turn.Warnings, err.Error())
}

func render(payload any) string {
	if s, ok := payload.(string); ok {
		return s
	}
	out, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprint(payload)
	}
	return string(out)
}

// Feedback adjusts the weight of a remembered entry.
func (b *Brain) Feedback(ctx context.Context, key string, positive bool) (bool, error) {
	return b.mem.Feedback(ctx, key, positive)
}

// Stats reports memory statistics.
func (b *Brain) Stats() store.Stats { return b.mem.Stats() }

// Task is a unit of work for ProcessTask.
type Task struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// TaskResult reports the outcome of ProcessTask.
type TaskResult struct {
	Success  bool        `json:"success"`
	TaskID   string      `json:"task_id,omitempty"`
	Result   *Turn       `json:"result,omitempty"`
	Error    string      `json:"error,omitempty"`
	Metadata store.Stats `json:"metadata"`
}

// ProcessTask runs task content through ProcessSignal. A task without an id
// is identified by the key of its content.
func (b *Brain) ProcessTask(ctx context.Context, task Task) TaskResult {
	id := task.ID
	if id == "" {
		id = "unknown"
	}
	b.logger.Info("processing task", "task", id)

	turn, err := b.ProcessSignal(ctx, task.Content)
	if err != nil {
		b.logger.Info("task processing complete", "task", id, "success", false, "err", err)
		return TaskResult{
			Success:  false,
			Error:    "Processing failed or input was invalid",
			Metadata: b.Stats(),
		}
	}

	if task.ID == "" {
		if k, err := keygen.Generate(task.Content); err == nil {
			task.ID = k
		}
	}
	b.logger.Info("task processing complete", "task", task.ID, "success", true)
	return TaskResult{
		Success:  true,
		TaskID:   task.ID,
		Result:   turn,
		Metadata: b.Stats(),
	}
}

// RunConsolidation consolidates entries older than age every interval until
// ctx is done. Failures are logged and retried on the next tick.
func (b *Brain) RunConsolidation(ctx context.Context, every, age time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			moved, err := b.mem.Consolidate(ctx, age)
			if err != nil {
				b.logger.Error("consolidation failed", "err", err)
				continue
			}
			if moved > 0 {
				b.logger.Info("consolidated memories", "moved", moved)
			}
		}
	}
}
