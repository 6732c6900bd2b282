package processing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/teilomillet/quill/extract"
	"github.com/teilomillet/quill/normalize"
	"github.com/teilomillet/quill/prompt"
	"github.com/teilomillet/quill/server/metrics"
	"github.com/teilomillet/quill/server/provider"
)

// ErrUnknownTask is returned for a task without a registered template.
var ErrUnknownTask = errors.New("unknown task")

// schemas maps every multi-field task to the schema its completion is parsed with.
var schemas = map[prompt.Task]*extract.Schema{
	prompt.ContextAnalyze:     extract.ResponseOptions,
	prompt.ContextInsights:    extract.ContextInsights,
	prompt.GenerateVariations: extract.Variations,
}

// SchemaFor returns the extraction schema of a multi-field task.
func SchemaFor(t prompt.Task) (*extract.Schema, bool) {
	s, ok := schemas[t]
	return s, ok
}

// Processor turns requests into cleaned responses using one Completer.
type Processor struct {
	completer provider.Completer
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// NewProcessor creates a processor. m may be nil.
func NewProcessor(completer provider.Completer, logger *zap.Logger, m *metrics.Metrics) (*Processor, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{completer: completer, logger: logger, metrics: m}, nil
}

// Process builds the prompt of req, sends it to the backend once and cleans
// the reply. The only error sources are an unknown task and the backend call.
func (p *Processor) Process(ctx context.Context, req prompt.Request) (*Response, error) {
	info, ok := prompt.Lookup(req.Task)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, req.Task)
	}

	text := prompt.Build(req)

	start := time.Now()
	raw, err := p.completer.Complete(ctx, text)
	if err != nil {
		p.count(req.Task, "error")
		return nil, fmt.Errorf("%s: %w", info.Title, err)
	}

	resp := p.shape(info, raw)
	p.count(req.Task, "success")

	p.logger.Debug("transform processed",
		zap.String("task", string(req.Task)),
		zap.Int("prompt_len", len(text)),
		zap.Int("raw_len", len(raw)),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

// Prompt returns the prompt Process would send for req.
func (p *Processor) Prompt(req prompt.Request) (string, error) {
	if !req.Task.Supported() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTask, req.Task)
	}
	return prompt.Build(req), nil
}

func (p *Processor) shape(info prompt.Info, raw string) *Response {
	resp := &Response{Task: info.Task, Raw: raw}

	switch info.Shape {
	case prompt.ListText:
		resp.Result = normalize.KeepLists(raw)
	case prompt.Fields:
		schema, ok := schemas[info.Task]
		if !ok {
			resp.Result = normalize.Normalize(raw)
			return resp
		}
		// Labels such as "1." are list markers, so they must survive cleaning.
		outcome := extract.Parse(normalize.KeepLists(raw), schema)
		cleanFields(schema, outcome)
		resp.Fields = outcome.Values
		resp.Sources = outcome.Sources
		p.observeExtraction(info, outcome)
	default:
		resp.Result = normalize.Normalize(raw)
	}
	return resp
}

// cleanFields normalizes every extracted value. A value that cleans down to
// nothing, such as a lone "Note: ..." line or "\"\"", takes its placeholder.
func cleanFields(schema *extract.Schema, outcome extract.Outcome) {
	for _, f := range schema.Fields {
		v := normalize.Normalize(outcome.Values[f.Name])
		if v == "" {
			v = f.PlaceholderText()
			outcome.Sources[f.Name] = extract.SourcePlaceholder
		}
		outcome.Values[f.Name] = v
	}
}

func (p *Processor) observeExtraction(info prompt.Info, outcome extract.Outcome) {
	missing := outcome.Missing()
	if len(missing) > 0 {
		p.logger.Info("extraction fell back to placeholders",
			zap.String("task", string(info.Task)),
			zap.Strings("fields", missing),
		)
	}
	if p.metrics == nil {
		return
	}
	for _, name := range missing {
		p.metrics.FieldPlaceholders.WithLabelValues(string(info.Task), name).Inc()
	}
	for _, src := range outcome.Sources {
		if src == extract.SourceLineFallback {
			p.metrics.FieldFallbacks.WithLabelValues(string(info.Task)).Inc()
			break
		}
	}
}

func (p *Processor) count(t prompt.Task, outcome string) {
	if p.metrics != nil {
		p.metrics.TransformsTotal.WithLabelValues(string(t), outcome).Inc()
	}
}
