package processing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teilomillet/quill/extract"
	"github.com/teilomillet/quill/prompt"
	"github.com/teilomillet/quill/server/metrics"
	"github.com/teilomillet/quill/server/mocks"
)

func TestNewProcessor(t *testing.T) {
	_, err := NewProcessor(nil, nil, nil)
	assert.Error(t, err)

	proc, err := NewProcessor(mocks.NewCompleter(""), nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, proc)
}

func TestProcess(t *testing.T) {
	tests := []struct {
		name       string
		req        prompt.Request
		raw        string
		wantResult string
		wantFields map[string]string
	}{
		{
			name:       "single text is normalized",
			req:        prompt.Request{Text: "hello there", Task: prompt.Humanize},
			raw:        `"Here is the result: Hello there."`,
			wantResult: "Hello there.",
		},
		{
			name:       "bullets removed from prose",
			req:        prompt.Request{Text: "- a\n- b", Task: prompt.BulletsToParagraph},
			raw:        "- First point.\n- Second point.",
			wantResult: "First point.\nSecond point.",
		},
		{
			name:       "list tasks keep their markers",
			req:        prompt.Request{Text: "do a then b", Task: prompt.Checklist},
			raw:        "Here is the checklist:\n- [ ] Do a\n- [ ] Do b",
			wantResult: "- [ ] Do a\n- [ ] Do b",
		},
		{
			name: "labeled response options",
			req:  prompt.Request{Text: "Can you join?", Task: prompt.ContextAnalyze},
			raw:  "RESPONSE 1: Hi\nRESPONSE 2: Hey\nRESPONSE 3: Yo",
			wantFields: map[string]string{
				"response1": "Hi",
				"response2": "Hey",
				"response3": "Yo",
			},
		},
		{
			name: "numbered response options",
			req:  prompt.Request{Text: "Can you join?", Task: prompt.ContextAnalyze},
			raw:  "1. Sure, count me in.\n2. Maybe later.\n3. \"Sorry, I can't.\"",
			wantFields: map[string]string{
				"response1": "Sure, count me in.",
				"response2": "Maybe later.",
				"response3": "Sorry, I can't.",
			},
		},
		{
			name: "insights with a missing field",
			req:  prompt.Request{Text: "Per my last email", Task: prompt.ContextInsights},
			raw:  "SENDER_INTENT: Wants a reply\nIMPACT_ON_YOU: Pressure to answer",
			wantFields: map[string]string{
				"senderIntent":     "Wants a reply",
				"impactOnYou":      "Pressure to answer",
				"perceptionImpact": "Analysis not available",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mocks.NewCompleter(tt.raw)
			proc, err := NewProcessor(c, zaptest.NewLogger(t), nil)
			require.NoError(t, err)

			resp, err := proc.Process(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.req.Task, resp.Task)
			assert.Equal(t, tt.raw, resp.Raw)
			assert.Equal(t, prompt.Build(tt.req), c.LastPrompt())

			if tt.wantFields != nil {
				assert.Equal(t, tt.wantFields, resp.Fields)
				assert.Empty(t, resp.Result)
				return
			}
			assert.Equal(t, tt.wantResult, resp.Result)
			assert.Nil(t, resp.Fields)
		})
	}
}

func TestProcessFieldCleanedToEmpty(t *testing.T) {
	tests := []struct {
		name  string
		task  prompt.Task
		raw   string
		field string
		want  string
	}{
		{
			name:  "meta label line",
			task:  prompt.ContextInsights,
			raw:   "SENDER_INTENT: Note: they need it today.\nIMPACT_ON_YOU: Stress\nPERCEPTION_IMPACT: Urgent",
			field: "senderIntent",
			want:  "Analysis not available",
		},
		{
			name:  "empty quotes",
			task:  prompt.ContextAnalyze,
			raw:   "RESPONSE 1: \"\"\nRESPONSE 2: Hey\nRESPONSE 3: Yo",
			field: "response1",
			want:  "Response 1 not available",
		},
		{
			name:  "echoed text label",
			task:  prompt.GenerateVariations,
			raw:   "ANSWER1: Hi\nPROPERTIES1: Text: shorter greeting\nANSWER2: Hello\nPROPERTIES2: warmer\nANSWER3: Hey\nPROPERTIES3: casual",
			field: "properties1",
			want:  "Properties 1 not available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.NewMetrics()
			proc, err := NewProcessor(mocks.NewCompleter(tt.raw), zaptest.NewLogger(t), m)
			require.NoError(t, err)

			resp, err := proc.Process(context.Background(), prompt.Request{Text: "x", Task: tt.task})
			require.NoError(t, err)
			for name, v := range resp.Fields {
				assert.NotEmpty(t, v, "field %s", name)
			}
			assert.Equal(t, tt.want, resp.Fields[tt.field])
			assert.Equal(t, extract.SourcePlaceholder, resp.Sources[tt.field])
			assert.Equal(t, float64(1), testutil.ToFloat64(m.FieldPlaceholders.WithLabelValues(string(tt.task), tt.field)))
		})
	}
}

func TestProcessLineFallback(t *testing.T) {
	proc, err := NewProcessor(mocks.NewCompleter("Sure thing\n\nNot today\nLet me check"), nil, metrics.NewMetrics())
	require.NoError(t, err)

	resp, err := proc.Process(context.Background(), prompt.Request{Text: "lunch?", Task: prompt.ContextAnalyze})
	require.NoError(t, err)
	assert.Equal(t, "Sure thing", resp.Fields["response1"])
	assert.Equal(t, "Not today", resp.Fields["response2"])
	assert.Equal(t, "Let me check", resp.Fields["response3"])
	assert.Equal(t, extract.SourceLineFallback, resp.Sources["response2"])
	assert.Equal(t, float64(1), testutil.ToFloat64(proc.metrics.FieldFallbacks.WithLabelValues("context-analyze")))
}

func TestProcessPlaceholderMetrics(t *testing.T) {
	m := metrics.NewMetrics()
	proc, err := NewProcessor(mocks.NewCompleter("nothing useful"), nil, m)
	require.NoError(t, err)

	resp, err := proc.Process(context.Background(), prompt.Request{Text: "x", Task: prompt.GenerateVariations})
	require.NoError(t, err)
	assert.Len(t, resp.Fields, 6)
	assert.Equal(t, "Answer 1 not available", resp.Fields["answer1"])
	assert.Equal(t, float64(1), testutil.ToFloat64(m.FieldPlaceholders.WithLabelValues("generate-variations", "properties3")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TransformsTotal.WithLabelValues("generate-variations", "success")))
}

func TestProcessErrors(t *testing.T) {
	m := metrics.NewMetrics()
	backendErr := errors.New("upstream 500")
	proc, err := NewProcessor(mocks.NewFailingCompleter(backendErr), nil, m)
	require.NoError(t, err)

	_, err = proc.Process(context.Background(), prompt.Request{Text: "x", Task: prompt.Summarize})
	require.Error(t, err)
	assert.ErrorIs(t, err, backendErr)
	assert.Contains(t, err.Error(), "Summarize")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TransformsTotal.WithLabelValues("summarize", "error")))

	_, err = proc.Process(context.Background(), prompt.Request{Text: "x", Task: "juggle"})
	assert.ErrorIs(t, err, ErrUnknownTask)

	_, err = proc.Prompt(prompt.Request{Text: "x", Task: "juggle"})
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestResponseJSON(t *testing.T) {
	single, err := json.Marshal(&Response{Result: "Hello."})
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":"Hello."}`, string(single))

	fields, err := json.Marshal(&Response{Fields: map[string]string{"response1": "Hi", "response2": "Hey"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"response1":"Hi","response2":"Hey"}`, string(fields))
}

func TestEveryFieldsTaskHasSchema(t *testing.T) {
	for _, info := range prompt.Tasks() {
		if info.Shape != prompt.Fields {
			continue
		}
		_, ok := SchemaFor(info.Task)
		assert.True(t, ok, "task %s has no schema", info.Task)
	}
}
