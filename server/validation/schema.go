package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/teilomillet/quill/prompt"
)

// TransformRequest is the JSON body accepted by every task endpoint.
type TransformRequest struct {
	Text              string   `json:"text" validate:"required,notblank"`
	InputLang         string   `json:"inputLang,omitempty" validate:"omitempty,max=64"`
	OutputLang        string   `json:"outputLang,omitempty" validate:"omitempty,max=64"`
	HinglishIntensity *FlexInt `json:"hinglishIntensity,omitempty" validate:"omitempty,min=0,max=4"`
	BulletStyle       string   `json:"bulletStyle,omitempty"`
	WordLimit         FlexInt  `json:"wordLimit,omitempty"`
	FindText          string   `json:"findText,omitempty"`
	ReplaceText       string   `json:"replaceText,omitempty"`
	DeleteText        string   `json:"deleteText,omitempty"`
	SenderRole        string   `json:"senderRole,omitempty"`
	ReceiverRole      string   `json:"receiverRole,omitempty"`
	Request           string   `json:"request,omitempty"`
	Tone              string   `json:"tone,omitempty"`
	Sender            string   `json:"sender,omitempty"`
	Aim               string   `json:"aim,omitempty"`
	Properties        string   `json:"properties,omitempty"`
}

// FlexInt is an integer that also accepts a numeric JSON string. Browser
// forms often send numbers as strings; an empty string means zero.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		*f = FlexInt(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexInt(n)
	return nil
}

// requiredParams lists, per task, the body fields that must be non-blank in
// addition to text.
var requiredParams = map[prompt.Task][]string{
	prompt.DeleteAll: {"deleteText"},
}

// param returns the value of a body field by JSON name.
func (r *TransformRequest) param(name string) string {
	switch name {
	case "deleteText":
		return r.DeleteText
	case "findText":
		return r.FindText
	case "request":
		return r.Request
	case "tone":
		return r.Tone
	}
	return ""
}

// ToPrompt converts the body into a prompt request for task.
func (r *TransformRequest) ToPrompt(task prompt.Task) prompt.Request {
	d := prompt.Directives{
		TargetLanguage:         r.OutputLang,
		SourceLanguage:         r.InputLang,
		BulletStyle:            r.BulletStyle,
		WordLimit:              int(r.WordLimit),
		FindText:               r.FindText,
		ReplaceText:            r.ReplaceText,
		SenderRole:             r.SenderRole,
		ReceiverRole:           r.ReceiverRole,
		CustomInstruction:      r.Request,
		Tone:                   r.Tone,
		SenderContext:          r.Sender,
		ConversationAim:        r.Aim,
		RegenerationProperties: r.Properties,
	}
	if r.HinglishIntensity != nil {
		d.HinglishIntensity = prompt.Level(prompt.HinglishLevel(*r.HinglishIntensity))
	}
	if strings.TrimSpace(r.DeleteText) != "" {
		d.DeleteTerms = []string{r.DeleteText}
	}
	return prompt.Request{Text: r.Text, Task: task, Directives: d}
}

// Tokenizer defines the interface for token counting
type Tokenizer interface {
	CountTokens(text string) int
}

// tiktokenWrapper wraps tiktoken to implement our Tokenizer interface
type tiktokenWrapper struct {
	*tiktoken.Tiktoken
}

func (t *tiktokenWrapper) CountTokens(text string) int {
	return len(t.Encode(text, nil, nil))
}

// approxTokenizer estimates four characters per token. It is used when the
// tiktoken encoding cannot be loaded.
type approxTokenizer struct{}

func (approxTokenizer) CountTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// TokenCounter counts the tokens of request texts.
type TokenCounter struct {
	encoding Tokenizer
	exact    bool
}

// NewTokenCounter creates a counter for a tiktoken encoding such as
// cl100k_base. When the encoding is unavailable the counter falls back to an
// estimate and the load error is returned alongside it.
func NewTokenCounter(encoding string) (*TokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return &TokenCounter{encoding: approxTokenizer{}}, fmt.Errorf("failed to get encoding %s: %w", encoding, err)
	}
	return &TokenCounter{encoding: &tiktokenWrapper{enc}, exact: true}, nil
}

// NewTokenCounterWith wraps an existing tokenizer.
func NewTokenCounterWith(t Tokenizer) *TokenCounter {
	return &TokenCounter{encoding: t, exact: true}
}

// CountTokens counts the tokens of text.
func (tc *TokenCounter) CountTokens(text string) int {
	return tc.encoding.CountTokens(text)
}

// Exact reports whether counts come from a real encoding.
func (tc *TokenCounter) Exact() bool {
	return tc.exact
}

// ValidateTokens checks that text stays within maxTokens. A non-positive
// limit disables the check.
func (tc *TokenCounter) ValidateTokens(text string, maxTokens int) error {
	if maxTokens <= 0 {
		return nil
	}
	if n := tc.CountTokens(text); n > maxTokens {
		return fmt.Errorf("input tokens (%d) exceed the limit (%d)", n, maxTokens)
	}
	return nil
}
