package prompt

import (
	"fmt"
	"strings"
)

// Request is a single transformation request.
type Request struct {
	Text       string
	Task       Task
	Directives Directives
}

// Directives holds the optional modifiers of a request. Zero values mean absent.
type Directives struct {
	TargetLanguage    string
	SourceLanguage    string
	HinglishIntensity *HinglishLevel

	BulletStyle string
	WordLimit   int

	FindText    string
	ReplaceText string
	DeleteTerms []string

	SenderRole   string
	ReceiverRole string

	CustomInstruction string
	Tone              string

	SenderContext          string
	ConversationAim        string
	RegenerationProperties string
}

// Level returns a pointer to l, for filling Directives.HinglishIntensity.
func Level(l HinglishLevel) *HinglishLevel {
	return &l
}

const returnOnly = "Return ONLY the transformed text, with no preamble, labels, quotes or explanation."

// BulletStyles maps the accepted bullet style keys to their enumeration description.
var BulletStyles = map[string]string{
	"step":    "Step 1, Step 2, Step 3...",
	"roman":   "I, II, III, IV...",
	"alpha":   "a, b, c, d...",
	"numeric": "1, 2, 3, 4...",
	"firstly": "Firstly, Secondly, Thirdly...",
}

// DefaultBulletStyle is used for missing or unknown bullet style keys.
const DefaultBulletStyle = "step"

type template struct {
	body func(Request) string
	// ownsLanguage means the body already states the output language.
	ownsLanguage bool
	// ownsReturn means the body already carries its own output rule.
	ownsReturn bool
}

var templates = map[Task]template{
	Humanize: {body: func(r Request) string {
		return "Rewrite the following text in a natural, human-like way that sounds conversational and authentic. " +
			"Avoid robotic or AI-like phrasing. Return ONLY the rewritten text, nothing else.\n\n" + original(r.Text)
	}, ownsReturn: true},
	Paraphrase: {body: func(r Request) string {
		return "Paraphrase the following text while keeping the meaning intact and using different wording. " +
			"Return ONLY the paraphrased text, nothing else.\n\n" + original(r.Text)
	}, ownsReturn: true},
	Summarize: {body: simple("Summarize the following text into a concise version while keeping all key points:")},
	Elaborate: {body: simple("Expand and elaborate on the following text, adding more detail and explanation:")},
	Grammar:   {body: simple("Correct grammar, spelling, and style issues in the following text:")},
	Simplify:  {body: simple("Simplify the following text into easy to understand words while keeping the meaning:")},
	CustomRole: {body: func(r Request) string {
		return fmt.Sprintf("You are rewriting a message%s.\n"+
			"Optimize the phrasing so it makes sense for communication between these roles while keeping the meaning intact.\n\n%s",
			roles(r.Directives), original(r.Text))
	}},
	ParagraphToBullets: {body: func(r Request) string {
		return fmt.Sprintf("Convert the following paragraph into bullet points using %s format:\n\n%s",
			bulletStyle(r.Directives.BulletStyle), original(r.Text))
	}},
	BulletsToParagraph: {body: simple("Convert the following bullet points into a flowing paragraph:")},
	TableToText:        {body: simple("Convert the following table data into dense, readable text format:")},
	TextToTable:        {body: simple("Convert the following dense text into a well-formatted table:")},
	Checklist:          {body: simple("Convert the following text into a checklist format with checkboxes:")},
	WordLimit: {body: func(r Request) string {
		if r.Directives.WordLimit <= 0 {
			return "Rephrase the following text concisely while keeping all important information:\n\n" + original(r.Text)
		}
		return fmt.Sprintf("Rephrase the following text to be exactly %d words while keeping all important information:\n\n%s",
			r.Directives.WordLimit, original(r.Text))
	}},
	LanguageConvert: {body: languageConvert, ownsLanguage: true},
	DeleteAll: {body: func(r Request) string {
		terms := DeleteTerms(r.Directives.DeleteTerms)
		var b strings.Builder
		if len(terms) == 0 {
			b.WriteString("Remove filler words and redundant phrases from the text while keeping everything else intact.")
		} else {
			b.WriteString("Remove the following words/phrases from the text while keeping everything else intact: ")
			b.WriteString(strings.Join(terms, ", "))
		}
		b.WriteString("\n\n")
		b.WriteString(original(r.Text))
		b.WriteString("\n\nReturn ONLY the cleaned text with the specified words/phrases removed. Keep all other content exactly as it was.")
		return b.String()
	}, ownsReturn: true},
	ReplaceAll: {body: func(r Request) string {
		find, repl := strings.TrimSpace(r.Directives.FindText), strings.TrimSpace(r.Directives.ReplaceText)
		instr := "Replace all content in the following text"
		if find != "" && repl != "" {
			instr += fmt.Sprintf(" by finding \"%s\" and replacing with \"%s\"", find, repl)
		} else {
			instr += " with new content while maintaining the same structure"
		}
		return instr + ":\n\n" + original(r.Text)
	}},
	PromptIt: {body: simple("Create an optimized prompt for AI models based on the following text. Minimize tokens and optimize for AI understanding:")},
	CustomFormat: {body: func(r Request) string {
		req := strings.TrimSpace(r.Directives.CustomInstruction)
		if req == "" {
			return "Improve the formatting of the following text so it is clear and easy to read:\n\n" + original(r.Text)
		}
		return fmt.Sprintf("Apply the following formatting request to the text: \"%s\"\n\n%s", req, original(r.Text))
	}},
	Tone: {body: func(r Request) string {
		tone := strings.TrimSpace(r.Directives.Tone)
		if tone == "" {
			tone = "neutral"
		}
		return fmt.Sprintf("Rewrite the following text in a %s tone. Keep the meaning intact, but adjust the mood and phrasing.\n\n%s",
			tone, original(r.Text))
	}},
	ContextAnalyze: {body: func(r Request) string {
		var b strings.Builder
		b.WriteString("Generate 3 different response options for this message. ")
		b.WriteString("Analyze the relationship between sender and receiver to optimize tone and approach:\n\n")
		writeContext(&b, r)
		if strings.TrimSpace(r.Directives.ConversationAim) != "" {
			b.WriteString("\n\nGenerate responses that work towards achieving this aim.")
		} else {
			b.WriteString("\n\nGenerate varied responses with different approaches and tones.")
		}
		b.WriteString("\n\nGenerate exactly 3 responses in this format:\n\n" +
			"RESPONSE 1: [Direct and confident approach - complete message]\n" +
			"RESPONSE 2: [Diplomatic and considerate approach - complete message]\n" +
			"RESPONSE 3: [Strategic and thoughtful approach - complete message]\n\n" +
			"Each response should be a complete message that could be sent directly. " +
			"Return ONLY the response text without any additional formatting, explanations, or quotes.")
		return b.String()
	}, ownsReturn: true},
	ContextInsights: {body: func(r Request) string {
		var b strings.Builder
		b.WriteString("Analyze the following message and provide insights:\n\n")
		writeContext(&b, r)
		b.WriteString("\n\nProvide analysis in this exact format:\n\n" +
			"SENDER_INTENT: [What the sender is thinking or trying to achieve]\n" +
			"IMPACT_ON_YOU: [What this message means for you and your situation]\n" +
			"PERCEPTION_IMPACT: [How your response will affect how the sender perceives you]\n\n" +
			"Keep each analysis concise (1-2 sentences) and practical.")
		return b.String()
	}, ownsReturn: true},
	GenerateVariations: {body: func(r Request) string {
		return "Create 3 different versions of the following text with slight variations in tone, format, and arrangement. " +
			"For each version, explain what changes you made:\n\n" + original(r.Text) + "\n\n" +
			"Format the response as:\n" +
			"ANSWER1: [text]\nPROPERTIES1: [explanation]\n\n" +
			"ANSWER2: [text]\nPROPERTIES2: [explanation]\n\n" +
			"ANSWER3: [text]\nPROPERTIES3: [explanation]\n\n" +
			"Return ONLY the answers and properties, no additional text or formatting."
	}, ownsReturn: true},
	RegenerateAnswer: {body: func(r Request) string {
		var b strings.Builder
		b.WriteString("Regenerate the following text using the specified properties:\n\n")
		b.WriteString(original(r.Text))
		if props := strings.TrimSpace(r.Directives.RegenerationProperties); props != "" {
			fmt.Fprintf(&b, "\nProperties to apply: \"%s\"", props)
		}
		b.WriteString("\n\nCreate a new version that incorporates these specific changes.")
		return b.String()
	}},
	LegacyHumanise: {body: func(r Request) string {
		return fmt.Sprintf("Rewrite the following text in a natural, human-like way:\n\n\"%s\"", r.Text)
	}},
	LegacyCondense: {body: func(r Request) string {
		return fmt.Sprintf("Condense the following text into a shorter, concise version while keeping the meaning:\n\n\"%s\"", r.Text)
	}},
}

// Build renders req into the instruction sent to the completion backend.
// It never fails; missing optional directives degrade to neutral wording.
func Build(req Request) string {
	tpl, ok := templates[req.Task]
	if !ok {
		tpl = template{body: simple("Transform the following text as requested:")}
	}

	parts := []string{tpl.body(req)}
	if !tpl.ownsReturn {
		parts = append(parts, returnOnly)
	}
	if !tpl.ownsLanguage {
		if dir := languageDirective(req.Directives); dir != "" {
			parts = append(parts, dir)
		}
	}
	return strings.Join(parts, "\n\n")
}

// DeleteTerms splits every entry on commas, trims the pieces and drops empty ones.
func DeleteTerms(entries []string) []string {
	var out []string
	for _, entry := range entries {
		for _, term := range strings.Split(entry, ",") {
			if term = strings.TrimSpace(term); term != "" {
				out = append(out, term)
			}
		}
	}
	return out
}

func simple(instruction string) func(Request) string {
	return func(r Request) string {
		return instruction + "\n\n" + original(r.Text)
	}
}

func original(text string) string {
	return fmt.Sprintf("Original: \"%s\"", text)
}

func bulletStyle(key string) string {
	if style, ok := BulletStyles[strings.ToLower(strings.TrimSpace(key))]; ok {
		return style
	}
	return BulletStyles[DefaultBulletStyle]
}

func roles(d Directives) string {
	sender, receiver := strings.TrimSpace(d.SenderRole), strings.TrimSpace(d.ReceiverRole)
	var clauses []string
	if sender != "" {
		clauses = append(clauses, fmt.Sprintf("the **sender** has the role of \"%s\"", sender))
	}
	if receiver != "" {
		clauses = append(clauses, fmt.Sprintf("the **receiver** has the role of \"%s\"", receiver))
	}
	if len(clauses) == 0 {
		return ""
	}
	return " where " + strings.Join(clauses, "\nand ")
}

func writeContext(b *strings.Builder, r Request) {
	fmt.Fprintf(b, "Message: \"%s\"", r.Text)
	if sender := strings.TrimSpace(r.Directives.SenderContext); sender != "" {
		fmt.Fprintf(b, "\nSender Context: \"%s\"", sender)
	}
	if aim := strings.TrimSpace(r.Directives.ConversationAim); aim != "" {
		fmt.Fprintf(b, "\nConversation Aim: \"%s\"", aim)
	}
}

func languageConvert(r Request) string {
	d := r.Directives
	var instr string
	switch {
	case isHinglish(d.TargetLanguage):
		instr = fmt.Sprintf("Convert the following text to Hinglish with %s intensity:", hinglishLevel(d))
	default:
		target := strings.TrimSpace(d.TargetLanguage)
		if target == "" {
			target = "English"
		}
		if source := strings.TrimSpace(d.SourceLanguage); source != "" {
			instr = fmt.Sprintf("Convert the following text from %s to %s:", source, target)
		} else {
			instr = fmt.Sprintf("Convert the following text to %s:", target)
		}
	}
	return instr + "\n\n" + original(r.Text)
}
