package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/teilomillet/quill/prompt"
	"github.com/teilomillet/quill/server/processing"
	"github.com/teilomillet/quill/server/provider"
	"github.com/teilomillet/quill/server/validation"
)

// requestFlags mirrors the JSON body of the task endpoints.
type requestFlags struct {
	body      validation.TransformRequest
	intensity int
	wordLimit int
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.body.Text, "text", "t", "", `Text to transform, "-" reads stdin`)
	fs.StringVar(&f.body.InputLang, "input-lang", "", "Source language")
	fs.StringVar(&f.body.OutputLang, "output-lang", "", "Target language")
	fs.IntVar(&f.intensity, "intensity", -1, "Hinglish intensity from 0 (pure English) to 4 (pure Hindi)")
	fs.StringVar(&f.body.BulletStyle, "bullet-style", "", "Bullet style for paragraph-to-bullets")
	fs.IntVar(&f.wordLimit, "word-limit", 0, "Word limit")
	fs.StringVar(&f.body.FindText, "find", "", "Text to find")
	fs.StringVar(&f.body.ReplaceText, "replace", "", "Replacement text")
	fs.StringVar(&f.body.DeleteText, "delete", "", "Comma separated terms to delete")
	fs.StringVar(&f.body.SenderRole, "sender-role", "", "Sender role")
	fs.StringVar(&f.body.ReceiverRole, "receiver-role", "", "Receiver role")
	fs.StringVar(&f.body.Request, "request", "", "Custom instruction")
	fs.StringVar(&f.body.Tone, "tone", "", "Target tone")
	fs.StringVar(&f.body.Sender, "sender", "", "Sender context")
	fs.StringVar(&f.body.Aim, "aim", "", "Conversation aim")
	fs.StringVar(&f.body.Properties, "properties", "", "Regeneration properties")
}

// request checks the flags for task the way the HTTP endpoint checks a body.
func (f *requestFlags) request(cmd *cobra.Command, task prompt.Task) (prompt.Request, error) {
	if !task.Supported() {
		return prompt.Request{}, fmt.Errorf("unknown task %q", task)
	}
	if f.body.Text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return prompt.Request{}, fmt.Errorf("read stdin: %w", err)
		}
		f.body.Text = string(data)
	}
	if f.intensity >= 0 {
		v := validation.FlexInt(f.intensity)
		f.body.HinglishIntensity = &v
	}
	f.body.WordLimit = validation.FlexInt(f.wordLimit)

	if qe := validation.NewWithCounter(nil, 0).Check(&f.body, task, ""); qe != nil {
		return prompt.Request{}, fmt.Errorf("%s: %v", qe.Message, qe.Details["errors"])
	}
	return f.body.ToPrompt(task), nil
}

func newPromptCmd() *cobra.Command {
	var flags requestFlags
	cmd := &cobra.Command{
		Use:   "prompt <task>",
		Short: "Print the prompt built for a task without calling a backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(cmd, prompt.Task(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), prompt.Build(req))
			return nil
		},
	}
	flags.bind(cmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the supported tasks",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, info := range prompt.Tasks() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", info.Task, info.Title)
			}
		},
	})
	return cmd
}

func newTransformCmd(configFile *string) *cobra.Command {
	var flags requestFlags
	var raw bool
	cmd := &cobra.Command{
		Use:   "transform <task>",
		Short: "Run one transform through the configured providers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request(cmd, prompt.Task(args[0]))
			if err != nil {
				return err
			}

			cfg, _, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			manager, err := provider.NewManager(cfg, zap.NewNop(), nil)
			if err != nil {
				return err
			}
			proc, err := processing.NewProcessor(manager, zap.NewNop(), nil)
			if err != nil {
				return err
			}

			resp, err := proc.Process(context.Background(), req)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), resp, raw)
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&raw, "raw", false, "Also print the completion as received")
	return cmd
}

func printResponse(w io.Writer, resp *processing.Response, raw bool) error {
	if raw {
		fmt.Fprintln(w, "--- raw ---")
		fmt.Fprintln(w, strings.TrimSpace(resp.Raw))
		fmt.Fprintln(w, "--- result ---")
	}
	if resp.Fields == nil {
		_, err := fmt.Fprintln(w, resp.Result)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp.Fields)
}
