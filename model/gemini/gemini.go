// Package gemini implements model.Model on Google's Gemini API through the
// google.golang.org/genai SDK, including function calling and JSON schema
// constrained output.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/model"
)

// Options configures the Gemini adapter.
type Options struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	APIKey          string
}

// Model wraps genai.Client behind the generic model.Model interface.
type Model struct {
	client *genai.Client
	opts   Options
}

func defaultOptions() Options {
	return Options{
		Model:           "gemini-2.0-flash",
		Temperature:     0.7,
		MaxOutputTokens: 4096,
	}
}

// NewModel creates a Gemini model. Without an explicit APIKey the SDK reads
// GOOGLE_API_KEY / GEMINI_API_KEY.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a Gemini model from an existing client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		contents, system := buildContents(req.Contents)
		resp, err := m.client.Models.GenerateContent(ctx, m.opts.Model, contents, m.buildConfig(req, system))
		if err != nil {
			errCh <- classify(err)
			return
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			errCh <- fmt.Errorf("no candidates returned")
			return
		}

		cand := resp.Candidates[0]
		var parts []core.Part
		for _, p := range cand.Content.Parts {
			switch {
			case p.FunctionCall != nil:
				args, err := json.Marshal(p.FunctionCall.Args)
				if err != nil {
					args = []byte("{}")
				}
				id := p.FunctionCall.ID
				if id == "" {
					id = core.NewID()
				}
				parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
					ID:        id,
					Name:      p.FunctionCall.Name,
					Arguments: string(args),
				}})
			case p.Text != "" && !p.Thought:
				parts = append(parts, core.TextPart{Text: p.Text})
			}
		}

		r := model.Response{
			ID:           resp.ResponseID,
			Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
			FinishReason: string(cand.FinishReason),
		}
		if u := resp.UsageMetadata; u != nil {
			r.Usage = &model.TokenUsage{
				PromptTokens:     int(u.PromptTokenCount),
				CompletionTokens: int(u.CandidatesTokenCount),
				TotalTokens:      int(u.TotalTokenCount),
			}
		}
		out <- r
	}()

	return out, errCh
}

func (m *Model) buildConfig(req model.Request, system *genai.Content) *genai.GenerateContentConfig {
	temperature := m.opts.Temperature
	if req.Temperature != nil {
		temperature = float32(*req.Temperature)
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr(temperature),
		MaxOutputTokens:   m.opts.MaxOutputTokens,
	}
	if rf := req.ResponseFormat; rf != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJsonSchema = rf.Schema
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, len(req.Tools))
		for i, t := range req.Tools {
			decls[i] = &genai.FunctionDeclaration{
				Name:                 t.Function.Name,
				Description:          t.Function.Description,
				ParametersJsonSchema: t.Function.Parameters,
			}
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
		if mode, ok := callingModes[req.ToolChoice]; ok {
			cfg.ToolConfig = &genai.ToolConfig{FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode}}
		}
	}
	return cfg
}

var callingModes = map[model.ToolChoice]genai.FunctionCallingConfigMode{
	model.ToolChoiceAuto:     genai.FunctionCallingConfigModeAuto,
	model.ToolChoiceRequired: genai.FunctionCallingConfigModeAny,
	model.ToolChoiceNone:     genai.FunctionCallingConfigModeNone,
}

// buildContents converts taskmesh contents to Gemini contents. System text is
// returned separately as the system instruction.
func buildContents(contents []core.Content) ([]*genai.Content, *genai.Content) {
	var (
		out    []*genai.Content
		system *genai.Content
	)
	for _, c := range contents {
		switch c.Role {
		case core.RoleSystem:
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, genai.NewPartFromText(c.Text()))
		case core.RoleAssistant:
			gc := &genai.Content{Role: genai.RoleModel}
			for _, p := range c.Parts {
				switch part := p.(type) {
				case core.TextPart:
					if part.Text != "" {
						gc.Parts = append(gc.Parts, genai.NewPartFromText(part.Text))
					}
				case core.FunctionCallPart:
					args := map[string]any{}
					_ = json.Unmarshal([]byte(part.FunctionCall.Arguments), &args)
					gc.Parts = append(gc.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
						ID:   part.FunctionCall.ID,
						Name: part.FunctionCall.Name,
						Args: args,
					}})
				}
			}
			if len(gc.Parts) > 0 {
				out = append(out, gc)
			}
		case core.RoleTool:
			gc := &genai.Content{Role: genai.RoleUser}
			for _, fr := range c.FunctionResponses() {
				var payload map[string]any
				if err := json.Unmarshal([]byte(fr.Text()), &payload); err != nil {
					payload = map[string]any{"output": fr.Text()}
				}
				gc.Parts = append(gc.Parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       fr.ID,
					Name:     fr.Name,
					Response: payload,
				}})
			}
			if len(gc.Parts) > 0 {
				out = append(out, gc)
			}
		default:
			if text := c.Text(); text != "" {
				out = append(out, genai.NewContentFromText(text, genai.RoleUser))
			}
		}
	}
	return out, system
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code >= 400 && apiErr.Code < 500 &&
		apiErr.Code != http.StatusRequestTimeout && apiErr.Code != http.StatusTooManyRequests {
		return fmt.Errorf("gemini api error: %w: %w", model.ErrInvalidRequest, err)
	}
	return fmt.Errorf("gemini api error: %w", err)
}

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:                     m.opts.Model,
		Provider:                 "gemini",
		SupportsTools:            true,
		SupportsStructuredOutput: true,
	}
}

// Close is a no-op; the genai client owns no closable resources.
func (m *Model) Close() error { return nil }
