/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package gen turns natural-language prompts into widget templates using
// Vertex AI. The model is constrained to a JSON response schema so the output
// parses directly into a template.
package gen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"kastom/internal/domain"
	applog "kastom/internal/log"
)

const systemInstruction = `You are an expert frontend engineer and UI designer. Your task is to generate functional, beautiful, and self-contained web widgets based on user prompts.

Rules:
1. Output Structure: Return a JSON object containing 'html', 'css', 'js', and a short 'title'.
2. Aesthetics: Use modern, clean design. Prefer dark mode compatibility. Use system fonts.
3. Responsiveness: The widget must be fully responsive. It will be displayed in a resizable container (default 320x320px). The container size is dynamic; do NOT use fixed pixel widths/heights for the main wrapper. Use width: 100% and height: 100% for the root element so it fills the available space.
4. Isolation: Do NOT include <html>, <head>, or <body> tags. Just the content inside body.
5. Functionality: The JS must be vanilla JavaScript; it runs inside a sandboxed frame. Persist state with window.sendWidgetState and restore it from window.WIDGET_DATA.
6. No External Deps: Do not use CDN links for CSS frameworks or JS libraries; prefer vanilla implementations.
7. Icons: You may use SVG icons directly in the HTML.`

// widgetResponseSchema constrains generation output to the template shape.
var widgetResponseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title": {Type: genai.TypeString, Description: "A short title for the widget (max 20 chars)"},
		"html":  {Type: genai.TypeString, Description: "The HTML structure of the widget body"},
		"css":   {Type: genai.TypeString, Description: "The CSS styles (excluding <style> tags)"},
		"js":    {Type: genai.TypeString, Description: "The JavaScript logic (excluding <script> tags)"},
	},
	Required: []string{"title", "html", "css", "js"},
}

// Adapter wraps the Vertex AI client for widget generation.
type Adapter struct {
	client *genai.Client
	model  string
	log    *slog.Logger
}

// NewAdapter connects to Vertex AI in the given project and location. With a
// non-empty apiKey the client authenticates with it; otherwise it falls back
// to application default credentials.
func NewAdapter(ctx context.Context, projectID, location, model, apiKey string) (*Adapter, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("generation project is required")
	}
	client, err := genai.NewClient(ctx, projectID, location, clientOptions(apiKey)...)
	if err != nil {
		return nil, fmt.Errorf("vertex client: %w", err)
	}
	return &Adapter{
		client: client,
		model:  model,
		log:    applog.WithComponent("gen"),
	}, nil
}

// clientOptions maps the optional stored API key onto client options.
func clientOptions(apiKey string) []option.ClientOption {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	return []option.ClientOption{option.WithAPIKey(strings.TrimSpace(apiKey))}
}

func (a *Adapter) Close() error {
	err := a.client.Close()
	if err != nil {
		a.log.Error("vertex adapter close failed", slog.Any("err", err))
	}
	return err
}

// GenerateWidget asks the model for a widget matching the prompt.
func (a *Adapter) GenerateWidget(ctx context.Context, prompt string) (domain.Template, error) {
	var out domain.Template
	if strings.TrimSpace(prompt) == "" {
		return out, errors.New("prompt is empty")
	}
	if a.model == "" {
		return out, errors.New("generation model is required")
	}

	model := a.client.GenerativeModel(a.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}
	model.GenerationConfig.ResponseMIMEType = "application/json"
	model.GenerationConfig.ResponseSchema = widgetResponseSchema

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return out, fmt.Errorf("generate content: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return out, errors.New("no content generated")
	}
	return parseTemplate(text)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
	}
	return sb.String()
}

// parseTemplate decodes the schema-constrained JSON into a template.
func parseTemplate(text string) (domain.Template, error) {
	var raw struct {
		Title string `json:"title"`
		HTML  string `json:"html"`
		CSS   string `json:"css"`
		JS    string `json:"js"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return domain.Template{}, fmt.Errorf("parse generation response: %w", err)
	}
	if strings.TrimSpace(raw.Title) == "" {
		return domain.Template{}, errors.New("generation response has no title")
	}
	return domain.Template{
		Title:  raw.Title,
		Markup: raw.HTML,
		Style:  raw.CSS,
		Script: raw.JS,
	}, nil
}
