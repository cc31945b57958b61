// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/pdiddy/insight-engine/pkg/types"
)

const defaultImageModel = "imagen-4.0-generate-001"

// genaiBaseURL overrides the API endpoint. Tests point it at httptest.
var genaiBaseURL = ""

// GenAIImages generates card illustrations with the GenAI image models.
type GenAIImages struct {
	client *genai.Client
	model  string
}

// NewGenAIImages builds an image generator for cfg.
func NewGenAIImages(ctx context.Context, cfg types.ArtifactConfig, httpClient *http.Client) (*GenAIImages, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("artifact generation requires an API key")
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if genaiBaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: genaiBaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = defaultImageModel
	}
	return &GenAIImages{client: client, model: model}, nil
}

// Generate returns the first generated image.
func (g *GenAIImages) Generate(ctx context.Context, r Request) (Image, error) {
	resp, err := g.client.Models.GenerateImages(ctx, g.model, imagePrompt(r), &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/png",
	})
	if err != nil {
		return Image{}, fmt.Errorf("GenAI image generation failed: %w", err)
	}
	for _, gi := range resp.GeneratedImages {
		if gi == nil || gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
			continue
		}
		mimeType := gi.Image.MIMEType
		if mimeType == "" {
			mimeType = "image/png"
		}
		return Image{Data: gi.Image.ImageBytes, MIMEType: mimeType}, nil
	}
	return Image{}, errors.New("GenAI returned no image")
}

func imagePrompt(r Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A clean editorial illustration for a startup research card titled %q.", r.Title)
	if r.Summary != "" {
		fmt.Fprintf(&b, " Theme: %s", r.Summary)
	}
	if r.Rarity == types.RarityEpic || r.Rarity == types.RarityLegendary {
		b.WriteString(" Use a bold, luminous palette.")
	}
	b.WriteString(" No text or lettering in the image.")
	return b.String()
}
