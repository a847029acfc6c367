package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/lehigh-university-libraries/bookshelf/internal/providers"
)

var languageNames = map[string]string{
	"pol": "Polish",
	"eng": "English",
	"deu": "German",
	"fra": "French",
	"rus": "Russian",
	"lat": "Latin",
}

// Vision transcribes pages with a vision-capable LLM.
type Vision struct {
	provider providers.Provider
	model    string
}

func NewVision(provider providers.Provider, model string) *Vision {
	return &Vision{provider: provider, model: model}
}

func (v *Vision) Name() string {
	if v.provider == nil {
		return "vision"
	}
	return "vision:" + v.provider.Name()
}

func (v *Vision) Available() bool {
	return v.provider != nil
}

// Recognize extracts text from an image using LLM vision capabilities
func (v *Vision) Recognize(ctx context.Context, imagePath, lang string) (string, error) {
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to read image for OCR: %w", err)
	}

	img := providers.ImageFromBytes(imagePath, imageData)
	// vision APIs do not take TIFF
	if img.MIMEType == "image/tiff" {
		if img, err = toPNG(imageData); err != nil {
			return "", err
		}
	}

	return v.provider.ExtractText(ctx, providers.Config{
		Model:       v.model,
		Temperature: 0.0, // Zero temperature for exact OCR
		Prompt:      buildOCRPrompt(lang),
		Images:      []providers.Image{img},
		MaxTokens:   2000,
	})
}

func toPNG(data []byte) (providers.Image, error) {
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return providers.Image{}, fmt.Errorf("failed to decode image for OCR: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return providers.Image{}, fmt.Errorf("failed to encode image for OCR: %w", err)
	}
	return providers.Image{Data: buf.Bytes(), MIMEType: "image/png"}, nil
}

func buildOCRPrompt(lang string) string {
	language := languageNames[lang]
	if language == "" {
		language = lang
	}

	return `You are performing OCR (Optical Character Recognition) on a scanned book page.
The page is written mostly in ` + language + `.

Your task is to extract ALL visible text from the image exactly as it appears, preserving:
- Line breaks and formatting
- Capitalization
- Punctuation
- Diacritics and special characters
- Order of text elements

INSTRUCTIONS:
1. Read the image carefully from top to bottom
2. Transcribe every piece of visible text
3. Preserve the original line breaks
4. Do not add any interpretation, commentary, or explanations
5. Do not translate the text
6. If text is partially obscured or unclear, transcribe what you can see and use [?] for illegible portions

OUTPUT FORMAT:
Provide ONLY the extracted text. Do not include phrases like "Here is the text:" or "The image contains:".
If the page has no text at all, answer with an empty response.`
}
