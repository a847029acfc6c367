package cataloging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/bookshelf/internal/models"
	"github.com/lehigh-university-libraries/bookshelf/internal/providers"
)

type Service struct {
	provider providers.Provider
	model    string
}

// NewService returns a service asking provider for metadata. An empty model
// uses the provider's default.
func NewService(provider providers.Provider, model string) *Service {
	if model == "" {
		model = provider.DefaultModel()
	}
	return &Service{provider: provider, model: model}
}

// extracted mirrors the JSON object the prompt asks for
type extracted struct {
	Title           string          `json:"title"`
	Author          string          `json:"author"`
	Publisher       string          `json:"publisher"`
	PublicationDate json.RawMessage `json:"publication_date"`
	PublicationCity string          `json:"publication_city"`
	Language        string          `json:"language"`
	Pages           json.RawMessage `json:"pages"`
	Subject         string          `json:"subject"`
	Keywords        []string        `json:"keywords"`
	Maps            bool            `json:"maps"`
	Illustrations   bool            `json:"illustrations"`
	Tables          bool            `json:"tables"`
	Notes           string          `json:"notes"`
}

// ExtractMetadata extracts bibliographic metadata from title page OCR text
func (s *Service) ExtractMetadata(ctx context.Context, ocrText string) (models.Metadata, error) {
	if strings.TrimSpace(ocrText) == "" {
		return models.Metadata{}, fmt.Errorf("no OCR text to extract metadata from")
	}

	userPrompt := fmt.Sprintf("Here is the OCR text from a book title page:\n\n%s\n\nExtract the bibliographic metadata as JSON.", ocrText)
	response, err := s.provider.ExtractText(ctx, providers.Config{
		Model:       s.model,
		Temperature: 0.1,
		Prompt:      buildMetadataExtractionPrompt() + "\n\n" + userPrompt,
		JSON:        true,
		MaxTokens:   1000,
	})
	if err != nil {
		return models.Metadata{}, fmt.Errorf("failed to extract metadata with %s: %w", s.provider.Name(), err)
	}

	meta, err := ParseMetadata(response)
	if err != nil {
		return models.Metadata{}, err
	}
	slog.Info("Extracted metadata", "provider", s.provider.Name(), "model", s.model, "title", meta.Title)
	return meta, nil
}

// ParseMetadata decodes an LLM answer, tolerating markdown code fences.
func ParseMetadata(response string) (models.Metadata, error) {
	// Trim any markdown code blocks
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var result extracted
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return models.Metadata{}, fmt.Errorf("failed to parse metadata JSON: %w", err)
	}

	meta := models.Metadata{
		Title:            strings.TrimSpace(result.Title),
		Authors:          strings.TrimSpace(result.Author),
		Year:             rawString(result.PublicationDate),
		Place:            strings.TrimSpace(result.PublicationCity),
		Publisher:        strings.TrimSpace(result.Publisher),
		Language:         strings.TrimSpace(result.Language),
		Notes:            strings.TrimSpace(result.Notes),
		Keywords:         result.Keywords,
		HasMaps:          result.Maps,
		HasIllustrations: result.Illustrations,
		HasTables:        result.Tables,
	}
	if pages, err := strconv.Atoi(rawString(result.Pages)); err == nil {
		meta.PageCount = pages
	}
	if result.Subject != "" && len(meta.Keywords) == 0 {
		meta.Keywords = []string{result.Subject}
	}
	return meta, nil
}

// rawString accepts both "1890" and 1890
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

// buildMetadataExtractionPrompt creates a prompt for extracting bibliographic metadata
func buildMetadataExtractionPrompt() string {
	return `You are an expert bibliographic metadata cataloger. Extract structured metadata from the OCR text of a book title page.

INSTRUCTIONS:
1. Carefully analyze ALL information in the OCR text
2. Extract the following bibliographic fields:
   - title: Full title of the work (include subtitle if present)
   - author: Primary author(s) name(s), comma separated
   - publisher: Publisher name
   - publication_date: Year of publication (four digits)
   - publication_city: City where published, as printed
   - language: Primary language of the work (ISO 639-3 code, e.g. "pol", "eng")
   - pages: Number of pages if stated, otherwise ""
   - subject: Main subject or topic
   - keywords: Up to five subject keywords (array)
   - maps / illustrations / tables: true only if the text mentions them
3. For missing fields, use empty string "" or empty array []
4. Be precise and extract exactly what is shown in the OCR text
5. Do not invent or infer information that isn't present
6. Keep diacritics exactly as printed

OUTPUT FORMAT:
Respond with ONLY a JSON object:

{
  "title": "...",
  "author": "...",
  "publisher": "...",
  "publication_date": "...",
  "publication_city": "...",
  "language": "...",
  "pages": "...",
  "subject": "...",
  "keywords": ["..."],
  "maps": false,
  "illustrations": false,
  "tables": false,
  "notes": "Any observations or uncertainties"
}

Be thorough and accurate. Extract only what is clearly present in the OCR text.`
}
