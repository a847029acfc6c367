package providers

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"
)

// Image is an inline image sent along with a prompt
type Image struct {
	Data     []byte
	MIMEType string
}

// Config represents the configuration for an LLM provider
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	// Images are attached to the prompt for vision-capable models
	Images []Image
	// JSON asks the provider to constrain the answer to a JSON object
	JSON      bool
	MaxTokens int
}

// Provider defines the interface for an LLM provider
type Provider interface {
	Name() string
	// DefaultModel is used when Config.Model is empty
	DefaultModel() string
	ExtractText(ctx context.Context, config Config) (string, error)
}

// ImageFromBytes wraps data, sniffing its MIME type from the file name
// extension first and the content second.
func ImageFromBytes(name string, data []byte) Image {
	mime := ""
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		mime = "image/jpeg"
	case ".png":
		mime = "image/png"
	case ".tif", ".tiff":
		mime = "image/tiff"
	default:
		mime = http.DetectContentType(data)
	}
	return Image{Data: data, MIMEType: mime}
}

// Format returns the short image format ("jpeg", "png") expected by some SDKs.
func (i Image) Format() string {
	_, format, ok := strings.Cut(i.MIMEType, "/")
	if !ok {
		return "jpeg"
	}
	return format
}
