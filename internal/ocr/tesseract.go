package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	_ "golang.org/x/image/tiff"
)

// Tesseract shells out to the tesseract binary.
type Tesseract struct {
	command       string
	blackAndWhite bool
	threshold     uint8
}

// NewTesseract returns an engine running command. When blackAndWhite is set
// pages are converted to pure black and white at threshold before recognition.
func NewTesseract(command string, blackAndWhite bool, threshold int) *Tesseract {
	if command == "" {
		command = "tesseract"
	}
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 255 {
		threshold = 255
	}
	return &Tesseract{command: command, blackAndWhite: blackAndWhite, threshold: uint8(threshold)}
}

func (t *Tesseract) Name() string {
	return "tesseract"
}

func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.command)
	return err == nil
}

func (t *Tesseract) Recognize(ctx context.Context, imagePath, lang string) (string, error) {
	input := imagePath
	if t.blackAndWhite {
		converted, err := binarizeFile(imagePath, t.threshold)
		if err != nil {
			slog.Warn("Black and white conversion failed, using original image", "path", imagePath, "err", err)
		} else {
			defer os.Remove(converted)
			input = converted
		}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.command, input, "stdout", "-l", lang, "--psm", "3")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Binarize converts img to grayscale and maps every pixel below threshold to
// black and every other pixel to white.
func Binarize(img image.Image, threshold uint8) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if g.Y < threshold {
				out.SetGray(x, y, color.Gray{Y: 0})
			} else {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// binarizeFile writes the black and white version of path to a temp PNG
// and returns its name.
func binarizeFile(path string, threshold uint8) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	tmp, err := os.CreateTemp("", "bookshelf-ocr-*.png")
	if err != nil {
		return "", fmt.Errorf("failed to create temp image: %w", err)
	}
	if err := png.Encode(tmp, Binarize(img, threshold)); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to encode temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp image: %w", err)
	}
	return tmp.Name(), nil
}
