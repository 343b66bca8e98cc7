package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Tesseract shells out to a local tesseract binary. PDF uploads are
// rendered to per-page images with pdftoppm and the page texts
// concatenated.
type Tesseract struct {
	binary   string
	pdftoppm string
}

func NewTesseract(binary, pdftoppm string) *Tesseract {
	if binary == "" {
		binary = "tesseract"
	}
	if pdftoppm == "" {
		pdftoppm = "pdftoppm"
	}
	return &Tesseract{binary: binary, pdftoppm: pdftoppm}
}

func (t *Tesseract) ExtractText(ctx context.Context, data []byte, filename string) (string, error) {
	dir, err := os.MkdirTemp("", "kidneysync-ocr-")
	if err != nil {
		return "", NewTransportError(err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "upload"+strings.ToLower(filepath.Ext(filename)))
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return "", NewTransportError(err)
	}

	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return t.extractFromPDF(ctx, dir, input)
	}
	return t.runTesseract(ctx, input)
}

func (t *Tesseract) extractFromPDF(ctx context.Context, dir, input string) (string, error) {
	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, t.pdftoppm, "-png", "-r", "300", input, prefix)
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", NewTransportError(fmt.Errorf("pdftoppm: %v: %s", err, bytes.TrimSpace(output)))
	}

	pages, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(pages) == 0 {
		return "", NewTransportError(fmt.Errorf("no pages rendered from pdf"))
	}
	sort.Strings(pages)

	var text strings.Builder
	for _, page := range pages {
		pageText, err := t.runTesseract(ctx, page)
		if err != nil {
			return "", err
		}
		text.WriteString(pageText)
		text.WriteString("\n")
	}
	return text.String(), nil
}

func (t *Tesseract) runTesseract(ctx context.Context, input string) (string, error) {
	// "stdout" makes tesseract print recognized text instead of writing a file
	cmd := exec.CommandContext(ctx, t.binary, input, "stdout")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", NewTransportError(fmt.Errorf("tesseract: %v: %s", err, bytes.TrimSpace(stderr.Bytes())))
	}
	return stdout.String(), nil
}
