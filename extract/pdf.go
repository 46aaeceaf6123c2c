package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrExtractionFailed wraps any failure of a text-extraction
// collaborator. Ingestion treats it as non-fatal: the document record
// survives with zero chunks.
var ErrExtractionFailed = errors.New("text extraction failed")

var (
	literalStringRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*(?:Tj|')`)
	tjArrayRe       = regexp.MustCompile(`\[((?:[^\[\]\\]|\\.)*)\]\s*TJ`)
	arrayStringRe   = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)
	pageNumberRe    = regexp.MustCompile(`page_(\d+)`)
)

// PDFText extracts the visible text of every page, in page order. The
// content streams are pulled with pdfcpu and the text-showing operators
// (Tj, TJ, ') are decoded from them.
func PDFText(data []byte) (string, error) {
	tmpDir, err := os.MkdirTemp("", "pdfextract")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer os.RemoveAll(tmpDir)

	inFile := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(inFile, data, 0644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	outDir := filepath.Join(tmpDir, "content")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	conf := api.LoadConfiguration()
	if err := api.ExtractContentFile(inFile, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	pages, err := contentFilesInPageOrder(outDir)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, page := range pages {
		raw, err := os.ReadFile(page)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		text := decodeContentText(string(raw))
		if text != "" {
			if sb.Len() > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(text)
		}
	}
	return sb.String(), nil
}

func contentFilesInPageOrder(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	type pageFile struct {
		path string
		page int
	}
	var files []pageFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		page := 0
		if m := pageNumberRe.FindStringSubmatch(e.Name()); m != nil {
			page, _ = strconv.Atoi(m[1])
		}
		files = append(files, pageFile{path: filepath.Join(dir, e.Name()), page: page})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].page < files[j].page })

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

// decodeContentText pulls the argument strings of text-showing operators
// out of a page content stream.
func decodeContentText(content string) string {
	var parts []string

	for _, m := range literalStringRe.FindAllStringSubmatch(content, -1) {
		if s := unescapePDFString(m[1]); s != "" {
			parts = append(parts, s)
		}
	}
	for _, m := range tjArrayRe.FindAllStringSubmatch(content, -1) {
		var word strings.Builder
		for _, sm := range arrayStringRe.FindAllStringSubmatch(m[1], -1) {
			word.WriteString(unescapePDFString(sm[1]))
		}
		if word.Len() > 0 {
			parts = append(parts, word.String())
		}
	}

	return strings.Join(parts, " ")
}

func unescapePDFString(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b', 'f':
			// discard
		case '(', ')', '\\':
			sb.WriteByte(s[i])
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			if code, err := strconv.ParseUint(s[i:j], 8, 16); err == nil && code < 256 {
				sb.WriteByte(byte(code))
			}
			i = j - 1
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}
