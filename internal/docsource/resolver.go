package docsource

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/m2tx/manualchat/internal/model"
)

// DefaultExtensions are the document types the resolver recognizes.
var DefaultExtensions = []string{".pdf", ".txt", ".md"}

var mimeTypes = map[string]string{
	".pdf": "application/pdf",
	".txt": "text/plain",
	".md":  "text/markdown",
}

// Resolver enumerates the documents of one directory.
type Resolver struct {
	dir        string
	extensions map[string]bool
}

// New creates a Resolver over dir. An empty extension list uses DefaultExtensions.
func New(dir string, extensions ...string) *Resolver {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts[ext] = true
	}
	return &Resolver{dir: dir, extensions: exts}
}

// Dir returns the directory the resolver scans.
func (r *Resolver) Dir() string {
	return r.dir
}

// List returns the recognized documents sorted by name. A missing or empty
// directory yields a NoDocumentsFound error.
func (r *Resolver) List() ([]model.Document, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("docsource: read dir %q: %w", r.dir, err)
	}

	docs := []model.Document{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !r.extensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		docs = append(docs, model.Document{Name: entry.Name()})
	}

	if len(docs) == 0 {
		return nil, model.Errorf(model.KindNoDocumentsFound, "no documents in %q", r.dir)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// Select picks name out of the discovered set.
func (r *Resolver) Select(name string) (model.Document, error) {
	docs, err := r.List()
	if err != nil {
		return model.Document{}, err
	}
	for _, d := range docs {
		if d.Name == name {
			return d, nil
		}
	}
	return model.Document{}, model.Errorf(model.KindUnknownDocument, "document %q not found", name)
}

// Read returns the raw bytes of doc.
func (r *Resolver) Read(doc model.Document) ([]byte, error) {
	path, err := r.path(doc)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("docsource: read %q: %w", doc.Name, err)
	}
	return data, nil
}

// Text returns the plain text of doc. PDFs are extracted, text files are
// returned verbatim.
func (r *Resolver) Text(doc model.Document) (string, error) {
	data, err := r.Read(doc)
	if err != nil {
		return "", err
	}
	return ExtractText(doc.Name, data)
}

// ExtractText converts the bytes of the named document to plain text.
func ExtractText(name string, data []byte) (string, error) {
	if strings.ToLower(filepath.Ext(name)) != ".pdf" {
		return string(data), nil
	}
	text, err := readPDF(data)
	if err != nil {
		return "", fmt.Errorf("docsource: read pdf %q: %w", name, err)
	}
	return text, nil
}

// MIMEType returns the upload content type for doc.
func MIMEType(doc model.Document) string {
	if t, ok := mimeTypes[strings.ToLower(filepath.Ext(doc.Name))]; ok {
		return t
	}
	return "application/octet-stream"
}

func (r *Resolver) path(doc model.Document) (string, error) {
	if doc.Name == "" || strings.ContainsAny(doc.Name, `/\`) {
		return "", model.Errorf(model.KindUnknownDocument, "invalid document name %q", doc.Name)
	}
	return filepath.Join(r.dir, doc.Name), nil
}

func readPDF(data []byte) (text string, err error) {
	// the pdf package panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
