package docsource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m2tx/manualchat/internal/model"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("content of "+name), 0o644))
	}
}

func TestListFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "manual.pdf", "notes.TXT", "readme.md", "image.png", "archive.zip")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	docs, err := New(dir).List()
	require.NoError(t, err)
	require.Equal(t, []model.Document{{Name: "manual.pdf"}, {Name: "notes.TXT"}, {Name: "readme.md"}}, docs)
}

func TestListCustomExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "manual.pdf", "notes.txt")

	docs, err := New(dir, "pdf").List()
	require.NoError(t, err)
	require.Equal(t, []model.Document{{Name: "manual.pdf"}}, docs)
}

func TestListEmptyDirectory(t *testing.T) {
	tests := []struct {
		name string
		dir  func(t *testing.T) string
	}{
		{
			name: "no recognized files",
			dir: func(t *testing.T) string {
				dir := t.TempDir()
				writeFiles(t, dir, "photo.jpg")
				return dir
			},
		},
		{
			name: "missing directory",
			dir: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.dir(t)).List()
			require.True(t, model.IsKind(err, model.KindNoDocumentsFound), "got %v", err)
		})
	}
}

func TestSelect(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "manual.pdf", "other.pdf")
	r := New(dir)

	doc, err := r.Select("manual.pdf")
	require.NoError(t, err)
	require.Equal(t, "manual.pdf", doc.Name)

	_, err = r.Select("missing.pdf")
	require.True(t, model.IsKind(err, model.KindUnknownDocument))

	_, err = New(t.TempDir()).Select("manual.pdf")
	require.True(t, model.IsKind(err, model.KindNoDocumentsFound))
}

func TestReadAndText(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "notes.txt")
	r := New(dir)

	data, err := r.Read(model.Document{Name: "notes.txt"})
	require.NoError(t, err)
	require.Equal(t, "content of notes.txt", string(data))

	text, err := r.Text(model.Document{Name: "notes.txt"})
	require.NoError(t, err)
	require.Equal(t, "content of notes.txt", text)

	_, err = r.Read(model.Document{Name: "../etc/passwd"})
	require.True(t, model.IsKind(err, model.KindUnknownDocument))
}

func TestMIMEType(t *testing.T) {
	require.Equal(t, "application/pdf", MIMEType(model.Document{Name: "a.PDF"}))
	require.Equal(t, "text/plain", MIMEType(model.Document{Name: "a.txt"}))
	require.Equal(t, "text/markdown", MIMEType(model.Document{Name: "a.md"}))
	require.Equal(t, "application/octet-stream", MIMEType(model.Document{Name: "a.bin"}))
}

func TestExtractTextRejectsBrokenPDF(t *testing.T) {
	_, err := ExtractText("manual.pdf", []byte("not a pdf"))
	require.Error(t, err)

	text, err := ExtractText("notes.md", []byte("# Title"))
	require.NoError(t, err)
	require.Equal(t, "# Title", text)
}
