package textsource_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/book-expert/tts-studio/internal/textsource"
	"github.com/book-expert/tts-studio/internal/textsource/text"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaxBytes = 1024

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk unplugged")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestResolveText_Trims(t *testing.T) {
	t.Parallel()

	manager := textsource.NewManager(testMaxBytes, nil, nil)
	manager.SetText("  \n Hello there \t")

	assert.Equal(t, "Hello there", manager.ResolveText())
	assert.Equal(t, "  \n Hello there \t", manager.Text())
}

func TestResolveText_BlankIsNoInput(t *testing.T) {
	t.Parallel()

	manager := textsource.NewManager(testMaxBytes, text.NewNormalizer(), nil)
	manager.SetText(" \n ")

	assert.Empty(t, manager.ResolveText())
}

func TestResolveText_Normalizes(t *testing.T) {
	t.Parallel()

	manager := textsource.NewManager(testMaxBytes, text.NewNormalizer(), nil)
	manager.SetText("Dr. Who has 2 hearts")

	assert.Equal(t, "Doctor Who has two hearts.", manager.ResolveText())
}

func TestBrowse_ReplacesTextWithFileContents(t *testing.T) {
	t.Parallel()

	content := "Line one\nLine two\n"
	path := writeFile(t, "notes.txt", content)

	manager := textsource.NewManager(testMaxBytes, nil, nil)
	manager.SetText("old text")

	require.NoError(t, manager.Browse(path))

	assert.Equal(t, content, manager.Text())
	assert.Equal(t, textsource.Upload{FileName: "notes.txt", Content: content}, manager.Upload())
}

func TestBrowse_RejectsNonPlainText(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "page.html", "<p>hi</p>")

	manager := textsource.NewManager(testMaxBytes, nil, nil)
	manager.SetText("keep me")

	err := manager.Browse(path)
	require.ErrorIs(t, err, textsource.ErrUnsupportedFileType)

	assert.Equal(t, "keep me", manager.Text())
	assert.Empty(t, manager.Upload().FileName)
}

func TestBrowse_MissingFileIsIOError(t *testing.T) {
	t.Parallel()

	manager := textsource.NewManager(testMaxBytes, nil, nil)
	manager.SetText("keep me")

	err := manager.Browse(filepath.Join(t.TempDir(), "gone.txt"))
	require.ErrorIs(t, err, textsource.ErrIO)
	assert.Equal(t, "keep me", manager.Text())
}

func TestBrowse_EmptyPath(t *testing.T) {
	t.Parallel()

	manager := textsource.NewManager(testMaxBytes, nil, nil)

	require.ErrorIs(t, manager.Browse("   "), textsource.ErrNoPath)
}

func TestSelect_ReadFailureKeepsText(t *testing.T) {
	t.Parallel()

	manager := textsource.NewManager(testMaxBytes, nil, nil)
	manager.SetText("keep me")

	err := manager.Select("story.txt", "text/plain", failingReader{})
	require.ErrorIs(t, err, textsource.ErrIO)
	assert.Equal(t, "keep me", manager.Text())
}

func TestSelect_TooLarge(t *testing.T) {
	t.Parallel()

	manager := textsource.NewManager(8, nil, nil)

	err := manager.Select("big.txt", "", strings.NewReader("123456789"))
	require.ErrorIs(t, err, textsource.ErrIO)
	require.ErrorIs(t, err, textsource.ErrFileTooLarge)
	assert.Empty(t, manager.Text())
}

func TestSelect_ContentTypeParameters(t *testing.T) {
	t.Parallel()

	manager := textsource.NewManager(testMaxBytes, nil, nil)

	require.NoError(t, manager.Select("a.bin", "text/plain; charset=utf-8", strings.NewReader("hi")))
	assert.Equal(t, "hi", manager.Text())

	err := manager.Select("b.txt", "application/json", strings.NewReader("{}"))
	require.ErrorIs(t, err, textsource.ErrUnsupportedFileType)
	assert.Equal(t, "hi", manager.Text())
}

func TestSelect_LatestUploadWins(t *testing.T) {
	t.Parallel()

	manager := textsource.NewManager(testMaxBytes, nil, nil)

	require.NoError(t, manager.Select("first.txt", "", strings.NewReader("first")))
	require.NoError(t, manager.Select("second.txt", "", strings.NewReader("second")))

	assert.Equal(t, textsource.Upload{FileName: "second.txt", Content: "second"}, manager.Upload())
}

func TestSelect_StripsBOMAndRepairsUTF8(t *testing.T) {
	t.Parallel()

	manager := textsource.NewManager(testMaxBytes, nil, nil)

	require.NoError(t, manager.Select("bom.txt", "", strings.NewReader("\xEF\xBB\xBFhello \xff")))
	assert.Equal(t, "hello �", manager.Text())
}

func TestDrop_CleansPastedPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "my notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("dropped"), 0o600))

	manager := textsource.NewManager(testMaxBytes, nil, nil)

	require.NoError(t, manager.Drop("'"+path+"'\n"))
	assert.Equal(t, "dropped", manager.Text())
	assert.Equal(t, "my notes.txt", manager.Upload().FileName)
}

func TestCleanDroppedPath(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		pasted string
		want   string
	}{
		{name: "plain", pasted: "/tmp/a.txt", want: "/tmp/a.txt"},
		{name: "single quoted", pasted: "'/tmp/my file.txt'", want: "/tmp/my file.txt"},
		{name: "double quoted", pasted: `"/tmp/my file.txt"`, want: "/tmp/my file.txt"},
		{name: "escaped spaces", pasted: `/tmp/my\ file.txt`, want: "/tmp/my file.txt"},
		{name: "file url", pasted: "file:///tmp/my%20file.txt", want: "/tmp/my file.txt"},
		{name: "first of many", pasted: "\n/tmp/a.txt\n/tmp/b.txt", want: "/tmp/a.txt"},
		{name: "blank", pasted: " \n ", want: ""},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.want, textsource.CleanDroppedPath(testCase.pasted))
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	t.Parallel()

	assert.True(t, textsource.IsPlainText(textsource.ContentTypeFor("notes.TXT")))
	assert.False(t, textsource.IsPlainText(textsource.ContentTypeFor("photo.png")))
	assert.False(t, textsource.IsPlainText(textsource.ContentTypeFor("README")))
	assert.False(t, textsource.IsPlainText(""))
}
