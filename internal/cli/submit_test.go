package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abrezinsky/consensus/internal/client"
	"github.com/abrezinsky/consensus/internal/errors"
	"github.com/abrezinsky/consensus/pkg/consensus"
)

// pngHeader is enough for content sniffing to report image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func submitHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t, consensus.WithCategories(landingCategories()...))
	h.signIn(t)
	return h
}

func TestSubmitCommand_Uploads(t *testing.T) {
	h := submitHarness(t)
	photo := writeFile(t, "pier.png", pngHeader)

	out, err := h.run(t, "", "submit", "c-sub", photo, "--caption", "Golden hour at the pier")
	require.NoError(t, err)

	assert.Contains(t, out, "Uploading pier.png (16 B) to 🌅 Sunsets")
	assert.Contains(t, out, "Caption (23/100): Golden hour at the pier")
	assert.Contains(t, out, client.SubmittedMessage)

	uploads := h.mock.CallsTo("UploadSubmission")
	require.Len(t, uploads, 1)
	assert.Equal(t, "c-sub", uploads[0].Args[0])
	assert.Equal(t, "Golden hour at the pier", uploads[0].Args[1])
}

func TestSubmitCommand_WithoutCaption(t *testing.T) {
	h := submitHarness(t)
	photo := writeFile(t, "pier.png", pngHeader)

	out, err := h.run(t, "", "submit", "c-sub", photo)
	require.NoError(t, err)
	assert.NotContains(t, out, "Caption")
	assert.Equal(t, "", h.mock.CallsTo("UploadSubmission")[0].Args[1])
}

func TestSubmitCommand_RejectsNonImage(t *testing.T) {
	h := submitHarness(t)
	notes := writeFile(t, "notes.txt", []byte("just some text"))

	_, err := h.run(t, "", "submit", "c-sub", notes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notes.txt is not an image")
	assert.True(t, errors.IsKind(err, errors.ErrValidation))
	assert.Empty(t, h.mock.CallsTo("UploadSubmission"))
}

func TestSubmitCommand_MissingFile(t *testing.T) {
	h := submitHarness(t)

	_, err := h.run(t, "", "submit", "c-sub", filepath.Join(t.TempDir(), "gone.jpg"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, h.mock.CallsTo("UploadSubmission"))
}

func TestSubmitCommand_RequiresSubmissionWindow(t *testing.T) {
	h := submitHarness(t)
	photo := writeFile(t, "pier.png", pngHeader)

	_, err := h.run(t, "", "submit", "c-vote", photo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Street is not taking entries (Voting ends in)")
}

func TestSubmitCommand_UploadRejected(t *testing.T) {
	dup := &consensus.APIError{Status: 409, Code: "ALREADY_SUBMITTED", Message: "You already have an entry in this category"}
	h := submitHarness(t)
	h.mock.SetError("UploadSubmission", dup)
	photo := writeFile(t, "pier.png", pngHeader)

	_, err := h.run(t, "", "submit", "c-sub", photo)
	require.Error(t, err)
	assert.ErrorIs(t, err, dup)
	assert.Contains(t, err.Error(), "upload failed")
}

func TestSubmitCommand_NeedsTwoArgs(t *testing.T) {
	h := submitHarness(t)

	_, err := h.run(t, "", "submit", "c-sub")
	assert.Error(t, err)
}

func TestReadable(t *testing.T) {
	photo := writeFile(t, "pier.png", pngHeader)

	ok, err := readable(photo)(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = readable(filepath.Join(t.TempDir(), "gone.png"))(context.Background())
	assert.Error(t, err)
}

func TestReadImage(t *testing.T) {
	img, err := readImage(writeFile(t, "pier.png", pngHeader))
	require.NoError(t, err)
	assert.Equal(t, "pier.png", img.Filename)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, pngHeader, img.Data)
}
