package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/caselaw-ingest/internal/common"
)

func TestPixelSize(t *testing.T) {
	a4 := PageDim{Width: 595.276, Height: 841.89}
	w, h := a4.PixelSize(400)
	assert.Equal(t, 3307, w)
	assert.Equal(t, 4677, h)

	w, h = PageDim{Width: 72, Height: 144}.PixelSize(300)
	assert.Equal(t, 300, w)
	assert.Equal(t, 600, h)
}

func TestInspectMissingFile(t *testing.T) {
	_, err := Inspect(filepath.Join(t.TempDir(), "absent.pdf"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestInspectRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf at all"), 0o644))

	_, err := Inspect(path)
	assert.ErrorIs(t, err, common.ErrUnreadableDocument)

	_, err = TextPages(path)
	assert.ErrorIs(t, err, common.ErrUnreadableDocument)
}

func TestHasText(t *testing.T) {
	assert.False(t, HasText(nil))
	assert.False(t, HasText([]string{"", "  \n", "p. 2"}))
	assert.True(t, HasText([]string{"", "GHANA GAZETTE No. 12 CHANGE OF NAME"}))
}
