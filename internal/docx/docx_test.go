package docx

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

const testDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:tbl>
<w:tr>
<w:tc><w:p><w:r><w:t>hello</w:t></w:r></w:p></w:tc>
<w:tc><w:p><w:r><w:t>bonjour</w:t></w:r></w:p></w:tc>
</w:tr>
<w:tr>
<w:tc><w:p><w:r><w:t>world</w:t></w:r></w:p></w:tc>
<w:tc><w:p><w:r><w:t>monde</w:t></w:r></w:p></w:tc>
</w:tr>
</w:tbl>
</w:body>
</w:document>`

// buildPackage assembles a minimal .docx archive around documentXML.
func buildPackage(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct{ name, data string }{
		{"[Content_Types].xml", `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		{"_rels/.rels", `<?xml version="1.0"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"/>`},
		{DocumentPart, documentXML},
		{"word/styles.xml", `<?xml version="1.0"?><w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"/>`},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.data))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestOpenBytes_MissingDocumentPart(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<w:styles/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = OpenBytes(buf.Bytes())
	require.ErrorContains(t, err, DocumentPart)
}

func TestRowsAndCells(t *testing.T) {
	pkg, err := OpenBytes(buildPackage(t, testDocumentXML))
	require.NoError(t, err)

	rows := pkg.Rows()
	require.Len(t, rows, 2)
	require.Len(t, RowCells(rows[0]), 2)
	require.Len(t, RowCells(rows[1]), 2)
}

func TestFindCell(t *testing.T) {
	pkg, err := OpenBytes(buildPackage(t, testDocumentXML))
	require.NoError(t, err)

	cell, err := pkg.FindCell(1, 0)
	require.NoError(t, err)
	ts := Descendants(cell, "w", "t")
	require.Len(t, ts, 1)
	require.Equal(t, "world", ts[0].Text())

	_, err = pkg.FindCell(2, 0)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = pkg.FindCell(0, 2)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = pkg.FindCell(-1, 0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBytes_PreservesOtherParts(t *testing.T) {
	original := buildPackage(t, testDocumentXML)
	pkg, err := OpenBytes(original)
	require.NoError(t, err)

	out, err := pkg.Bytes()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)

	// Same entries, same order; non-document parts byte-identical.
	require.Len(t, zr.File, 4)
	require.Equal(t, "[Content_Types].xml", zr.File[0].Name)
	for _, f := range zr.File {
		if f.Name == DocumentPart {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		var got bytes.Buffer
		_, err = got.ReadFrom(rc)
		rc.Close()
		require.NoError(t, err)
		want, ok := pkg.partData(f.Name)
		require.True(t, ok)
		require.Equal(t, string(want), got.String())
	}

	// The document part still parses and still has its rows.
	pkg2, err := OpenBytes(out)
	require.NoError(t, err)
	require.Len(t, pkg2.Rows(), 2)
}

func TestBytes_ReflectsTreeMutation(t *testing.T) {
	pkg, err := OpenBytes(buildPackage(t, testDocumentXML))
	require.NoError(t, err)

	cell, err := pkg.FindCell(0, 0)
	require.NoError(t, err)
	Descendants(cell, "w", "t")[0].SetText("goodbye")

	out, err := pkg.Bytes()
	require.NoError(t, err)
	pkg2, err := OpenBytes(out)
	require.NoError(t, err)
	cell2, err := pkg2.FindCell(0, 0)
	require.NoError(t, err)
	require.Equal(t, "goodbye", Descendants(cell2, "w", "t")[0].Text())
}
