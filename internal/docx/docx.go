// Package docx opens and saves Word (.docx) packages and locates table
// structure inside the main document part.
//
// A .docx file is a zip container. Only word/document.xml is parsed into a
// mutable element tree; every other part is carried through byte-identical.
package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/beevik/etree"
)

// DocumentPart is the zip entry holding the main document body.
const DocumentPart = "word/document.xml"

// ErrNotFound reports a row or column index that is out of range for the
// current document tree.
var ErrNotFound = errors.New("row or column index out of range")

type part struct {
	name string
	data []byte
}

// Package is an opened .docx container. It owns its document tree exclusively:
// one Package must not be shared across concurrent sync passes.
type Package struct {
	parts []part // all zip entries in archive order; the document part's data is stale once doc is parsed
	doc   *etree.Document
}

// Open reads the .docx package at path.
func Open(path string) (*Package, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}
	return OpenBytes(b)
}

// OpenBytes reads a .docx package from memory.
func OpenBytes(b []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}

	p := &Package{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open package part %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read package part %s: %w", f.Name, err)
		}
		p.parts = append(p.parts, part{name: f.Name, data: data})
	}

	docData, ok := p.partData(DocumentPart)
	if !ok {
		return nil, fmt.Errorf("open package: missing %s", DocumentPart)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(docData); err != nil {
		return nil, fmt.Errorf("parse %s: %w", DocumentPart, err)
	}
	p.doc = doc
	return p, nil
}

func (p *Package) partData(name string) ([]byte, bool) {
	for _, pt := range p.parts {
		if pt.name == name {
			return pt.data, true
		}
	}
	return nil, false
}

// Document returns the parsed word/document.xml tree. Mutations to the tree
// are picked up by Save/Bytes.
func (p *Package) Document() *etree.Document {
	return p.doc
}

// DocumentXML serializes the current document tree.
func (p *Package) DocumentXML() ([]byte, error) {
	return p.doc.WriteToBytes()
}

// Bytes serializes the whole package. Parts other than word/document.xml are
// written back byte-identical, in the original archive order.
func (p *Package) Bytes() ([]byte, error) {
	docData, err := p.DocumentXML()
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", DocumentPart, err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, pt := range p.parts {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: pt.name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("write package part %s: %w", pt.name, err)
		}
		data := pt.data
		if pt.name == DocumentPart {
			data = docData
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("write package part %s: %w", pt.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish package: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the package to path.
func (p *Package) Save(path string) error {
	b, err := p.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("save package: %w", err)
	}
	return nil
}
