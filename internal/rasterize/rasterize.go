// Package rasterize wraps go-fitz (MuPDF) behind a small interface so the
// producer can be driven by a fake document in tests without linking the
// native library. Every exported function here is blocking. Open and
// Metadata run once on the caller's goroutine before the producer starts;
// rendering runs only on the producer's dedicated goroutine, never on the
// scheduler's goroutines — MuPDF's C state is not safe to share across
// concurrent renders of the same document.
package rasterize

import (
	"fmt"
	"image"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/image/draw"

	"github.com/local/pdf2md/internal/model"
)

// Document is the subset of an opened PDF the pipeline needs.
type Document interface {
	PageCount() int
	RenderPage(pageIndex, maxPixels int, dpi int) (image.Image, error)
	Metadata() model.DocumentMetadata
	Close() error
}

// Open opens path, classifying failures the way the pipeline's fatal-error
// taxonomy requires: a password-shaped failure maps to PasswordRequired (no
// password given) or WrongPassword (password given and rejected); anything
// else maps to CorruptPdf.
func Open(path string, password *string) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		if looksPasswordRelated(err) {
			if password == nil || *password == "" {
				return nil, &model.PasswordRequiredError{Path: path}
			}
			return nil, &model.WrongPasswordError{Path: path}
		}
		return nil, &model.CorruptPdfError{Path: path, Detail: err.Error()}
	}

	meta := extractMetadata(doc, path)

	return &goFitzDocument{doc: doc, path: path, meta: meta}, nil
}

func looksPasswordRelated(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypt")
}

type goFitzDocument struct {
	doc  *fitz.Document
	path string
	meta model.DocumentMetadata
}

func (d *goFitzDocument) PageCount() int { return d.doc.NumPage() }

func (d *goFitzDocument) Metadata() model.DocumentMetadata { return d.meta }

func (d *goFitzDocument) Close() error { return d.doc.Close() }

// RenderPage rasterizes pageIndex (0-indexed) at dpi, then scales the
// longest edge down to maxPixels if it exceeds the cap, preserving aspect
// ratio. dpi sets the render resolution; maxPixels caps the resulting
// longest edge.
func (d *goFitzDocument) RenderPage(pageIndex, maxPixels, dpi int) (image.Image, error) {
	if pageIndex < 0 || pageIndex >= d.doc.NumPage() {
		return nil, fmt.Errorf("page index %d out of range (0..%d)", pageIndex, d.doc.NumPage())
	}

	img, err := d.doc.ImageDPI(pageIndex, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("rasterize page %d: %w", pageIndex, err)
	}

	return capLongestEdge(img, maxPixels), nil
}

func capLongestEdge(img image.Image, maxPixels int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxPixels || longest == 0 {
		return img
	}

	scale := float64(maxPixels) / float64(longest)
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// extractMetadata pulls what go-fitz exposes directly and falls back to
// pdfcpu for the two fields MuPDF's Go binding does not surface cleanly:
// the encrypted flag and the PDF version. pdfcpu reads the trailer/encrypt
// dictionary straight from the file, independent of go-fitz's open state.
func extractMetadata(doc *fitz.Document, path string) model.DocumentMetadata {
	meta := model.DocumentMetadata{PageCount: doc.NumPage()}

	if m, err := doc.Metadata(); err == nil {
		meta.Title = m["title"]
		meta.Author = m["author"]
		meta.Subject = m["subject"]
		meta.Creator = m["creator"]
		meta.Producer = m["producer"]
		meta.CreationDate = m["creationDate"]
		meta.ModificationDate = m["modDate"]
	}

	if info, err := api.PDFInfo(path, "", nil, false); err == nil && info != nil {
		meta.Encrypted = info.Encrypted
		if info.Version != "" {
			meta.PDFVersion = info.Version
		}
	}

	return meta
}
