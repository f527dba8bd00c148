// Package imageenc turns a rasterized bitmap into the base64 PNG payload
// VLM APIs expect. PNG is lossless: JPEG's quantization artefacts around
// rendered text measurably hurt VLM OCR accuracy at the DPIs this pipeline
// targets.
package imageenc

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"

	"github.com/local/pdf2md/internal/model"
)

// Encode PNG-encodes img and base64-wraps it, tagged for the "high" tile
// budget so tile-based VLMs keep fine print and small tables legible.
func Encode(img image.Image) (model.ImagePayload, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return model.ImagePayload{}, err
	}

	return model.ImagePayload{
		Base64Data: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MIMEType:   "image/png",
		Detail:     "high",
	}, nil
}
