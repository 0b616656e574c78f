package dream

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"

	"github.com/mirrorlake/dreamforge/internal/logger"
	"github.com/mirrorlake/dreamforge/internal/session"
)

const tileSize = 400

// Combine stitches the resolved images of a session into a single horizontal
// strip, uploads it, and returns its public URL. Placeholder entries are
// skipped. Any failure yields "" so callers fall back to individual images.
func (s *Service) Combine(ctx context.Context, images []session.Image, sessionID string) string {
	var contents [][]byte
	for _, img := range images {
		if img.Queued() {
			continue
		}
		data, err := s.media.Download(ctx, img.URL)
		if err != nil {
			logger.Error("combine download failed", "session_id", sessionID, "file", img.FileName, "error", err)
			return ""
		}
		contents = append(contents, data)
	}

	if len(contents) == 0 {
		logger.Warn("no images to combine", "session_id", sessionID)
		return ""
	}

	strip, err := compose(contents)
	if err != nil {
		logger.Error("combine compose failed", "session_id", sessionID, "error", err)
		return ""
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, strip, nil); err != nil {
		logger.Error("combine encode failed", "session_id", sessionID, "error", err)
		return ""
	}

	fileName := fmt.Sprintf("COMBINED_DREAM_%s.jpg", sessionID)
	url, err := s.media.Upload(ctx, fileName, buf.Bytes())
	if err != nil {
		logger.Error("combine upload failed", "session_id", sessionID, "error", err)
		return ""
	}

	logger.Info("combined image uploaded", "session_id", sessionID, "file", fileName)
	return url
}

// compose decodes each image and scales it into a fixed square tile, pasting
// tiles left to right in input order.
func compose(contents [][]byte) (image.Image, error) {
	strip := image.NewRGBA(image.Rect(0, 0, tileSize*len(contents), tileSize))

	for i, data := range contents {
		src, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode image %d: %w", i, err)
		}

		dst := image.Rect(i*tileSize, 0, (i+1)*tileSize, tileSize)
		xdraw.ApproxBiLinear.Scale(strip, dst, src, src.Bounds(), xdraw.Over, nil)
	}

	return strip, nil
}
