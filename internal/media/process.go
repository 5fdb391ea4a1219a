package media

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/namhuunam/ophim-crawler/internal/crawler"
)

// process decodes, optionally downscales and re-encodes a fetched image, then
// persists it at cachePath. The stored bytes are the original payload when no
// transformation applies, avoiding a lossy decode/encode round trip.
func (p *Pipeline) process(ctx context.Context, cachePath string, role crawler.ImageRole, resp crawler.FetchResponse) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(resp.Body))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	resize := p.resizeFor(role)
	resized := false
	if resize.Enabled && resize.Width > 0 && resize.Height > 0 {
		if shrunk := downscale(img, resize); shrunk != nil {
			img = shrunk
			resized = true
		}
	}

	data := resp.Body
	contentType := resp.ContentType
	switch {
	case p.cfg.ConvertWebP:
		var buf bytes.Buffer
		if err := webp.Encode(&buf, img, &webp.Options{Quality: webpQuality}); err != nil {
			return "", fmt.Errorf("encode webp: %w", err)
		}
		data = buf.Bytes()
		contentType = "image/webp"
	case resized:
		format, ferr := imaging.FormatFromFilename(cachePath)
		if ferr != nil {
			format = imaging.JPEG
			contentType = "image/jpeg"
		}
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, format); err != nil {
			return "", fmt.Errorf("encode resized image: %w", err)
		}
		data = buf.Bytes()
	}

	url, err := p.store.Put(ctx, cachePath, contentType, data)
	if err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}
	return url, nil
}

// downscale fits the image inside the configured bounds, preserving aspect
// ratio. It returns nil when the image already fits; upscaling never happens.
func downscale(img image.Image, resize ResizeConfig) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= resize.Width && bounds.Dy() <= resize.Height {
		return nil
	}
	return imaging.Fit(img, resize.Width, resize.Height, imaging.Lanczos)
}
