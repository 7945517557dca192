package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"ecotachos/internal/domain/entity"
	"ecotachos/internal/domain/port"
)

const (
	jpegQuality   = 85
	dataURIPrefix = "data:image"
)

// Codec приводит входящие фото к JPEG без альфа-канала.
// Поддерживает всё, что умеет image.Decode: JPEG, PNG, GIF, BMP, TIFF, WebP.
type Codec struct {
	Quality int
}

func NewCodec() *Codec {
	return &Codec{Quality: jpegQuality}
}

// Normalize декодирует изображение с учётом EXIF-ориентации и перекодирует в JPEG.
func (c *Codec) Normalize(ctx context.Context, in entity.ImageInput) (*entity.NormalizedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := in.Data
	if len(data) == 0 {
		decoded, err := decodeDataURI(in.DataURI)
		if err != nil {
			return nil, err
		}
		data = decoded
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", entity.ErrImageDecode)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrImageDecode, err)
	}

	rgb := flattenRGB(img)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, rgb, imaging.JPEG, imaging.JPEGQuality(c.Quality)); err != nil {
		return nil, fmt.Errorf("%w: encode jpeg: %v", entity.ErrImageDecode, err)
	}

	b := rgb.Bounds()
	return &entity.NormalizedImage{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// decodeDataURI разбирает строку вида data:image/png;base64,....
func decodeDataURI(uri string) ([]byte, error) {
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, dataURIPrefix) {
		return nil, fmt.Errorf("%w: data uri must start with %q", entity.ErrImageDecode, dataURIPrefix)
	}

	_, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return nil, fmt.Errorf("%w: data uri without comma", entity.ErrImageDecode)
	}

	// Переносы строк внутри base64 встречаются у некоторых клиентов
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", entity.ErrImageDecode, err)
	}
	return data, nil
}

// flattenRGB отбрасывает альфа-канал, цвета пикселей сохраняются.
func flattenRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

var _ port.ImageCodec = (*Codec)(nil)
