package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"ecotachos/internal/domain/entity"
)

func encodePNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCodec_NormalizeBytes(t *testing.T) {
	codec := NewCodec()
	data := encodePNG(t, 32, 16, color.NRGBA{R: 200, G: 10, B: 10, A: 128})

	out, err := codec.Normalize(context.Background(), entity.ImageInput{Data: data})
	require.NoError(t, err)
	require.Equal(t, "jpeg", out.Format)
	require.Equal(t, 32, out.Width)
	require.Equal(t, 16, out.Height)

	img, err := jpeg.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	r, g, b, a := img.At(5, 5).RGBA()
	require.Equal(t, uint32(0xffff), a)
	// Цвет сохраняется, альфа просто отбрасывается
	require.Greater(t, r>>8, uint32(150))
	require.Less(t, g>>8, uint32(60))
	require.Less(t, b>>8, uint32(60))
}

func TestCodec_NormalizeDataURI(t *testing.T) {
	codec := NewCodec()
	data := encodePNG(t, 8, 8, color.NRGBA{G: 255, A: 255})
	encoded := base64.StdEncoding.EncodeToString(data)

	tests := []struct {
		name string
		uri  string
	}{
		{name: "standard", uri: "data:image/png;base64," + encoded},
		{name: "with newlines", uri: "data:image/png;base64," + encoded[:10] + "\n" + encoded[10:]},
		{name: "unpadded", uri: "data:image/png;base64," + base64.RawStdEncoding.EncodeToString(data)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := codec.Normalize(context.Background(), entity.ImageInput{DataURI: tt.uri})
			require.NoError(t, err)
			require.Equal(t, 8, out.Width)
		})
	}
}

func TestCodec_NormalizeErrors(t *testing.T) {
	codec := NewCodec()

	tests := []struct {
		name string
		in   entity.ImageInput
	}{
		{name: "not an image", in: entity.ImageInput{Data: []byte("definitely not an image")}},
		{name: "no comma", in: entity.ImageInput{DataURI: "data:image/png;base64"}},
		{name: "bad alphabet", in: entity.ImageInput{DataURI: "data:image/png;base64,@@@###"}},
		{name: "wrong prefix", in: entity.ImageInput{DataURI: "data:text/plain;base64,aGVsbG8="}},
		{name: "valid base64 but not an image", in: entity.ImageInput{DataURI: "data:image/png;base64,aGVsbG8="}},
		{name: "empty", in: entity.ImageInput{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Normalize(context.Background(), tt.in)
			require.ErrorIs(t, err, entity.ErrImageDecode)
		})
	}
}
