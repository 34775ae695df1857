package infra

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const anchoMiniatura = 200

// GenerarMiniatura decodes any supported image and returns a JPEG 200px wide,
// keeping the aspect ratio.
func GenerarMiniatura(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("imagen inválida: %w", err)
	}
	mini := imaging.Resize(img, anchoMiniatura, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, mini, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// NombresObjeto returns the blob keys for an uploaded file: the original under
// images/ and its thumbnail under images/thumbs/. A uuid suffix keeps repeated
// uploads of the same filename apart.
func NombresObjeto(archivo string) (original, miniatura string) {
	ext := strings.ToLower(path.Ext(archivo))
	base := strings.TrimSuffix(path.Base(archivo), path.Ext(archivo))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, base)
	if base == "" {
		base = "joya"
	}
	id := uuid.NewString()
	return fmt.Sprintf("images/%s-%s%s", base, id, ext), fmt.Sprintf("images/thumbs/%s-%s.jpg", base, id)
}
