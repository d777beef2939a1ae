package decoder

import (
	"fmt"
	"strings"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
)

var readerCatalog = map[string]func() gozxing.Reader{
	"code_128": oned.NewCode128Reader,
	"ean":      oned.NewEAN13Reader,
	"ean_13":   oned.NewEAN13Reader,
	"ean_8":    oned.NewEAN8Reader,
	"upc":      oned.NewUPCAReader,
	"upc_a":    oned.NewUPCAReader,
	"upc_e":    oned.NewUPCEReader,
	"code_39":  oned.NewCode39Reader,
	"code_93":  oned.NewCode93Reader,
	"codabar":  oned.NewCodaBarReader,
	"i2of5":    oned.NewITFReader,
	"itf":      oned.NewITFReader,
}

type namedReader struct {
	name   string
	reader gozxing.Reader
}

// ReaderNames lists the canonical reader names.
func ReaderNames() []string {
	return []string{"code_128", "ean", "ean_8", "upc", "upc_e", "code_39", "code_93", "codabar", "i2of5"}
}

// CanonicalReader strips the "_reader" suffix and normalises case.
func CanonicalReader(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "-", "_")
	return strings.TrimSuffix(name, "_reader")
}

func buildReaders(names []string) ([]namedReader, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no readers configured", ErrUnknownReader)
	}
	seen := make(map[string]bool, len(names))
	readers := make([]namedReader, 0, len(names))
	for _, raw := range names {
		name := CanonicalReader(raw)
		build, ok := readerCatalog[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownReader, raw)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		readers = append(readers, namedReader{name: name, reader: build()})
	}
	return readers, nil
}

func decodeHints(patchSize string) map[gozxing.DecodeHintType]interface{} {
	switch strings.ToLower(strings.TrimSpace(patchSize)) {
	case "x-small", "small":
		return map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		}
	default:
		return nil
	}
}

func formatName(format gozxing.BarcodeFormat) string {
	return strings.ToLower(format.String())
}
