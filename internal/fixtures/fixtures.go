// Package fixtures renders barcode images for tests.
package fixtures

import (
	"fmt"
	"image"
	"image/color"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"gocv.io/x/gocv"
)

// Product codes used across tests.
const (
	EAN13Code   = "4006381333931"
	Code128Code = "SHELF-0042"
)

// Barcode sizes in pixels before padding.
const (
	barcodeWidth  = 400
	barcodeHeight = 120
	padding       = 40
)

// EAN13 renders an EAN-13 barcode.
func EAN13(code string) (image.Image, error) {
	return encode(oned.NewEAN13Writer(), code, gozxing.BarcodeFormat_EAN_13)
}

// Code128 renders a Code 128 barcode.
func Code128(code string) (image.Image, error) {
	return encode(oned.NewCode128Writer(), code, gozxing.BarcodeFormat_CODE_128)
}

// Blank returns a white image with no barcode.
func Blank() image.Image {
	img := image.NewGray(image.Rect(0, 0, barcodeWidth+2*padding, barcodeHeight+2*padding))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

// Frame converts img into a BGR Mat the way a camera delivers frames. The
// caller must close it.
func Frame(img image.Image) (*gocv.Mat, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert fixture: %w", err)
	}
	return &mat, nil
}

type writer interface {
	Encode(contents string, format gozxing.BarcodeFormat, width, height int, hints map[gozxing.EncodeHintType]interface{}) (*gozxing.BitMatrix, error)
}

func encode(w writer, code string, format gozxing.BarcodeFormat) (image.Image, error) {
	matrix, err := w.Encode(code, format, barcodeWidth, barcodeHeight, nil)
	if err != nil {
		return nil, fmt.Errorf("encode %s %q: %w", format, code, err)
	}

	width, height := matrix.GetWidth(), matrix.GetHeight()
	img := image.NewGray(image.Rect(0, 0, width+2*padding, height+2*padding))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if matrix.Get(x, y) {
				img.SetGray(x+padding, y+padding, color.Gray{Y: 0})
			}
		}
	}
	return img, nil
}
