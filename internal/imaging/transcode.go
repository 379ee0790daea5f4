// Package imaging converts uploaded images to WebP to save storage
// space. GIFs are kept as-is to preserve animation, and HEIC images go
// through an intermediate JPEG step since most browsers cannot render
// HEIC directly.
package imaging

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"strings"

	img "github.com/disintegration/imaging"
	"github.com/gen2brain/heic"
	"github.com/gen2brain/webp"

	"github.com/mgoubin/screendrop/internal/utils"
)

const (
	// maxHeight is the tallest an image is kept at. Taller images are
	// scaled down preserving aspect ratio, shorter ones are never
	// enlarged.
	maxHeight = 2160

	webpQuality = 75
)

// Transcode converts the image at path to WebP and returns the path of
// the resulting file. The original file is removed once the converted
// copy is written. Non-image files and GIFs are returned unchanged.
//
// On error the file at path is left untouched and its path is returned
// alongside the error.
func Transcode(path, mimeType string) (string, error) {
	if !strings.HasPrefix(mimeType, "image/") {
		return path, nil
	}

	// GIF conversion would lose animation frames
	if mimeType == "image/gif" {
		return path, nil
	}

	if mimeType == "image/heic" || mimeType == "image/heif" {
		converted, err := heicToJPEG(path)
		if err != nil {
			return path, fmt.Errorf("failed to convert HEIC: %w", err)
		}
		path = converted
	}

	src, err := img.Open(path, img.AutoOrientation(true))
	if err != nil {
		return path, fmt.Errorf("failed to decode image: %w", err)
	}

	if src.Bounds().Dy() > maxHeight {
		src = img.Resize(src, 0, maxHeight, img.Lanczos)
	}

	outPath := utils.UniqueFilename(utils.ReplaceExt(path, ".webp"))

	out, err := os.Create(outPath)
	if err != nil {
		return path, fmt.Errorf("failed to create output file: %w", err)
	}

	if err := webp.Encode(out, src, webp.Options{Quality: webpQuality, Method: 0}); err != nil {
		out.Close()
		os.Remove(outPath)
		return path, fmt.Errorf("failed to encode WebP: %w", err)
	}

	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return path, fmt.Errorf("failed to write output file: %w", err)
	}

	if err := os.Remove(path); err != nil {
		return outPath, fmt.Errorf("failed to remove original file: %w", err)
	}

	return outPath, nil
}

// heicToJPEG decodes a HEIC file and writes it out as a
// maximum-quality JPEG next to it, removing the HEIC original.
func heicToJPEG(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var decoded image.Image
	decoded, err = heic.Decode(f)
	if err != nil {
		return "", err
	}

	outPath := utils.UniqueFilename(utils.ReplaceExt(path, ".jpg"))

	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}

	if err := jpeg.Encode(out, decoded, &jpeg.Options{Quality: 100}); err != nil {
		out.Close()
		os.Remove(outPath)
		return "", err
	}

	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return "", err
	}

	if err := os.Remove(path); err != nil {
		return "", err
	}

	return outPath, nil
}
