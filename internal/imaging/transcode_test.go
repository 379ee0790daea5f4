package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gen2brain/webp"
)

func writeTestPNG(t *testing.T, path string, width, height int) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test image: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode test PNG: %v", err)
	}
}

func TestTranscodePNGToWebP(t *testing.T) {
	tmpDir := t.TempDir()
	srcPath := filepath.Join(tmpDir, "shot.png")
	writeTestPNG(t, srcPath, 64, 48)

	outPath, err := Transcode(srcPath, "image/png")
	if err != nil {
		t.Fatalf("Transcode failed: %v", err)
	}

	if !strings.HasSuffix(outPath, ".webp") {
		t.Errorf("output path = %q, want .webp extension", outPath)
	}

	if _, err := os.Stat(srcPath); !os.IsNotExist(err) {
		t.Errorf("original file still exists after transcode")
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()

	decoded, err := webp.Decode(f)
	if err != nil {
		t.Fatalf("output is not decodable WebP: %v", err)
	}

	bounds := decoded.Bounds()
	if bounds.Dx() != 64 || bounds.Dy() != 48 {
		t.Errorf("output dimensions = %dx%d, want 64x48 (no enlargement or shrink)", bounds.Dx(), bounds.Dy())
	}
}

func TestTranscodeResizesTallImages(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large image transcode in short mode")
	}

	tmpDir := t.TempDir()
	srcPath := filepath.Join(tmpDir, "tall.png")
	writeTestPNG(t, srcPath, 100, 4320)

	outPath, err := Transcode(srcPath, "image/png")
	if err != nil {
		t.Fatalf("Transcode failed: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()

	decoded, err := webp.Decode(f)
	if err != nil {
		t.Fatalf("output is not decodable WebP: %v", err)
	}

	bounds := decoded.Bounds()
	if bounds.Dy() != 2160 {
		t.Errorf("output height = %d, want 2160", bounds.Dy())
	}
	// Aspect ratio is preserved: 100/4320 scaled to height 2160
	if bounds.Dx() != 50 {
		t.Errorf("output width = %d, want 50", bounds.Dx())
	}
}

func TestTranscodeGIFPassthrough(t *testing.T) {
	tmpDir := t.TempDir()
	srcPath := filepath.Join(tmpDir, "anim.gif")

	img := image.NewPaletted(image.Rect(0, 0, 8, 8), []color.Color{color.Black, color.White})
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test GIF: %v", err)
	}
	if err := os.WriteFile(srcPath, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write test GIF: %v", err)
	}

	outPath, err := Transcode(srcPath, "image/gif")
	if err != nil {
		t.Fatalf("Transcode failed: %v", err)
	}

	if outPath != srcPath {
		t.Errorf("GIF path changed to %q, want %q", outPath, srcPath)
	}

	got, err := os.ReadFile(srcPath)
	if err != nil {
		t.Fatalf("failed to read GIF: %v", err)
	}
	if !bytes.Equal(got, buf.Bytes()) {
		t.Error("GIF bytes changed, want byte-identical passthrough")
	}
}

func TestTranscodeNonImagePassthrough(t *testing.T) {
	tmpDir := t.TempDir()
	srcPath := filepath.Join(tmpDir, "notes.txt")
	content := []byte("just some text")

	if err := os.WriteFile(srcPath, content, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	outPath, err := Transcode(srcPath, "text/plain; charset=utf-8")
	if err != nil {
		t.Fatalf("Transcode failed: %v", err)
	}
	if outPath != srcPath {
		t.Errorf("non-image path changed to %q, want %q", outPath, srcPath)
	}

	got, err := os.ReadFile(srcPath)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Error("non-image content changed")
	}
}

func TestTranscodeCorruptImageKeepsOriginal(t *testing.T) {
	tmpDir := t.TempDir()
	srcPath := filepath.Join(tmpDir, "broken.png")
	content := []byte("not actually a png")

	if err := os.WriteFile(srcPath, content, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	outPath, err := Transcode(srcPath, "image/png")
	if err == nil {
		t.Fatal("Transcode succeeded on corrupt image data")
	}
	if outPath != srcPath {
		t.Errorf("path changed to %q on failure, want %q", outPath, srcPath)
	}

	got, readErr := os.ReadFile(srcPath)
	if readErr != nil {
		t.Fatalf("original file gone after failed transcode: %v", readErr)
	}
	if !bytes.Equal(got, content) {
		t.Error("original content changed after failed transcode")
	}
}

func TestTranscodeNamingAvoidsCollision(t *testing.T) {
	tmpDir := t.TempDir()
	srcPath := filepath.Join(tmpDir, "shot.png")
	writeTestPNG(t, srcPath, 16, 16)

	// A finished file already owns the target name
	occupied := filepath.Join(tmpDir, "shot.webp")
	if err := os.WriteFile(occupied, []byte("existing"), 0644); err != nil {
		t.Fatalf("failed to create existing file: %v", err)
	}

	outPath, err := Transcode(srcPath, "image/png")
	if err != nil {
		t.Fatalf("Transcode failed: %v", err)
	}

	want := filepath.Join(tmpDir, "shot (1).webp")
	if outPath != want {
		t.Errorf("output path = %q, want %q", outPath, want)
	}

	got, err := os.ReadFile(occupied)
	if err != nil || string(got) != "existing" {
		t.Error("pre-existing file was overwritten")
	}
}

func TestTranscodeCorruptHEICFailsCleanly(t *testing.T) {
	content := []byte("not a real heic container")

	for _, mimeType := range []string{"image/heic", "image/heif"} {
		t.Run(mimeType, func(t *testing.T) {
			tmpDir := t.TempDir()
			srcPath := filepath.Join(tmpDir, "shot.heic")
			if err := os.WriteFile(srcPath, content, 0644); err != nil {
				t.Fatalf("failed to write test file: %v", err)
			}

			outPath, err := Transcode(srcPath, mimeType)
			if err == nil {
				t.Fatal("Transcode succeeded on corrupt HEIC bytes")
			}
			if outPath != srcPath {
				t.Errorf("path changed to %q on failure, want %q", outPath, srcPath)
			}

			got, readErr := os.ReadFile(srcPath)
			if readErr != nil {
				t.Fatalf("original file gone after failed conversion: %v", readErr)
			}
			if !bytes.Equal(got, content) {
				t.Error("original content changed after failed conversion")
			}

			// No half-written intermediate left behind
			for _, stray := range []string{"shot.jpg", "shot.webp"} {
				if _, err := os.Stat(filepath.Join(tmpDir, stray)); !os.IsNotExist(err) {
					t.Errorf("stray %s left after failed conversion", stray)
				}
			}
		})
	}
}
