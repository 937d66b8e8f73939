package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"nutrition-lens/internal/infrastructure/config"
	"nutrition-lens/internal/pkg/common"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func testService() *Service {
	return NewService(config.ImageConfig{MaxSizeBytes: 1 << 20, MaxWidth: 512, JPEGQuality: 70})
}

func decodePayload(t *testing.T, p *Payload) image.Image {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(p.Base64)
	if err != nil {
		t.Fatalf("payload base64: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("payload jpeg: %v", err)
	}
	return img
}

func TestPrepareResizesDataURI(t *testing.T) {
	t.Parallel()

	ref := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG(t, 1024, 512))
	p, err := testService().Prepare(context.Background(), ref)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if !p.Optimized || p.MIMEType != "image/jpeg" {
		t.Fatalf("payload: want optimized jpeg got=%+v", p)
	}
	b := decodePayload(t, p).Bounds()
	if b.Dx() != 512 || b.Dy() != 256 {
		t.Fatalf("size: want=512x256 got=%dx%d", b.Dx(), b.Dy())
	}
}

func TestPrepareKeepsSmallImages(t *testing.T) {
	t.Parallel()

	p, err := testService().Prepare(context.Background(), base64.StdEncoding.EncodeToString(testPNG(t, 200, 100)))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if p.Width != 200 || p.Height != 100 {
		t.Fatalf("size: want=200x100 got=%dx%d", p.Width, p.Height)
	}
}

func TestPrepareFromFileAndURL(t *testing.T) {
	t.Parallel()

	data := testPNG(t, 640, 480)
	path := filepath.Join(t.TempDir(), "thali.png")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/thali.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)

	s := NewService(config.ImageConfig{MaxSizeBytes: 1 << 20, MaxWidth: 512, JPEGQuality: 70, AllowRemoteURLs: true}, WithLocalFiles())
	for _, ref := range []string{path, srv.URL + "/thali.png"} {
		p, err := s.Prepare(context.Background(), ref)
		if err != nil {
			t.Fatalf("Prepare(%s): %v", ref, err)
		}
		if p.Width != 512 || p.Height != 384 {
			t.Fatalf("Prepare(%s): want=512x384 got=%dx%d", ref, p.Width, p.Height)
		}
	}

	if _, err := s.Prepare(context.Background(), srv.URL+"/missing.png"); !errors.Is(err, common.ErrImageEncoding) {
		t.Fatalf("missing url: want ErrImageEncoding got=%v", err)
	}
}

func TestPrepareFallsBackToRawEncode(t *testing.T) {
	t.Parallel()

	// BMP 標頭可被辨識為圖片，但沒有註冊解碼器
	bmp := append([]byte("BM"), make([]byte, 64)...)
	p, err := testService().Prepare(context.Background(), base64.StdEncoding.EncodeToString(bmp))
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if p.Optimized || p.MIMEType != "image/bmp" {
		t.Fatalf("payload: want raw image/bmp got=%+v", p)
	}
	if p.Base64 != base64.StdEncoding.EncodeToString(bmp) {
		t.Fatalf("raw payload should be the untouched original")
	}
	if p.DataURI()[:20] != "data:image/bmp;base6" {
		t.Fatalf("DataURI: got=%s", p.DataURI()[:20])
	}
}

func TestPrepareFailures(t *testing.T) {
	t.Parallel()

	s := NewService(config.ImageConfig{MaxSizeBytes: 1024, MaxWidth: 512, JPEGQuality: 70})
	cases := []struct {
		name string
		ref  string
		want *common.CustomError
	}{
		{name: "empty", ref: "  ", want: common.ErrInvalidImageFormat},
		{name: "not base64", ref: "%%%not-an-image%%%", want: common.ErrImageEncoding},
		{name: "not an image", ref: base64.StdEncoding.EncodeToString([]byte("plain text, not pixels")), want: common.ErrImageEncoding},
		{name: "bad data uri", ref: "data:image/png,abc", want: common.ErrImageEncoding},
		{name: "too large", ref: base64.StdEncoding.EncodeToString(make([]byte, 2048)), want: common.ErrInvalidImageSize},
	}
	for _, tc := range cases {
		if _, err := s.Prepare(context.Background(), tc.ref); !errors.Is(err, tc.want) {
			t.Fatalf("%s: want=%v got=%v", tc.name, tc.want.Code, err)
		}
	}
}

// hugePNG 回傳只有 1x1 像素資料、但 IHDR 宣告為 w x h 的 PNG
func hugePNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := testPNG(t, 1, 1)
	// 8 位元組簽章後為 IHDR：長度(4) 類型(4) 寬(4) 高(4) ... CRC 涵蓋類型與資料 13 位元組
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestPrepareRejectsDeclaredDimensions(t *testing.T) {
	t.Parallel()

	ref := base64.StdEncoding.EncodeToString(hugePNG(t, 50000, 50000))
	if _, err := testService().Prepare(context.Background(), ref); !errors.Is(err, common.ErrInvalidImageSize) {
		t.Fatalf("want ErrInvalidImageSize got=%v", err)
	}

	s := NewService(config.ImageConfig{MaxPixels: 100 * 100, MaxWidth: 512, JPEGQuality: 70})
	if _, err := s.Prepare(context.Background(), base64.StdEncoding.EncodeToString(testPNG(t, 200, 100))); !errors.Is(err, common.ErrInvalidImageSize) {
		t.Fatalf("custom pixel limit: want ErrInvalidImageSize got=%v", err)
	}
	if _, err := s.Prepare(context.Background(), base64.StdEncoding.EncodeToString(testPNG(t, 100, 100))); err != nil {
		t.Fatalf("at pixel limit: %v", err)
	}
}

func TestPrepareCapsDownloadSize(t *testing.T) {
	t.Parallel()

	big := testPNG(t, 64, 64)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		if r.URL.Path == "/chunked.png" {
			// 不帶 Content-Length，只能靠讀取上限擋下
			w.(http.Flusher).Flush()
		}
		_, _ = w.Write(big)
	}))
	t.Cleanup(srv.Close)

	s := NewService(config.ImageConfig{MaxSizeBytes: int64(len(big)) - 1, MaxWidth: 512, JPEGQuality: 70, AllowRemoteURLs: true})
	for _, path := range []string{"/sized.png", "/chunked.png"} {
		if _, err := s.Prepare(context.Background(), srv.URL+path); !errors.Is(err, common.ErrInvalidImageSize) {
			t.Fatalf("%s: want ErrInvalidImageSize got=%v", path, err)
		}
	}
}

func TestPrepareRestrictsSources(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "secret.png")
	if err := os.WriteFile(path, testPNG(t, 10, 10), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s := testService()
	if _, err := s.Prepare(context.Background(), path); !errors.Is(err, common.ErrImageEncoding) {
		t.Fatalf("local file without option: want ErrImageEncoding got=%v", err)
	}
	if _, err := s.Prepare(context.Background(), "http://169.254.169.254/latest/meta-data"); !errors.Is(err, common.ErrInvalidImageFormat) {
		t.Fatalf("remote url disabled: want ErrInvalidImageFormat got=%v", err)
	}
}
