package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // 支援 WebP

	"nutrition-lens/internal/infrastructure/config"
	"nutrition-lens/internal/pkg/common"
)

const (
	defaultMaxWidth  = 512
	defaultQuality   = 70
	defaultMaxSize   = 10 << 20
	defaultMaxPixels = 50_000_000
)

// Payload 可直接送往辨識服務的圖片
type Payload struct {
	Base64    string
	MIMEType  string
	Width     int
	Height    int
	Optimized bool
}

// DataURI 以 data URI 形式輸出
func (p *Payload) DataURI() string {
	return "data:" + p.MIMEType + ";base64," + p.Base64
}

// Service 圖片前處理服務
type Service struct {
	maxSizeBytes int64
	maxPixels    int64
	maxWidth     int
	quality      int
	allowURLs    bool
	allowFiles   bool
	httpClient   *resty.Client
}

// Option 圖片服務選項
type Option func(*Service)

// WithLocalFiles 允許以本機檔案路徑作為圖片來源，僅供 CLI 與測試使用
func WithLocalFiles() Option {
	return func(s *Service) { s.allowFiles = true }
}

// NewService 創建新的圖片處理服務
func NewService(cfg config.ImageConfig, opts ...Option) *Service {
	s := &Service{
		maxSizeBytes: cfg.MaxSizeBytes,
		maxPixels:    cfg.MaxPixels,
		maxWidth:     cfg.MaxWidth,
		quality:      cfg.JPEGQuality,
		allowURLs:    cfg.AllowRemoteURLs,
		httpClient:   resty.New().SetTimeout(30 * time.Second),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxSizeBytes <= 0 {
		s.maxSizeBytes = defaultMaxSize
	}
	if s.maxPixels <= 0 {
		s.maxPixels = defaultMaxPixels
	}
	if s.maxWidth <= 0 {
		s.maxWidth = defaultMaxWidth
	}
	if s.quality < 1 || s.quality > 100 {
		s.quality = defaultQuality
	}
	return s
}

// Prepare 讀取圖片並縮圖、壓縮為 JPEG；失敗時改用原始資料直接編碼
// ref 可為 data URI、純 base64、http(s) URL，啟用 WithLocalFiles 時也可為本機檔案路徑
func (s *Service) Prepare(ctx context.Context, ref string) (*Payload, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, common.ErrInvalidImageFormat.Wrap(fmt.Errorf("empty image reference"))
	}

	data, err := s.load(ctx, ref)
	if err != nil {
		var ce *common.CustomError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, common.ErrImageEncoding.Wrap(err)
	}
	if int64(len(data)) > s.maxSizeBytes {
		return nil, s.sizeError(int64(len(data)))
	}

	// 先讀標頭中的尺寸，避免解碼時依宣告尺寸配置過大的記憶體
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > s.maxPixels {
			return nil, common.ErrInvalidImageSize.Wrap(fmt.Errorf("image dimensions %dx%d exceed maximum of %d pixels", cfg.Width, cfg.Height, s.maxPixels))
		}
	}

	payload, optErr := s.optimize(data)
	if optErr == nil {
		return payload, nil
	}

	common.LogDebug("圖片壓縮失敗，改用原始編碼", zap.Error(optErr))
	payload, rawErr := rawEncode(data)
	if rawErr != nil {
		return nil, common.ErrImageEncoding.Wrap(fmt.Errorf("%v; raw encode: %w", optErr, rawErr))
	}
	return payload, nil
}

func (s *Service) sizeError(size int64) error {
	return common.ErrInvalidImageSize.Wrap(fmt.Errorf("image size %d exceeds maximum limit of %d bytes", size, s.maxSizeBytes))
}

func (s *Service) load(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		parts := strings.SplitN(ref, ",", 2)
		if len(parts) != 2 || !strings.Contains(parts[0], ";base64") {
			return nil, fmt.Errorf("invalid data URI")
		}
		return s.decodeBase64(parts[1])

	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		if !s.allowURLs {
			return nil, common.ErrInvalidImageFormat.Wrap(fmt.Errorf("remote image URLs are disabled"))
		}
		return s.download(ctx, ref)
	}

	if s.allowFiles {
		if info, err := os.Stat(ref); err == nil && !info.IsDir() {
			if info.Size() > s.maxSizeBytes {
				return nil, s.sizeError(info.Size())
			}
			return os.ReadFile(ref)
		}
	}
	return s.decodeBase64(ref)
}

// download 讀取至多 maxSizeBytes+1 位元組，超過即視為過大
func (s *Service) download(ctx context.Context, url string) ([]byte, error) {
	resp, err := s.httpClient.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status code %d", resp.StatusCode())
	}
	if n := resp.RawResponse.ContentLength; n > s.maxSizeBytes {
		return nil, s.sizeError(n)
	}
	data, err := io.ReadAll(io.LimitReader(body, s.maxSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > s.maxSizeBytes {
		return nil, s.sizeError(int64(len(data)))
	}
	return data, nil
}

func (s *Service) decodeBase64(encoded string) ([]byte, error) {
	// base64 每 4 字元對應 3 位元組，解碼前先擋掉明顯過大的輸入（保留換行空白的餘量）
	if est := int64(len(encoded)) / 4 * 3; est > s.maxSizeBytes+s.maxSizeBytes/8 {
		return nil, s.sizeError(est)
	}
	encoded = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, encoded)
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if data, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "=")); rawErr == nil {
			return data, nil
		}
		return nil, fmt.Errorf("failed to decode base64 data: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}
	return data, nil
}

// optimize 解碼後縮放至 maxWidth 以內並以 JPEG 重新編碼
func (s *Service) optimize(data []byte) (*Payload, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if !isSupportedFormat(format) {
		return nil, fmt.Errorf("unsupported image format: %s", format)
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("empty image bounds")
	}
	if w > s.maxWidth {
		h = h * s.maxWidth / w
		if h < 1 {
			h = 1
		}
		w = s.maxWidth
	}

	// 透明區域以白色填底
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image as JPEG: %w", err)
	}
	return &Payload{
		Base64:    base64.StdEncoding.EncodeToString(buf.Bytes()),
		MIMEType:  "image/jpeg",
		Width:     w,
		Height:    h,
		Optimized: true,
	}, nil
}

// rawEncode 不做轉換，只要內容看起來是圖片就直接編碼
func rawEncode(data []byte) (*Payload, error) {
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return nil, fmt.Errorf("content is not an image: %s", mime)
	}
	return &Payload{
		Base64:   base64.StdEncoding.EncodeToString(data),
		MIMEType: mime,
	}, nil
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"png":  true,
		"gif":  true,
		"webp": true,
	}
	return supportedFormats[format]
}
