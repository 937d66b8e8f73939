package recognition

import (
	"errors"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nutrition-lens/internal/pkg/common"
)

// getImageType 獲取圖片類型（用於日誌記錄）
func getImageType(image string) string {
	switch {
	case image == "":
		return "empty"
	case strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://"):
		return "url"
	case strings.HasPrefix(image, "data:image/"):
		parts := strings.SplitN(image, ";base64,", 2)
		if len(parts) == 2 {
			return "data_uri_" + strings.TrimPrefix(parts[0], "data:image/")
		}
		return "invalid_data_uri"
	case strings.HasPrefix(image, "/9j/"):
		return "base64_jpeg"
	case strings.HasPrefix(image, "iVBORw0KGgo"):
		return "base64_png"
	case strings.HasPrefix(image, "/") || strings.HasPrefix(image, "./"):
		return "file"
	}
	return "base64"
}

// writeError 依錯誤類型回應狀態碼
func (h *Handler) writeError(c *gin.Context, msg string, err error) {
	status, resp := common.ToErrorResponse(err, h.debug)
	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status", status),
		zap.String("request_id", requestid.Get(c)),
	}
	if status >= 500 {
		common.LogError(msg, fields...)
	} else {
		common.LogWarn(msg, fields...)
	}
	_ = c.Error(err)
	c.JSON(status, resp)
}

// badRequest 請求格式錯誤
func (h *Handler) badRequest(c *gin.Context, err error) {
	var ce *common.CustomError
	if !errors.As(err, &ce) {
		err = common.ErrInvalidRequest.Wrap(err)
	}
	h.writeError(c, "請求格式無效", err)
}
