package recognition

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nutrition-lens/internal/core/food"
	"nutrition-lens/internal/pkg/common"
)

// Service 辨識服務
type Service interface {
	RecognizeFood(ctx context.Context, imageRef, hint string) (*food.Report, error)
	RecognizeBarcode(ctx context.Context, code string) (*food.Report, error)
	LookupNutrition(ctx context.Context, foodName string, quantity, weightGrams int) (*food.ResolvedItem, error)
}

// Handler 辨識相關 API
type Handler struct {
	svc   Service
	debug bool
}

// NewHandler 創建處理器；debug 時錯誤回應附帶詳細原因
func NewHandler(svc Service, debug bool) *Handler {
	return &Handler{svc: svc, debug: debug}
}

// FoodRecognitionRequest 照片辨識請求
// image: data URI、base64 或圖片 URL
type FoodRecognitionRequest struct {
	Image           string `json:"image" form:"image"`
	Hint            string `json:"hint,omitempty" form:"hint"`
	DescriptionHint string `json:"description_hint,omitempty" form:"description_hint"` // hint 的舊名稱
}

// NutritionLookupRequest 單一食物營養查詢
type NutritionLookupRequest struct {
	FoodName string `json:"food_name" binding:"required"`
	Quantity int    `json:"quantity"`
	Weight   int    `json:"weight"`
}

// HandleFoodRecognition POST /recognize/food，支援 JSON 或 multipart 上傳
func (h *Handler) HandleFoodRecognition(c *gin.Context) {
	req, err := bindFoodRequest(c)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	hint := req.Hint
	if hint == "" {
		hint = req.DescriptionHint
	}

	common.LogInfo("開始處理食物辨識請求",
		zap.String("request_id", requestid.Get(c)),
		zap.String("image_type", getImageType(req.Image)),
		zap.Int("image_length", len(req.Image)),
		zap.Bool("has_hint", hint != ""),
	)

	report, err := h.svc.RecognizeFood(c.Request.Context(), req.Image, hint)
	if err != nil {
		h.writeError(c, "食物辨識失敗", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func bindFoodRequest(c *gin.Context) (*FoodRecognitionRequest, error) {
	var req FoodRecognitionRequest
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			return nil, err
		}
		if req.Image == "" {
			fh, err := c.FormFile("image")
			if err != nil {
				return nil, common.NewValidationError("image file or field is required")
			}
			f, err := fh.Open()
			if err != nil {
				return nil, err
			}
			defer f.Close()
			data, err := io.ReadAll(f)
			if err != nil {
				return nil, err
			}
			req.Image = base64.StdEncoding.EncodeToString(data)
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Image) == "" {
		return nil, common.NewValidationError("image is required")
	}
	return &req, nil
}

// HandleBarcode GET /recognize/barcode/:code
func (h *Handler) HandleBarcode(c *gin.Context) {
	code := c.Param("code")
	report, err := h.svc.RecognizeBarcode(c.Request.Context(), code)
	if err != nil {
		h.writeError(c, "條碼查詢失敗", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleNutritionLookup POST /nutrition/lookup
func (h *Handler) HandleNutritionLookup(c *gin.Context) {
	var req NutritionLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if req.Quantity < 0 || req.Quantity > food.MaxVisibleCount {
		h.badRequest(c, common.NewValidationError(fmt.Sprintf("quantity must be between 1 and %d", food.MaxVisibleCount)))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	item, err := h.svc.LookupNutrition(c.Request.Context(), req.FoodName, req.Quantity, req.Weight)
	if err != nil {
		h.writeError(c, "營養查詢失敗", err)
		return
	}
	c.JSON(http.StatusOK, item)
}
