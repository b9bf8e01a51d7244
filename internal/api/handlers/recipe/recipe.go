package recipe

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	recipeService "cookit-backend/internal/core/recipe"
	"cookit-backend/internal/pkg/common"
)

// Suggestion 拒絕時的替代建議
type Suggestion struct {
	SuggestedCuisine string `json:"suggestedCuisine"`
	Reason           string `json:"reason"`
}

// RecipeResponse 成功生成的食譜
type RecipeResponse struct {
	Status           string      `json:"status"`
	Accepted         bool        `json:"accepted"`
	Title            string      `json:"title"`
	Ingredients      string      `json:"ingredients"`
	Steps            []string    `json:"steps"`
	CaloriesKcal     int         `json:"caloriesKcal"`
	Calories         int         `json:"calories"` // 舊版客戶端使用的欄位
	EstimatedMinutes int         `json:"estimatedMinutes"`
	Cuisine          string      `json:"cuisine"`
	Mode             string      `json:"mode"`
	Suggestion       *Suggestion `json:"suggestion"`
}

// RefusedResponse 生成服務拒絕時的回應（HTTP 422）
type RefusedResponse struct {
	Status     string     `json:"status"`
	Accepted   bool       `json:"accepted"`
	Cuisine    string     `json:"cuisine"`
	Suggestion Suggestion `json:"suggestion"`
}

// Handler 食譜處理器
type Handler struct {
	service *recipeService.RecipeService
	debug   bool
}

// NewHandler 創建食譜處理器；debug 為 true 時錯誤回應包含詳細原因
func NewHandler(service *recipeService.RecipeService, debug bool) *Handler {
	return &Handler{service: service, debug: debug}
}

// HandleGenerate 根據食材與條件生成食譜
func (h *Handler) HandleGenerate(c *gin.Context) {
	var raw map[string]any
	if err := common.DecodeJSON(c.Request.Body, &raw); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			h.respondError(c, common.ErrBodyTooLarge.WithErr(err))
			return
		case errors.Is(err, io.EOF):
			// 空的請求體視為沒有任何欄位
			raw = map[string]any{}
		default:
			h.respondError(c, common.ErrInvalidRequest.WithErr(err))
			return
		}
	}
	if raw == nil {
		h.respondError(c, common.ErrInvalidRequest)
		return
	}

	result, err := h.service.Generate(c.Request.Context(), raw)
	if err != nil {
		h.respondError(c, common.AsCustomError(err))
		return
	}

	switch r := result.(type) {
	case *recipeService.Accepted:
		c.JSON(http.StatusOK, RecipeResponse{
			Status:           "ok",
			Accepted:         true,
			Title:            r.Title,
			Ingredients:      r.IngredientsText,
			Steps:            r.Steps,
			CaloriesKcal:     r.CaloriesKcal,
			Calories:         r.CaloriesKcal,
			EstimatedMinutes: r.EstimatedMinutes,
			Cuisine:          string(r.Cuisine),
			Mode:             string(r.Mode),
		})
	case *recipeService.Refused:
		c.JSON(http.StatusUnprocessableEntity, RefusedResponse{
			Status:   "refused",
			Accepted: false,
			Cuisine:  string(r.Cuisine),
			Suggestion: Suggestion{
				SuggestedCuisine: r.Suggestion.SuggestedCuisine,
				Reason:           r.Suggestion.Reason,
			},
		})
	case *recipeService.Invalid:
		h.respondError(c, r.Err)
	default:
		h.respondError(c, common.ErrInternalError)
	}
}

// respondError 以錯誤代碼與狀態碼回應
func (h *Handler) respondError(c *gin.Context, ce *common.CustomError) {
	if ce == nil {
		ce = common.ErrInternalError
	}
	if ce.Status >= http.StatusInternalServerError {
		common.LogError("Recipe generation failed",
			zap.String("code", ce.Code),
			zap.Error(ce),
			zap.String("request_id", common.RequestIDFromContext(c.Request.Context())),
		)
	}
	_ = c.Error(ce)
	c.AbortWithStatusJSON(ce.Status, ce.Response(h.debug))
}
