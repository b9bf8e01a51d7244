package common

import (
	"errors"
	"net/http"
)

// ErrorResponse 定義 API 錯誤響應結構
type ErrorResponse struct {
	Error   string `json:"error"`             // 錯誤代碼
	Message string `json:"message"`           // 錯誤信息
	Details string `json:"details,omitempty"` // 詳細信息（僅在開發模式顯示）
}

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

// Unwrap 回傳原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Is 以錯誤代碼比對，讓 errors.Is 能對應預定義錯誤
func (e *CustomError) Is(target error) bool {
	var t *CustomError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithErr 複製錯誤並附加原始錯誤
func (e *CustomError) WithErr(err error) *CustomError {
	cp := *e
	cp.Err = err
	return &cp
}

// Response 轉換為 API 錯誤響應
func (e *CustomError) Response(debug bool) ErrorResponse {
	resp := ErrorResponse{
		Error:   e.Code,
		Message: e.Message,
	}
	if debug && e.Err != nil {
		resp.Details = e.Err.Error()
	}
	return resp
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// AsCustomError 取出錯誤鏈中的 CustomError，找不到時包裝為內部錯誤
func AsCustomError(err error) *CustomError {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce
	}
	return ErrInternalError.WithErr(err)
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest   = "INVALID_REQUEST"    // 400
	ErrCodeNoIngredients    = "NO_INGREDIENTS"     // 400
	ErrCodeInvalidDuration  = "INVALID_DURATION"   // 400
	ErrCodeNotFound         = "NOT_FOUND"          // 404
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED" // 405
	ErrCodeBodyTooLarge     = "BODY_TOO_LARGE"     // 413
	ErrCodeRecipeRefused    = "RECIPE_REFUSED"     // 422
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"  // 429

	// 上游錯誤 (502/504)
	ErrCodeAIServiceError    = "AI_SERVICE_ERROR"       // 502
	ErrCodeUnparsable        = "UNPARSABLE_AI_RESPONSE" // 502
	ErrCodeInvalidCalories   = "INVALID_CALORIES"       // 502
	ErrCodeInvalidSchema     = "INVALID_RECIPE_SCHEMA"  // 502
	ErrCodeUnexpectedRefusal = "UNEXPECTED_REFUSAL"     // 502
	ErrCodeGenerationTimeout = "GENERATION_TIMEOUT"     // 504

	// 服務器錯誤 (5xx)
	ErrCodeInternalError      = "INTERNAL_ERROR"      // 500
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest   = NewError(ErrCodeInvalidRequest, "Request body must be a JSON object", http.StatusBadRequest, nil)
	ErrNoIngredients    = NewError(ErrCodeNoIngredients, "No ingredients provided", http.StatusBadRequest, nil)
	ErrInvalidDuration  = NewError(ErrCodeInvalidDuration, "Duration must be one of quick, medium, long", http.StatusBadRequest, nil)
	ErrBodyTooLarge     = NewError(ErrCodeBodyTooLarge, "Request body too large", http.StatusRequestEntityTooLarge, nil)
	ErrTooManyRequests  = NewError(ErrCodeTooManyRequests, "Too many requests, please retry later", http.StatusTooManyRequests, nil)
	ErrNotFound         = NewError(ErrCodeNotFound, "Resource not found", http.StatusNotFound, nil)
	ErrMethodNotAllowed = NewError(ErrCodeMethodNotAllowed, "Method not allowed", http.StatusMethodNotAllowed, nil)

	// 上游錯誤
	ErrAIServiceError    = NewError(ErrCodeAIServiceError, "Generation service failed", http.StatusBadGateway, nil)
	ErrUnparsable        = NewError(ErrCodeUnparsable, "Generation service returned no usable JSON object", http.StatusBadGateway, nil)
	ErrInvalidCalories   = NewError(ErrCodeInvalidCalories, "Generation service returned an invalid calorie estimate", http.StatusBadGateway, nil)
	ErrInvalidSchema     = NewError(ErrCodeInvalidSchema, "Generation service returned a recipe that does not match the schema", http.StatusBadGateway, nil)
	ErrUnexpectedRefusal = NewError(ErrCodeUnexpectedRefusal, "Generation service refused although refusals are disabled", http.StatusBadGateway, nil)
	ErrGenerationTimeout = NewError(ErrCodeGenerationTimeout, "Generation service did not answer in time", http.StatusGatewayTimeout, nil)

	// 服務器錯誤
	ErrInternalError      = NewError(ErrCodeInternalError, "Internal server error", http.StatusInternalServerError, nil)
	ErrServiceUnavailable = NewError(ErrCodeServiceUnavailable, "Service temporarily unavailable", http.StatusServiceUnavailable, nil)
)
