package recipe

import (
	"cookit-backend/internal/pkg/common"
)

// Result 食譜管線的最終結果：*Accepted、*Refused 或 *Invalid
type Result interface {
	isResult()
}

// Accepted 通過驗證的食譜
type Accepted struct {
	Title            string
	IngredientsText  string
	Steps            []string
	EstimatedMinutes int
	CaloriesKcal     int
	Cuisine          Cuisine
	Mode             Mode
}

// Suggestion 拒絕時生成服務建議的替代料理
type Suggestion struct {
	SuggestedCuisine string
	Reason           string
}

// Refused 生成服務判定食材與料理風格不相容
type Refused struct {
	Cuisine    Cuisine
	Suggestion Suggestion
}

// Invalid 無法取得可用結果，絕不可當作食譜回傳
type Invalid struct {
	Reason string
	Err    *common.CustomError
}

func (*Accepted) isResult() {}
func (*Refused) isResult() {}
func (*Invalid) isResult() {}

// newInvalid 以預定義錯誤建立 Invalid，cause 為具體原因
func newInvalid(base *common.CustomError, cause error) *Invalid {
	if cause == nil {
		return &Invalid{Reason: base.Message, Err: base}
	}
	return &Invalid{Reason: cause.Error(), Err: base.WithErr(cause)}
}
