package common

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrNoJSONObject 表示文字中找不到 JSON 物件
var ErrNoJSONObject = errors.New("no JSON object found")

// ParseJSON 解析 JSON 字符串到結構體
func ParseJSON(data string, v interface{}) error {
	return decodeJSON(strings.NewReader(data), v)
}

// ParseJSONBytes 解析 JSON 位元組切片到結構體
func ParseJSONBytes(data []byte, v interface{}) error {
	return decodeJSON(bytes.NewReader(data), v)
}

// DecodeJSON 使用統一設定解析 JSON
func DecodeJSON(r io.Reader, v interface{}) error {
	return decodeJSON(r, v)
}

// decodeJSON 數字保留為 json.Number，供熱量等欄位自行判斷型別
func decodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := dec.Decode(v); err != nil {
		return err
	}

	// 確保沒有多餘資料
	for {
		t, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		// 若讀到額外 token，視為錯誤
		if t != nil {
			return fmt.Errorf("unexpected extra JSON data")
		}
	}
}

var unquotedKeyPattern = regexp.MustCompile(`([{\[,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)

// QuoteJSONKeys 將未加雙引號的鍵補上雙引號
func QuoteJSONKeys(raw string) string {
	return unquotedKeyPattern.ReplaceAllString(raw, `$1"$2":`)
}

// StripCodeFence 移除模型常包在外層的 markdown 程式碼區塊標記
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// ExtractJSONObject 從模型輸出中取出單一 JSON 物件。
// 依序嘗試：整段解析、取第一個 { 到最後一個 }、補上未加引號的鍵。
func ExtractJSONObject(text string) (map[string]any, error) {
	text = StripCodeFence(text)
	if text == "" {
		return nil, ErrNoJSONObject
	}

	var obj map[string]any
	if err := ParseJSON(text, &obj); err == nil && obj != nil {
		return obj, nil
	}

	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, ErrNoJSONObject
	}
	candidate := text[start : end+1]

	obj = nil
	if err := ParseJSON(candidate, &obj); err == nil && obj != nil {
		return obj, nil
	}

	obj = nil
	if err := ParseJSON(QuoteJSONKeys(candidate), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSONObject, err)
	}
	if obj == nil {
		return nil, ErrNoJSONObject
	}
	return obj, nil
}

// StringSliceToString 將字符串切片轉換為逗號分隔的字符串
func StringSliceToString(slice []string) string {
	if len(slice) == 0 {
		return ""
	}
	return strings.Join(slice, ", ")
}
