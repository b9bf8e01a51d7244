package recipe

import (
	"slices"
)

// Duration 烹飪時長區間
type Duration string

// 時長區間
const (
	DurationQuick  Duration = "quick"
	DurationMedium Duration = "medium"
	DurationLong   Duration = "long"
)

type durationSpec struct {
	ceiling   string
	canonical int
	max       int // 0 表示沒有上限
}

var durationTable = map[Duration]durationSpec{
	DurationQuick:  {ceiling: "15 minutes maximum", canonical: 10, max: 15},
	DurationMedium: {ceiling: "30–40 minutes", canonical: 30, max: 40},
	DurationLong:   {ceiling: "60 minutes or more", canonical: 60},
}

// Ceiling 寫入 prompt 的時長上限文字
func (d Duration) Ceiling() string {
	return durationTable[d].ceiling
}

// CanonicalMinutes 缺少 estimatedMinutes 時回填的分鐘數
func (d Duration) CanonicalMinutes() int {
	return durationTable[d].canonical
}

// MaxMinutes 區間上限，0 表示不限
func (d Duration) MaxMinutes() int {
	return durationTable[d].max
}

// Cuisine 支援的料理風格
type Cuisine string

// 支援的料理風格
const (
	CuisineFrench        Cuisine = "french"
	CuisineItalian       Cuisine = "italian"
	CuisineIndian        Cuisine = "indian"
	CuisineJapanese      Cuisine = "japanese"
	CuisineMediterranean Cuisine = "mediterranean"
	CuisineMexican       Cuisine = "mexican"
	CuisineVegetarian    Cuisine = "vegetarian"
)

// SupportedCuisines 隨機選擇時的候選集合，順序固定
var SupportedCuisines = []Cuisine{
	CuisineFrench,
	CuisineItalian,
	CuisineIndian,
	CuisineJapanese,
	CuisineMediterranean,
	CuisineMexican,
	CuisineVegetarian,
}

var cuisineLabels = map[Cuisine]string{
	CuisineFrench:        "French",
	CuisineItalian:       "Italian",
	CuisineIndian:        "Indian",
	CuisineJapanese:      "Japanese",
	CuisineMediterranean: "Mediterranean",
	CuisineMexican:       "Mexican",
	CuisineVegetarian:    "Vegetarian",
}

// Label prompt 中使用的名稱
func (c Cuisine) Label() string {
	return cuisineLabels[c]
}

// Mode 鹹食或甜點
type Mode string

// 料理模式
const (
	ModeSavory  Mode = "savory"
	ModeDessert Mode = "dessert"
)

// Tier 使用者方案
type Tier string

// 方案
const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// ConstraintRecord 正規化後的請求條件。
// 只能由 Normalizer 產生，存在即代表已通過結構驗證，建立後不可變。
type ConstraintRecord struct {
	ingredients string
	extras      []string
	duration    Duration
	cuisine     Cuisine
	mode        Mode
	tier        Tier
}

// Ingredients 主要食材（非空）
func (r *ConstraintRecord) Ingredients() string { return r.ingredients }

// ExtraIngredients 額外食材的副本
func (r *ConstraintRecord) ExtraIngredients() []string { return slices.Clone(r.extras) }

// Duration 時長區間
func (r *ConstraintRecord) Duration() Duration { return r.duration }

// Cuisine 料理風格
func (r *ConstraintRecord) Cuisine() Cuisine { return r.cuisine }

// Mode 料理模式
func (r *ConstraintRecord) Mode() Mode { return r.mode }

// Tier 方案
func (r *ConstraintRecord) Tier() Tier { return r.tier }

// Premium 是否為進階方案
func (r *ConstraintRecord) Premium() bool { return r.tier == TierPremium }
