package recipe

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// 別名表的鍵皆為 foldLabel 之後的形式（無重音、小寫、單一空白）

var durationAliases = map[string]Duration{
	"quick":    DurationQuick,
	"rapide":   DurationQuick,
	"fast":     DurationQuick,
	"short":    DurationQuick,
	"court":    DurationQuick,
	"courte":   DurationQuick,
	"express":  DurationQuick,
	"medium":   DurationMedium,
	"moyen":    DurationMedium,
	"moyenne":  DurationMedium,
	"normal":   DurationMedium,
	"standard": DurationMedium,
	"moderate": DurationMedium,
	"long":     DurationLong,
	"longue":   DurationLong,
	"slow":     DurationLong,
	"lent":     DurationLong,
	"lente":    DurationLong,
}

var cuisineAliases = map[string]Cuisine{
	"french":          CuisineFrench,
	"francaise":       CuisineFrench,
	"francais":        CuisineFrench,
	"france":          CuisineFrench,
	"italian":         CuisineItalian,
	"italienne":       CuisineItalian,
	"italien":         CuisineItalian,
	"italie":          CuisineItalian,
	"italiana":        CuisineItalian,
	"indian":          CuisineIndian,
	"indienne":        CuisineIndian,
	"indien":          CuisineIndian,
	"inde":            CuisineIndian,
	"japanese":        CuisineJapanese,
	"japonaise":       CuisineJapanese,
	"japonais":        CuisineJapanese,
	"japon":           CuisineJapanese,
	"mediterranean":   CuisineMediterranean,
	"mediterraneenne": CuisineMediterranean,
	"mediterraneen":   CuisineMediterranean,
	"mediterranee":    CuisineMediterranean,
	"mexican":         CuisineMexican,
	"mexicaine":       CuisineMexican,
	"mexicain":        CuisineMexican,
	"mexique":         CuisineMexican,
	"mexicana":        CuisineMexican,
	"vegetarian":      CuisineVegetarian,
	"vegetarienne":    CuisineVegetarian,
	"vegetarien":      CuisineVegetarian,
	"veggie":          CuisineVegetarian,
	"vege":            CuisineVegetarian,
}

var randomCuisineTokens = map[string]struct{}{
	"random":      {},
	"aleatoire":   {},
	"surprise":    {},
	"any":         {},
	"hasard":      {},
	"au hasard":   {},
	"peu importe": {},
	"whatever":    {},
}

var dessertTokens = map[string]struct{}{
	"dessert":  {},
	"desserts": {},
	"sucre":    {},
	"sweet":    {},
}

// foldLabel 去除重音、case fold 並合併空白，讓 "Française" 與 "francaise" 得到相同結果
func foldLabel(s string) string {
	// transform.Chain 與 cases.Caser 都有狀態，每次呼叫各自建立
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	folded := cases.Fold().String(stripped)
	return strings.Join(strings.Fields(folded), " ")
}

func lookupDuration(label string) (Duration, bool) {
	d, ok := durationAliases[foldLabel(label)]
	return d, ok
}

// lookupCuisine 回傳別名對應的料理風格；random 表示呼叫端要求隨機
func lookupCuisine(label string) (cuisine Cuisine, random bool, ok bool) {
	key := foldLabel(label)
	if _, isRandom := randomCuisineTokens[key]; isRandom {
		return "", true, true
	}
	c, found := cuisineAliases[key]
	return c, false, found
}

func isDessert(label string) bool {
	_, ok := dessertTokens[foldLabel(label)]
	return ok
}
