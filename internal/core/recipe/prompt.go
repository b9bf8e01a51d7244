package recipe

import (
	"fmt"
	"strings"
)

// AllowListPolicy 食材白名單範圍
type AllowListPolicy string

// 白名單策略
const (
	// AllowListClosed 只允許列出的食材與基本調味
	AllowListClosed AllowListPolicy = "closed"
	// AllowListAugmented 另外允許該料理風格的經典基底
	AllowListAugmented AllowListPolicy = "augmented"
)

// RefusalPolicy 是否允許生成服務拒絕
type RefusalPolicy string

// 拒絕策略
const (
	RefusalAllow  RefusalPolicy = "allow"
	RefusalForbid RefusalPolicy = "forbid"
)

var pantryBasics = []string{
	"salt",
	"black pepper",
	"dry ground spices",
	"cooking fat (oil or butter)",
	"water",
}

var technicalBasics = []string{
	"vinegar",
	"lemon juice",
	"cornstarch",
	"baking powder",
}

var cuisineStaples = map[Cuisine][]string{
	CuisineFrench:        {"shallot", "garlic", "butter", "fresh herbs (thyme, parsley, bay leaf)", "mustard", "white wine"},
	CuisineItalian:       {"olive oil", "garlic", "onion", "basil", "oregano", "parmesan", "tomato passata"},
	CuisineIndian:        {"onion", "garlic", "ginger", "garam masala", "turmeric", "cumin", "coriander", "chili", "ghee"},
	CuisineJapanese:      {"soy sauce", "mirin", "sake", "dashi", "rice vinegar", "sesame", "spring onion"},
	CuisineMediterranean: {"olive oil", "garlic", "lemon", "oregano", "parsley", "olives"},
	CuisineMexican:       {"onion", "garlic", "lime", "chili", "cumin", "coriander leaves", "tomato"},
	CuisineVegetarian:    {"onion", "garlic", "fresh herbs", "vegetable stock"},
}

// Compiler 將 ConstraintRecord 轉為生成指令。相同輸入永遠得到相同輸出。
type Compiler struct {
	allowList AllowListPolicy
	refusal   RefusalPolicy
}

// NewCompiler 創建 Compiler，策略在部署時固定
func NewCompiler(allowList AllowListPolicy, refusal RefusalPolicy) (*Compiler, error) {
	switch allowList {
	case AllowListClosed, AllowListAugmented:
	default:
		return nil, fmt.Errorf("unknown allow-list policy %q", allowList)
	}
	switch refusal {
	case RefusalAllow, RefusalForbid:
	default:
		return nil, fmt.Errorf("unknown refusal policy %q", refusal)
	}
	return &Compiler{allowList: allowList, refusal: refusal}, nil
}

// Compile 產生 prompt；addendum 非空時原樣放在最前面
func (c *Compiler) Compile(rec *ConstraintRecord, addendum string) string {
	var b strings.Builder
	cuisine := rec.Cuisine().Label()

	if addendum != "" {
		b.WriteString(addendum)
		b.WriteString("\n\n")
	}

	b.WriteString("TECHNICAL CONTEXT (NOT NEGOTIABLE):\n")
	b.WriteString("The main ingredients below have already been validated by the backend. ")
	b.WriteString("Do not claim that no ingredients were given, do not ask for more ingredients and do not question them.\n\n")

	fmt.Fprintf(&b, "You are a professional chef and a strict expert in %s cuisine.\n", cuisine)
	if rec.Mode() == ModeDessert {
		b.WriteString("The user wants a DESSERT.\n")
	} else {
		b.WriteString("The user wants a SAVORY dish.\n")
	}
	b.WriteString("\n")

	b.WriteString("MAIN INGREDIENTS: ")
	b.WriteString(rec.Ingredients())
	b.WriteString("\n")
	if extras := rec.ExtraIngredients(); len(extras) > 0 {
		b.WriteString("EXTRA INGREDIENTS: ")
		b.WriteString(strings.Join(extras, ", "))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("ABSOLUTE RULES:\n")
	c.writeAllowList(&b, rec)
	fmt.Fprintf(&b, "- The recipe MUST be authentically %s.\n", cuisine)
	fmt.Fprintf(&b, "- Total time (preparation and cooking) MUST be %s. NEVER exceed this duration.\n", rec.Duration().Ceiling())
	b.WriteString("- caloriesKcal is the total for the whole recipe, estimated from the actual ingredients and realistic portions ")
	b.WriteString("(aim for a value within ±20% of the real figure). Never use a fixed or placeholder number.\n")
	b.WriteString("- estimatedMinutes is an integer consistent with the duration above.\n\n")

	c.writeRefusalRules(&b, cuisine)
	c.writeSchema(&b, rec.Cuisine())

	return b.String()
}

func (c *Compiler) writeAllowList(b *strings.Builder, rec *ConstraintRecord) {
	b.WriteString("- The main and extra ingredients form a CLOSED allow-list. ")
	b.WriteString("Do not introduce any other ingredient, ingredient category (meat, fish, seafood, dairy, eggs, fruit, vegetables) ")
	b.WriteString("or item that changes the technique.\n")
	fmt.Fprintf(b, "- Always allowed on top of the list: %s.\n", strings.Join(pantryBasics, ", "))
	fmt.Fprintf(b, "- Also allowed as technical liquids or binders: %s.\n", strings.Join(technicalBasics, ", "))
	if rec.Mode() == ModeDessert {
		b.WriteString("- Because this is a dessert, flour and sugar may be used freely.\n")
	}
	if c.allowList == AllowListAugmented {
		if staples := cuisineStaples[rec.Cuisine()]; len(staples) > 0 {
			fmt.Fprintf(b, "- You may also add the classic staples of %s cuisine: %s.\n",
				rec.Cuisine().Label(), strings.Join(staples, ", "))
		}
	}
}

func (c *Compiler) writeRefusalRules(b *strings.Builder, cuisine string) {
	if c.refusal == RefusalForbid {
		b.WriteString("REFUSAL IS NOT ALLOWED:\n")
		fmt.Fprintf(b, "Always produce a %s recipe with the allowed ingredients. status MUST be \"ok\".\n\n", cuisine)
		return
	}

	b.WriteString("REFUSAL (EXTREMELY RARE):\n")
	fmt.Fprintf(b, "Refuse ONLY if the main ingredients are fundamentally incompatible with %s cuisine, ", cuisine)
	b.WriteString("even after adding every classic staple of that cuisine.\n")
	b.WriteString("A lack of spices or aromatics is NEVER a reason to refuse.\n")
	b.WriteString("Legitimate refusals: Japanese cuisine with chocolate and cheese; Italian cuisine with seaweed and wasabi.\n")
	b.WriteString("Must be accepted: rice and chicken in Indian cuisine; rice alone in Indian cuisine.\n")
	b.WriteString("When refusing, suggest the cuisine that fits the ingredients best and explain why in one sentence.\n\n")
}

func (c *Compiler) writeSchema(b *strings.Builder, cuisine Cuisine) {
	b.WriteString("RESPONSE FORMAT: reply with exactly ONE JSON object and no text before or after it.\n\n")
	if c.refusal == RefusalAllow {
		b.WriteString("IF REFUSED:\n")
		fmt.Fprintf(b, `{
  "status": "refused",
  "title": null,
  "ingredients": null,
  "steps": [],
  "caloriesKcal": null,
  "estimatedMinutes": null,
  "cuisine": "%s",
  "suggestion": {
    "suggestedCuisine": "string",
    "reason": "string"
  }
}
`, cuisine)
		b.WriteString("\nIF OK:\n")
	}
	fmt.Fprintf(b, `{
  "status": "ok",
  "title": "string",
  "ingredients": "string",
  "steps": ["step 1", "step 2", "step 3"],
  "caloriesKcal": number,
  "estimatedMinutes": number,
  "cuisine": "%s",
  "suggestion": null
}
`, cuisine)
}
