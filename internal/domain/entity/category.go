package entity

import "strings"

// Category категория отходов
type Category string

const (
	CategoryOrganic    Category = "organico"   // органические отходы
	CategoryRecyclable Category = "reciclable" // перерабатываемые
	CategoryInorganic  Category = "inorganico" // неперерабатываемые
	CategoryNone       Category = "ninguno"    // классификация не получена
)

// CanonicalCategories фиксированный набор категорий, с которыми работает система.
var CanonicalCategories = []Category{CategoryOrganic, CategoryRecyclable, CategoryInorganic}

// IsCanonical сообщает, входит ли категория в закрытый набор.
func (c Category) IsCanonical() bool {
	switch c {
	case CategoryOrganic, CategoryRecyclable, CategoryInorganic:
		return true
	}
	return false
}

// OrDefault возвращает саму категорию, если она каноническая, иначе inorganico.
func (c Category) OrDefault() Category {
	if c.IsCanonical() {
		return c
	}
	return CategoryInorganic
}

var labelPrefixes = []string{
	"class:", "label:", "category:",
	"clase:", "etiqueta:", "categoria:", "categoría:",
}

var categorySynonyms = map[string]Category{
	"organico":    CategoryOrganic,
	"orgánico":    CategoryOrganic,
	"organicos":   CategoryOrganic,
	"orgánicos":   CategoryOrganic,
	"organica":    CategoryOrganic,
	"orgánica":    CategoryOrganic,
	"organicas":   CategoryOrganic,
	"orgánicas":   CategoryOrganic,
	"organic":     CategoryOrganic,
	"organics":    CategoryOrganic,
	"reciclable":  CategoryRecyclable,
	"reciclables": CategoryRecyclable,
	"recyclable":  CategoryRecyclable,
	"recyclables": CategoryRecyclable,
	"inorganico":  CategoryInorganic,
	"inorgánico":  CategoryInorganic,
	"inorganicos": CategoryInorganic,
	"inorgánicos": CategoryInorganic,
	"inorganica":  CategoryInorganic,
	"inorgánica":  CategoryInorganic,
	"inorganicas": CategoryInorganic,
	"inorgánicas": CategoryInorganic,
	"inorganic":   CategoryInorganic,
	"inorganics":  CategoryInorganic,
	"ninguno":     CategoryNone,
}

// MapCategory приводит метку модели к категории.
// Неизвестная непустая метка возвращается как есть (после очистки).
func MapCategory(label string) Category {
	s := strings.ToLower(strings.TrimSpace(label))
	for stripped := true; stripped; {
		stripped = false
		for _, p := range labelPrefixes {
			if strings.HasPrefix(s, p) {
				s = strings.TrimSpace(strings.TrimPrefix(s, p))
				stripped = true
			}
		}
	}

	if c, ok := categorySynonyms[s]; ok {
		return c
	}
	return Category(s)
}

// ActuationSignal число миганий для контроллера тачо
type ActuationSignal int

const (
	SignalNone       ActuationSignal = 0
	SignalOrganic    ActuationSignal = 1
	SignalInorganic  ActuationSignal = 2
	SignalRecyclable ActuationSignal = 3
)

// BlinkCount переводит категорию в сигнал. Для всего неизвестного — 0.
func BlinkCount(c Category) ActuationSignal {
	switch c {
	case CategoryOrganic:
		return SignalOrganic
	case CategoryInorganic:
		return SignalInorganic
	case CategoryRecyclable:
		return SignalRecyclable
	default:
		return SignalNone
	}
}

// CategoryInfo отображаемые данные категории
type CategoryInfo struct {
	Label       string `json:"label"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	BgColor     string `json:"bgColor"`
	Description string `json:"description"`
	Examples    string `json:"examples"`
}

var categoryInfo = map[Category]CategoryInfo{
	CategoryOrganic: {
		Label:       "ORGÁNICO",
		Icon:        "🌱",
		Color:       "#10b981",
		BgColor:     "#d1fae5",
		Description: "Residuo orgánico - Depositar en contenedor verde",
		Examples:    "Restos de comida, cáscaras, residuos vegetales",
	},
	CategoryRecyclable: {
		Label:       "RECICLABLE",
		Icon:        "♻️",
		Color:       "#3b82f6",
		BgColor:     "#dbeafe",
		Description: "Material reciclable - Depositar en contenedor azul",
		Examples:    "Plástico, papel, cartón, vidrio, metal",
	},
	CategoryInorganic: {
		Label:       "INORGÁNICO",
		Icon:        "🗑️",
		Color:       "#6b7280",
		BgColor:     "#f3f4f6",
		Description: "Residuo no reciclable - Depositar en contenedor gris",
		Examples:    "Residuos no reciclables, desechos diversos",
	},
}

// InfoFor возвращает копию метаданных категории; неканонические получают данные inorganico.
func InfoFor(c Category) CategoryInfo {
	return categoryInfo[c.OrDefault()]
}
