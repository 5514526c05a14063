package charts

import (
	"image/color"
	"strconv"
	"strings"
)

// Theme палитра графика
type Theme struct {
	Name       string
	Background color.NRGBA
	Text       color.NRGBA
	Muted      color.NRGBA
	Line       color.NRGBA
	Accent     color.NRGBA
	Grid       color.NRGBA
}

// DefaultTheme используется для неизвестного имени темы
const DefaultTheme = "belize-light"

// Фиксированные цвета статусов и порогов
var (
	colorGreen       = hexColor("#107e3e")
	colorOrange      = hexColor("#e9730c")
	colorLightOrange = hexColor("#f0ab00")
	colorRed         = hexColor("#bb0000")
	colorGray        = hexColor("#9aa6b2")
	colorWhite       = hexColor("#ffffff")
	colorBlack       = hexColor("#000000")
)

var themes = map[string]Theme{
	"belize-light": {
		Name:       "belize-light",
		Background: hexColor("#ffffff"),
		Text:       hexColor("#1f2d3d"),
		Muted:      hexColor("#6a7d8f"),
		Line:       hexColor("#0a6ed1"),
		Accent:     hexColor("#0a6ed1"),
		Grid:       hexColor("#e6ecf2"),
	},
	"belize-dark": {
		Name:       "belize-dark",
		Background: hexColor("#0f1724"),
		Text:       hexColor("#e6eef8"),
		Muted:      hexColor("#8fa3b8"),
		Line:       hexColor("#2ea3ff"),
		Accent:     hexColor("#2ea3ff"),
		Grid:       hexColor("#1f2b36"),
	},
	"signature": {
		Name:       "signature",
		Background: hexColor("#fff8ef"),
		Text:       hexColor("#2d2a25"),
		Muted:      hexColor("#8a7f6e"),
		Line:       hexColor("#0a6ed1"),
		Accent:     hexColor("#a37d2a"),
		Grid:       hexColor("#d9cdb8"),
	},
}

// ThemeByName возвращает тему; неизвестное имя -> belize-light
func ThemeByName(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[DefaultTheme]
}

// overlayPalette порядок цветов рядов на графике нескольких датчиков
func overlayPalette(t Theme) []color.NRGBA {
	return []color.NRGBA{t.Line, colorOrange, colorGreen, colorRed, colorGray}
}

// statusColor цвет сектора статуса станка
func statusColor(t Theme, status string) color.NRGBA {
	switch status {
	case "running":
		return t.Line
	case "idle":
		return hexColor("#e6a600")
	case "down":
		return hexColor("#b83232")
	case "maintenance":
		return t.Accent
	case "unknown":
		return colorGray
	}
	return t.Muted
}

// gaugeColor <60 красный, 60-85 оранжевый, >=85 зеленый
func gaugeColor(v float64) color.NRGBA {
	switch {
	case v >= 85:
		return colorGreen
	case v >= 60:
		return colorOrange
	}
	return colorRed
}

// rankingColor >=85 зеленый, 70-84 оранжевый, 50-69 светло-оранжевый, <50 красный
func rankingColor(v float64) color.NRGBA {
	switch {
	case v >= 85:
		return colorGreen
	case v >= 70:
		return colorOrange
	case v >= 50:
		return colorLightOrange
	}
	return colorRed
}

// heatColor линейная шкала желтый-оранжевый-красный, t в [0, 1]
func heatColor(t float64) color.NRGBA {
	low, mid, high := hexColor("#ffffcc"), hexColor("#fd8d3c"), hexColor("#bd0026")
	if t <= 0.5 {
		return lerpColor(low, mid, t*2)
	}
	return lerpColor(mid, high, (t-0.5)*2)
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

func withAlpha(c color.NRGBA, alpha float64) color.NRGBA {
	c.A = uint8(alpha * 255)
	return c
}

// hexColor разбирает #rrggbb; некорректная строка дает черный
func hexColor(s string) color.NRGBA {
	s = strings.TrimPrefix(s, "#")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || len(s) != 6 {
		return color.NRGBA{A: 255}
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}
