package charts

// Quality уровень качества отрисовки
type Quality struct {
	Name string
	DPI  float64
	// Labels подписи значений и легенды
	Labels bool
}

// DefaultQuality используется для неизвестного уровня качества
const DefaultQuality = "normal"

var qualities = map[string]Quality{
	"fast":   {Name: "fast", DPI: 80, Labels: false},
	"normal": {Name: "normal", DPI: 100, Labels: true},
	"high":   {Name: "high", DPI: 150, Labels: true},
}

// QualityByName возвращает уровень качества; неизвестное имя -> normal
func QualityByName(name string) Quality {
	if q, ok := qualities[name]; ok {
		return q
	}
	return qualities[DefaultQuality]
}
