// Package charts отрисовывает PNG-графики по уже отфильтрованным агрегатам.
// Рендерер не обращается к БД и файловой системе.
package charts

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"machinery-monitor/internal/metrics"
)

// Типы графиков, используются в метриках и ключах кэша
const (
	KindEfficiencyTrend   = "efficiency-trend"
	KindStatusPie         = "status"
	KindAlertFrequency    = "alerts"
	KindOEEGauge          = "oee"
	KindSensorOverlay     = "sensors"
	KindStatusHeatmap     = "heatmap"
	KindEfficiencyRanking = "efficiency-ranking"
	KindPlaceholder       = "placeholder"

	// MaxOverlaySeries максимум рядов на графике датчиков
	MaxOverlaySeries = 5
	// EfficiencyTarget целевая линия тренда эффективности, %
	EfficiencyTarget = 80.0

	noDataText = "No data available"
)

// Options параметры одного графика
type Options struct {
	Quality string
	Theme   string
	// Days окно в днях, только для заголовка
	Days int
}

// Renderer рисует графики. Безопасен для конкурентного использования:
// шрифтовые face создаются на каждый холст.
type Renderer struct {
	regular        *truetype.Font
	bold           *truetype.Font
	defaultTheme   string
	defaultQuality string
}

// NewRenderer загружает шрифты; тема и качество по умолчанию берутся
// для Options с пустыми полями
func NewRenderer(defaultTheme, defaultQuality string) (*Renderer, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}

	return &Renderer{
		regular:        regular,
		bold:           bold,
		defaultTheme:   defaultTheme,
		defaultQuality: defaultQuality,
	}, nil
}

func (r *Renderer) resolve(opts Options) (Theme, Quality) {
	theme, quality := opts.Theme, opts.Quality
	if theme == "" {
		theme = r.defaultTheme
	}
	if quality == "" {
		quality = r.defaultQuality
	}
	return ThemeByName(theme), QualityByName(quality)
}

// canvas холст с размерами в дюймах, пересчитанными по DPI
type canvas struct {
	dc      *gg.Context
	theme   Theme
	quality Quality
	r       *Renderer
}

func (r *Renderer) newCanvas(widthIn, heightIn float64, opts Options) *canvas {
	theme, quality := r.resolve(opts)

	w := int(math.Round(widthIn * quality.DPI))
	h := int(math.Round(heightIn * quality.DPI))
	dc := gg.NewContext(w, h)
	dc.SetColor(theme.Background)
	dc.Clear()

	return &canvas{dc: dc, theme: theme, quality: quality, r: r}
}

// px переводит дюймы в пиксели
func (c *canvas) px(in float64) float64 {
	return in * c.quality.DPI
}

func (c *canvas) width() float64  { return float64(c.dc.Width()) }
func (c *canvas) height() float64 { return float64(c.dc.Height()) }

// setFont размер в пунктах; пиксельный размер зависит от DPI уровня качества
func (c *canvas) setFont(points float64, bold bool) {
	f := c.r.regular
	if bold {
		f = c.r.bold
	}
	c.dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: points, DPI: c.quality.DPI}))
}

func (c *canvas) text(s string, x, y, ax, ay float64, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawStringAnchored(s, x, y, ax, ay)
}

func (c *canvas) title(s string) {
	c.setFont(12, true)
	c.text(s, c.width()/2, c.px(0.25), 0.5, 0.5, c.theme.Text)
}

func (c *canvas) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Placeholder изображение "No data available"
func (r *Renderer) Placeholder(opts Options) ([]byte, error) {
	return r.placeholder(KindPlaceholder, opts)
}

func (r *Renderer) placeholder(kind string, opts Options) ([]byte, error) {
	c := r.newCanvas(6, 3, opts)
	defer metrics.ObserveChart(kind, c.quality.Name, time.Now())

	c.setFont(12, false)
	c.text(noDataText, c.width()/2, c.height()/2, 0.5, 0.5, c.theme.Muted)
	return c.encode()
}

// plotArea прямоугольник области построения в пикселях
type plotArea struct {
	left, top, right, bottom float64
}

func (c *canvas) plotArea(leftIn, topIn, rightIn, bottomIn float64) plotArea {
	return plotArea{
		left:   c.px(leftIn),
		top:    c.px(topIn),
		right:  c.width() - c.px(rightIn),
		bottom: c.height() - c.px(bottomIn),
	}
}

func (p plotArea) w() float64 { return p.right - p.left }
func (p plotArea) h() float64 { return p.bottom - p.top }

// xAt позиция i-й категории из n, равномерно по ширине
func (p plotArea) xAt(i, n int) float64 {
	if n <= 1 {
		return p.left + p.w()/2
	}
	return p.left + p.w()*float64(i)/float64(n-1)
}

// yAt значение v в диапазоне [lo, hi]
func (p plotArea) yAt(v, lo, hi float64) float64 {
	if hi <= lo {
		return p.bottom
	}
	return p.bottom - p.h()*(v-lo)/(hi-lo)
}

// yGrid пунктирная сетка с подписями оси Y
func (c *canvas) yGrid(p plotArea, lo, hi float64, ticks int, suffix string) {
	c.setFont(8, false)
	c.dc.SetLineWidth(1)
	c.dc.SetDash(4, 3)
	for i := 0; i <= ticks; i++ {
		v := lo + (hi-lo)*float64(i)/float64(ticks)
		y := p.yAt(v, lo, hi)
		c.dc.SetColor(c.theme.Grid)
		c.dc.DrawLine(p.left, y, p.right, y)
		c.dc.Stroke()
		c.text(formatTick(v)+suffix, p.left-c.px(0.08), y, 1, 0.5, c.theme.Text)
	}
	c.dc.SetDash()

	c.dc.SetColor(c.theme.Grid)
	c.dc.DrawLine(p.left, p.bottom, p.right, p.bottom)
	c.dc.DrawLine(p.left, p.top, p.left, p.bottom)
	c.dc.Stroke()
}

// xLabels подписи категорий; при большом числе выводится каждая k-я
func (c *canvas) xLabels(p plotArea, labels []string) {
	c.setFont(8, false)
	step := 1
	if maxLabels := int(p.w() / c.px(0.7)); maxLabels > 0 && len(labels) > maxLabels {
		step = (len(labels) + maxLabels - 1) / maxLabels
	}
	for i := 0; i < len(labels); i += step {
		c.text(labels[i], p.xAt(i, len(labels)), p.bottom+c.px(0.08), 0.5, 1, c.theme.Text)
	}
}

// polyline линия с опциональной заливкой до нижней границы
func (c *canvas) polyline(p plotArea, xs, ys []float64, col color.NRGBA, width, fillAlpha float64) {
	if len(xs) == 0 {
		return
	}
	if fillAlpha > 0 && len(xs) > 1 {
		c.dc.NewSubPath()
		c.dc.MoveTo(xs[0], p.bottom)
		for i := range xs {
			c.dc.LineTo(xs[i], ys[i])
		}
		c.dc.LineTo(xs[len(xs)-1], p.bottom)
		c.dc.ClosePath()
		c.dc.SetColor(withAlpha(col, fillAlpha))
		c.dc.Fill()
	}

	c.dc.SetColor(col)
	c.dc.SetLineWidth(width)
	c.dc.NewSubPath()
	c.dc.MoveTo(xs[0], ys[0])
	for i := 1; i < len(xs); i++ {
		c.dc.LineTo(xs[i], ys[i])
	}
	c.dc.Stroke()
}

func (c *canvas) markers(xs, ys []float64, col color.NRGBA, radius float64) {
	for i := range xs {
		c.dc.DrawCircle(xs[i], ys[i], radius)
		c.dc.SetColor(c.theme.Background)
		c.dc.FillPreserve()
		c.dc.SetColor(col)
		c.dc.SetLineWidth(2)
		c.dc.Stroke()
	}
}

// hline горизонтальная пунктирная линия с подписью справа
func (c *canvas) hline(p plotArea, y float64, col color.NRGBA, label string) {
	c.dc.SetColor(col)
	c.dc.SetLineWidth(1.5)
	c.dc.SetDash(6, 4)
	c.dc.DrawLine(p.left, y, p.right, y)
	c.dc.Stroke()
	c.dc.SetDash()

	if c.quality.Labels && label != "" {
		c.setFont(8, false)
		c.text(label, p.right, y-c.px(0.05), 1, 0, col)
	}
}

// legend подписи рядов в правом верхнем углу области
func (c *canvas) legend(p plotArea, names []string, colors []color.NRGBA) {
	if !c.quality.Labels || len(names) == 0 {
		return
	}
	c.setFont(8, false)
	y := p.top + c.px(0.1)
	for i, name := range names {
		x := p.right - c.px(1.6)
		c.dc.SetColor(colors[i])
		c.dc.DrawRectangle(x, y-c.px(0.04), c.px(0.15), c.px(0.08))
		c.dc.Fill()
		c.text(name, x+c.px(0.22), y, 0, 0.5, c.theme.Text)
		y += c.px(0.18)
	}
}

// niceMax верхняя граница оси, кратная шагу
func niceMax(v float64) float64 {
	if v <= 0 {
		return 1
	}
	mag := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if v <= m*mag {
			return m * mag
		}
	}
	return 10 * mag
}

func formatTick(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

// shortDate YYYY-MM-DD -> MM-DD
func shortDate(d string) string {
	if len(d) == len("2006-01-02") {
		return d[5:]
	}
	return d
}
