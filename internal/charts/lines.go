package charts

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"machinery-monitor/internal/metrics"
	"machinery-monitor/internal/models"
)

// EfficiencyTrend линия средней эффективности по дням с целевой линией 80%
func (r *Renderer) EfficiencyTrend(trend []models.DailyEfficiency, opts Options) ([]byte, error) {
	if len(trend) == 0 {
		return r.placeholder(KindEfficiencyTrend, opts)
	}

	c := r.newCanvas(8, 4, opts)
	defer metrics.ObserveChart(KindEfficiencyTrend, c.quality.Name, time.Now())

	title := "Efficiency Trend"
	if opts.Days > 0 {
		title = fmt.Sprintf("Efficiency Trend (last %d days)", opts.Days)
	}
	c.title(title)

	p := c.plotArea(0.7, 0.55, 0.3, 0.55)

	hi := 100.0
	for _, d := range trend {
		hi = math.Max(hi, d.Max)
	}
	hi = niceMax(hi)
	c.yGrid(p, 0, hi, 5, "%")

	xs := make([]float64, len(trend))
	ys := make([]float64, len(trend))
	labels := make([]string, len(trend))
	for i, d := range trend {
		xs[i] = p.xAt(i, len(trend))
		ys[i] = p.yAt(d.Avg, 0, hi)
		labels[i] = shortDate(d.Date)
	}
	c.xLabels(p, labels)

	c.hline(p, p.yAt(EfficiencyTarget, 0, hi), colorGreen, fmt.Sprintf("Target %.0f%%", EfficiencyTarget))
	c.polyline(p, xs, ys, c.theme.Line, 3, 0.2)
	c.markers(xs, ys, c.theme.Line, c.px(0.04))

	if c.quality.Labels {
		c.setFont(7, false)
		for i, d := range trend {
			c.text(fmt.Sprintf("%.1f", d.Avg), xs[i], ys[i]-c.px(0.1), 0.5, 1, c.theme.Text)
		}
	}

	return c.encode()
}

// AlertFrequency линия числа алертов по дням с линией среднего
func (r *Renderer) AlertFrequency(freq []models.AlertFrequency, opts Options) ([]byte, error) {
	if len(freq) == 0 {
		return r.placeholder(KindAlertFrequency, opts)
	}

	c := r.newCanvas(8, 2.4, opts)
	defer metrics.ObserveChart(KindAlertFrequency, c.quality.Name, time.Now())

	title := "Alert Frequency"
	if opts.Days > 0 {
		title = fmt.Sprintf("Alert Frequency (last %d days)", opts.Days)
	}
	c.title(title)

	p := c.plotArea(0.6, 0.5, 0.3, 0.45)

	var sum, maxTotal float64
	for _, f := range freq {
		sum += float64(f.Total)
		maxTotal = math.Max(maxTotal, float64(f.Total))
	}
	mean := sum / float64(len(freq))
	hi := niceMax(maxTotal)
	c.yGrid(p, 0, hi, 4, "")

	xs := make([]float64, len(freq))
	ys := make([]float64, len(freq))
	labels := make([]string, len(freq))
	for i, f := range freq {
		xs[i] = p.xAt(i, len(freq))
		ys[i] = p.yAt(float64(f.Total), 0, hi)
		labels[i] = shortDate(f.Date)
	}
	c.xLabels(p, labels)

	c.hline(p, p.yAt(mean, 0, hi), c.theme.Muted, fmt.Sprintf("Mean %.1f", mean))
	c.polyline(p, xs, ys, c.theme.Line, 2, 0.08)
	c.markers(xs, ys, c.theme.Line, c.px(0.03))

	if c.quality.Labels {
		c.setFont(7, false)
		for i, f := range freq {
			c.text(fmt.Sprintf("%d", f.Total), xs[i], ys[i]-c.px(0.08), 0.5, 1, c.theme.Text)
		}
	}

	return c.encode()
}

// SensorOverlay ряды до MaxOverlaySeries датчиков на общей оси времени
func (r *Renderer) SensorOverlay(series []models.SensorSeries, opts Options) ([]byte, error) {
	if len(series) > MaxOverlaySeries {
		series = series[:MaxOverlaySeries]
	}

	type parsed struct {
		times  []time.Time
		values []float64
	}

	var (
		data       = make([]parsed, len(series))
		tMin, tMax time.Time
		lo, hi     = math.Inf(1), math.Inf(-1)
		points     int
	)
	for i, s := range series {
		for _, pt := range s.Points {
			ts, err := time.Parse(time.RFC3339, pt.Timestamp)
			if err != nil {
				return nil, fmt.Errorf("sensor %d: invalid timestamp %q: %w", s.SensorID, pt.Timestamp, err)
			}
			data[i].times = append(data[i].times, ts)
			data[i].values = append(data[i].values, pt.Value)

			if points == 0 || ts.Before(tMin) {
				tMin = ts
			}
			if points == 0 || ts.After(tMax) {
				tMax = ts
			}
			lo = math.Min(lo, pt.Value)
			hi = math.Max(hi, pt.Value)
			points++
		}
	}
	if points == 0 {
		return r.placeholder(KindSensorOverlay, opts)
	}

	c := r.newCanvas(8, 3, opts)
	defer metrics.ObserveChart(KindSensorOverlay, c.quality.Name, time.Now())

	c.title("Sensor Readings")
	p := c.plotArea(0.7, 0.5, 0.3, 0.45)

	if lo == hi {
		lo, hi = lo-1, hi+1
	}
	pad := (hi - lo) * 0.1
	lo, hi = lo-pad, hi+pad
	c.yGrid(p, lo, hi, 4, "")

	span := tMax.Sub(tMin).Seconds()
	xOf := func(ts time.Time) float64 {
		if span <= 0 {
			return p.left + p.w()/2
		}
		return p.left + p.w()*ts.Sub(tMin).Seconds()/span
	}

	c.setFont(8, false)
	c.text(tMin.UTC().Format("01-02 15:04"), p.left, p.bottom+c.px(0.08), 0, 1, c.theme.Text)
	if span > 0 {
		c.text(tMax.UTC().Format("01-02 15:04"), p.right, p.bottom+c.px(0.08), 1, 1, c.theme.Text)
	}

	palette := overlayPalette(c.theme)
	names := make([]string, 0, len(series))
	colors := make([]color.NRGBA, 0, len(series))
	for i, s := range series {
		col := palette[i%len(palette)]
		xs := make([]float64, len(data[i].times))
		ys := make([]float64, len(data[i].values))
		for j := range xs {
			xs[j] = xOf(data[i].times[j])
			ys[j] = p.yAt(data[i].values[j], lo, hi)
		}
		c.polyline(p, xs, ys, col, 1.5, 0)
		if len(xs) == 1 {
			c.markers(xs, ys, col, c.px(0.03))
		}

		name := s.Name
		if s.Unit != "" {
			name += " (" + s.Unit + ")"
		}
		names = append(names, name)
		colors = append(colors, col)
	}
	c.legend(p, names, colors)

	return c.encode()
}
