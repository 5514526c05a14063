package charts

import (
	"fmt"
	"math"
	"sort"
	"time"

	"machinery-monitor/internal/metrics"
	"machinery-monitor/internal/models"
)

// StatusPie распределение станков по статусам; наибольший сектор выдвинут
func (r *Renderer) StatusPie(counts map[string]int, opts Options) ([]byte, error) {
	labels, values, total := orderedStatuses(counts)
	if total == 0 {
		return r.placeholder(KindStatusPie, opts)
	}

	c := r.newCanvas(5, 5, opts)
	defer metrics.ObserveChart(KindStatusPie, c.quality.Name, time.Now())

	c.title("Machine Status Distribution")

	maxV := 0
	for _, v := range values {
		if v > maxV {
			maxV = v
		}
	}

	cx, cy := c.width()/2, c.height()/2+c.px(0.15)
	radius := math.Min(c.width(), c.height()) * 0.32
	if c.quality.Labels {
		cx -= c.px(0.4)
	}

	angle := -math.Pi / 2
	for i, v := range values {
		if v == 0 {
			continue
		}
		sweep := 2 * math.Pi * float64(v) / float64(total)
		mid := angle + sweep/2

		ox, oy := cx, cy
		if v == maxV {
			ox += math.Cos(mid) * radius * 0.05
			oy += math.Sin(mid) * radius * 0.05
		}

		col := statusColor(c.theme, labels[i])
		c.dc.NewSubPath()
		c.dc.MoveTo(ox, oy)
		c.dc.DrawArc(ox, oy, radius, angle, angle+sweep)
		c.dc.ClosePath()
		c.dc.SetColor(col)
		c.dc.FillPreserve()
		c.dc.SetColor(c.theme.Background)
		c.dc.SetLineWidth(2)
		c.dc.Stroke()

		if c.quality.Labels {
			c.setFont(9, true)
			pct := 100 * float64(v) / float64(total)
			c.text(fmt.Sprintf("%.1f%%", pct),
				ox+math.Cos(mid)*radius*0.65, oy+math.Sin(mid)*radius*0.65, 0.5, 0.5, colorWhite)
		}
		angle += sweep
	}

	if c.quality.Labels {
		c.setFont(9, false)
		x := cx + radius + c.px(0.3)
		y := cy - float64(len(labels))*c.px(0.12)
		for i, label := range labels {
			c.dc.SetColor(statusColor(c.theme, label))
			c.dc.DrawRectangle(x, y-c.px(0.05), c.px(0.1), c.px(0.1))
			c.dc.Fill()
			c.text(fmt.Sprintf("%s (%d)", label, values[i]), x+c.px(0.16), y, 0, 0.5, c.theme.Text)
			y += c.px(0.24)
		}
	}

	return c.encode()
}

// orderedStatuses фиксированный порядок: известные статусы, unknown, остальные по алфавиту
func orderedStatuses(counts map[string]int) ([]string, []int, int) {
	labels := make([]string, 0, len(counts))
	seen := make(map[string]bool, len(counts))
	for _, st := range models.MachineStatuses {
		if _, ok := counts[string(st)]; ok {
			labels = append(labels, string(st))
			seen[string(st)] = true
		}
	}

	rest := make([]string, 0)
	for st := range counts {
		if !seen[st] && st != string(models.StatusUnknown) {
			rest = append(rest, st)
		}
	}
	sort.Strings(rest)
	if _, ok := counts[string(models.StatusUnknown)]; ok {
		labels = append(labels, string(models.StatusUnknown))
	}
	labels = append(labels, rest...)

	values := make([]int, len(labels))
	total := 0
	for i, st := range labels {
		if n := counts[st]; n > 0 {
			values[i] = n
			total += n
		}
	}
	return labels, values, total
}

// OEEGauge полукруглая шкала OEE 0-100
func (r *Renderer) OEEGauge(oee float64, opts Options) ([]byte, error) {
	c := r.newCanvas(4, 4, opts)
	defer metrics.ObserveChart(KindOEEGauge, c.quality.Name, time.Now())

	v := math.Max(0, math.Min(100, oee))
	col := gaugeColor(v)

	cx, cy := c.width()/2, c.height()*0.62
	radius := c.width() * 0.38

	// фон шкалы
	c.dc.NewSubPath()
	c.dc.MoveTo(cx, cy)
	c.dc.DrawArc(cx, cy, radius, math.Pi, 2*math.Pi)
	c.dc.ClosePath()
	c.dc.SetColor(withAlpha(col, 0.2))
	c.dc.Fill()

	c.dc.SetColor(col)
	c.dc.SetLineWidth(c.px(0.03))
	c.dc.NewSubPath()
	c.dc.DrawArc(cx, cy, radius, math.Pi, 2*math.Pi)
	c.dc.Stroke()

	if v > 0 {
		c.dc.SetLineWidth(c.px(0.08))
		c.dc.NewSubPath()
		c.dc.DrawArc(cx, cy, radius, math.Pi, math.Pi+math.Pi*v/100)
		c.dc.Stroke()
	}

	c.setFont(24, true)
	c.text(fmt.Sprintf("%.1f%%", v), cx, cy-c.px(0.3), 0.5, 0.5, c.theme.Text)
	c.setFont(12, false)
	c.text("OEE", cx, cy+c.px(0.25), 0.5, 0.5, c.theme.Muted)

	if c.quality.Labels {
		c.setFont(8, false)
		c.text("0", cx-radius, cy+c.px(0.12), 0.5, 0.5, c.theme.Muted)
		c.text("100", cx+radius, cy+c.px(0.12), 0.5, 0.5, c.theme.Muted)
	}

	return c.encode()
}
