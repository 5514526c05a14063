package charts

import (
	"fmt"
	"math"
	"sort"
	"time"

	"machinery-monitor/internal/metrics"
	"machinery-monitor/internal/models"
)

// EfficiencyRanking горизонтальные столбцы эффективности станков
func (r *Renderer) EfficiencyRanking(effs []models.MachineEfficiency, opts Options) ([]byte, error) {
	if len(effs) == 0 {
		return r.placeholder(KindEfficiencyRanking, opts)
	}

	c := r.newCanvas(8, math.Max(2.2, 0.4*float64(len(effs))+0.9), opts)
	defer metrics.ObserveChart(KindEfficiencyRanking, c.quality.Name, time.Now())

	title := "Machine Efficiency Ranking"
	if opts.Days > 0 {
		title = fmt.Sprintf("Machine Efficiency Ranking (last %d days)", opts.Days)
	}
	c.title(title)

	p := c.plotArea(1.8, 0.55, 0.6, 0.35)

	hi := 100.0
	for _, e := range effs {
		hi = math.Max(hi, e.Efficiency)
	}
	hi = niceMax(hi)

	// вертикальная сетка по X
	c.setFont(8, false)
	c.dc.SetLineWidth(1)
	c.dc.SetDash(4, 3)
	for i := 0; i <= 5; i++ {
		v := hi * float64(i) / 5
		x := p.left + p.w()*v/hi
		c.dc.SetColor(c.theme.Grid)
		c.dc.DrawLine(x, p.top, x, p.bottom)
		c.dc.Stroke()
		c.text(formatTick(v)+"%", x, p.bottom+c.px(0.06), 0.5, 1, c.theme.Text)
	}
	c.dc.SetDash()

	rowH := p.h() / float64(len(effs))
	barH := rowH * 0.7
	for i, e := range effs {
		y := p.top + rowH*float64(i) + (rowH-barH)/2
		w := p.w() * math.Max(0, e.Efficiency) / hi

		c.dc.SetColor(rankingColor(e.Efficiency))
		c.dc.DrawRectangle(p.left, y, w, barH)
		c.dc.Fill()

		c.setFont(8, false)
		c.text(truncate(e.Name, 22), p.left-c.px(0.08), y+barH/2, 1, 0.5, c.theme.Text)

		if c.quality.Labels {
			c.text(fmt.Sprintf("%.1f%%", e.Efficiency), p.left+w+c.px(0.06), y+barH/2, 0, 0.5, c.theme.Text)
		}
	}

	return c.encode()
}

// StatusHeatmap число станков по площадкам (строки) и статусам (столбцы)
func (r *Renderer) StatusHeatmap(cells []models.LocationStatusCount, opts Options) ([]byte, error) {
	col := make(map[models.MachineStatus]int, len(models.MachineStatuses))
	for i, st := range models.MachineStatuses {
		col[st] = i
	}

	grid := make(map[string][]int)
	maxCount := 0
	for _, cell := range cells {
		j, ok := col[cell.Status]
		if !ok {
			continue
		}
		row, ok := grid[cell.Location]
		if !ok {
			row = make([]int, len(models.MachineStatuses))
			grid[cell.Location] = row
		}
		row[j] += cell.Count
		if row[j] > maxCount {
			maxCount = row[j]
		}
	}
	if len(grid) == 0 {
		return r.placeholder(KindStatusHeatmap, opts)
	}

	locations := make([]string, 0, len(grid))
	for loc := range grid {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	c := r.newCanvas(6, math.Max(3, 0.5*float64(len(locations))+1.2), opts)
	defer metrics.ObserveChart(KindStatusHeatmap, c.quality.Name, time.Now())

	c.title("Machine Status by Location")
	p := c.plotArea(1.5, 0.55, 0.3, 0.45)

	cellW := p.w() / float64(len(models.MachineStatuses))
	cellH := p.h() / float64(len(locations))

	for i, loc := range locations {
		y := p.top + cellH*float64(i)
		for j, n := range grid[loc] {
			x := p.left + cellW*float64(j)
			t := 0.0
			if maxCount > 0 {
				t = float64(n) / float64(maxCount)
			}
			c.dc.SetColor(heatColor(t))
			c.dc.DrawRectangle(x, y, cellW, cellH)
			c.dc.FillPreserve()
			c.dc.SetColor(c.theme.Background)
			c.dc.SetLineWidth(1)
			c.dc.Stroke()

			if c.quality.Labels {
				textCol := colorBlack
				if float64(n) >= float64(maxCount)/2 {
					textCol = colorWhite
				}
				c.setFont(10, true)
				c.text(fmt.Sprintf("%d", n), x+cellW/2, y+cellH/2, 0.5, 0.5, textCol)
			}
		}

		c.setFont(8, false)
		c.text(truncate(loc, 18), p.left-c.px(0.08), y+cellH/2, 1, 0.5, c.theme.Text)
	}

	c.setFont(8, false)
	for j, st := range models.MachineStatuses {
		c.text(string(st), p.left+cellW*(float64(j)+0.5), p.bottom+c.px(0.08), 0.5, 1, c.theme.Text)
	}

	return c.encode()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
