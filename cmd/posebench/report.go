package main

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// writeReport renders the sweep results into the output directory: one
// PNG per error metric with a line per yaw angle, plus an HTML page
// with the per-distance aggregates.
func writeReport(dir, dictName string, trials []trial, stats []distanceStat) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	posFile := filepath.Join(dir, "position_error.png")
	if err := writeErrorPlot(posFile, "Position Error vs Distance", "Error (m)", trials,
		func(tr trial) float64 { return tr.PosErr }); err != nil {
		return fmt.Errorf("save position plot: %w", err)
	}
	rotFile := filepath.Join(dir, "rotation_error.png")
	if err := writeErrorPlot(rotFile, "Rotation Error vs Distance", "Error (rad)", trials,
		func(tr trial) float64 { return tr.RotErr }); err != nil {
		return fmt.Errorf("save rotation plot: %w", err)
	}
	return writeHTMLReport(filepath.Join(dir, "report.html"), dictName, stats)
}

// writeErrorPlot draws one line per yaw angle over distance, detected
// trials only.
func writeErrorPlot(path, title, yLabel string, trials []trial, value func(trial) float64) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Distance (m)"
	p.Y.Label.Text = yLabel

	yaws := yawValues(trials)
	colors := generateColors(len(yaws))
	for i, yaw := range yaws {
		var pts plotter.XYs
		for _, tr := range trials {
			if tr.YawDeg == yaw && tr.Detected {
				pts = append(pts, plotter.XY{X: tr.Distance, Y: value(tr)})
			}
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("yaw %g°", yaw), line)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p.Save(10*vg.Inch, 5*vg.Inch, path)
}

// yawValues returns the distinct yaw angles in the sweep, ascending.
func yawValues(trials []trial) []float64 {
	seen := map[float64]bool{}
	var yaws []float64
	for _, tr := range trials {
		if !seen[tr.YawDeg] {
			seen[tr.YawDeg] = true
			yaws = append(yaws, tr.YawDeg)
		}
	}
	sort.Float64s(yaws)
	return yaws
}

func writeHTMLReport(path, dictName string, stats []distanceStat) error {
	xLabels := make([]string, len(stats))
	rateData := make([]opts.LineData, len(stats))
	posData := make([]opts.LineData, len(stats))
	rotData := make([]opts.LineData, len(stats))
	for i, st := range stats {
		xLabels[i] = fmt.Sprintf("%g", st.Distance)
		rateData[i] = opts.LineData{Value: st.HitRate}
		posData[i] = opts.LineData{Value: st.MeanPosErr}
		rotData[i] = opts.LineData{Value: st.MeanRotErr}
	}

	rate := charts.NewLine()
	rate.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Pose Benchmark",
			Width:     "900px",
			Height:    "420px",
		}),
		charts.WithTitleOpts(opts.Title{Title: "Detection Rate by Distance", Subtitle: dictName}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Distance (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1, Name: "Hit rate"}),
	)
	rate.SetXAxis(xLabels).AddSeries("hit rate", rateData,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))

	errs := charts.NewLine()
	errs.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Pose Benchmark",
			Width:     "900px",
			Height:    "420px",
		}),
		charts.WithTitleOpts(opts.Title{Title: "Mean Pose Error by Distance", Subtitle: "detected trials only"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Distance (m)", NameLocation: "middle", NameGap: 25}),
	)
	errs.SetXAxis(xLabels).
		AddSeries("position (m)", posData).
		AddSeries("rotation (rad)", rotData)

	page := components.NewPage()
	page.AddCharts(rate, errs)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report page: %w", err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		return fmt.Errorf("render report page: %w", err)
	}
	return nil
}

// generateColors creates a palette of distinct colors for yaw lines
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
