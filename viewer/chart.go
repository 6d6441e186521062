package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// renderLearningCurve writes an HTML page with the reward and food curves
// of eps, each with a trailing moving average.
func renderLearningCurve(w io.Writer, runID string, eps []Episode, window int) error {
	xAxis := make([]string, len(eps))
	rewards := make([]float64, len(eps))
	food := make([]float64, len(eps))
	for i, e := range eps {
		xAxis[i] = strconv.FormatInt(e.Episode, 10)
		rewards[i] = e.TotalReward
		food[i] = float64(e.Food)
	}

	rewardLine := charts.NewLine()
	rewardLine.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Reward per episode",
			Subtitle: "run " + runID,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "episode"}),
	)
	rewardLine.SetXAxis(xAxis).
		AddSeries("reward", lineData(rewards)).
		AddSeries(fmt.Sprintf("reward (avg %d)", window), lineData(MovingAverage(rewards, window)))

	foodLine := charts.NewLine()
	foodLine.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Food per episode",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "episode"}),
	)
	foodLine.SetXAxis(xAxis).
		AddSeries("food", lineData(food)).
		AddSeries(fmt.Sprintf("food (avg %d)", window), lineData(MovingAverage(food, window)))

	page := components.NewPage()
	page.AddCharts(rewardLine, foodLine)
	return page.Render(w)
}

func lineData(values []float64) []opts.LineData {
	items := make([]opts.LineData, 0, len(values))
	for _, v := range values {
		items = append(items, opts.LineData{Value: v})
	}
	return items
}
