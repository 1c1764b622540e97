// Package plotter renders price charts to PNG files with gonum/plot.
package plotter

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"time"

	"BitcoinSentinel/internal/model"

	"gonum.org/v1/plot"
	gp "gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	width  = 12 * vg.Inch
	height = 5 * vg.Inch
)

var (
	colorPrice    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	colorAverage  = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	colorZScore   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	colorIQR      = color.RGBA{R: 255, G: 165, B: 0, A: 255}
	colorForecast = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	dashed        = []vg.Length{vg.Points(6), vg.Points(4)}
)

// Prices draws the price history.
func Prices(path string, s model.PriceSeries) error {
	p, err := newTimePlot("Bitcoin Price Over Time", s)
	if err != nil {
		return err
	}
	if err := addLine(p, "Price", seriesXYs(s), colorPrice, nil); err != nil {
		return err
	}
	return save(p, path)
}

// PriceWithMovingAverage draws the price with a moving average overlay.
func PriceWithMovingAverage(path string, s model.PriceSeries, ma model.RollingStat) error {
	p, err := newTimePlot(fmt.Sprintf("Bitcoin Price with %d-Day Moving Average", ma.Window), s)
	if err != nil {
		return err
	}
	if err := addLine(p, "Price", seriesXYs(s), colorPrice, nil); err != nil {
		return err
	}
	if err := addLine(p, fmt.Sprintf("%d-Day Moving Average", ma.Window), statXYs(s, ma), colorAverage, dashed); err != nil {
		return err
	}
	return save(p, path)
}

// Anomalies draws the price and marks the points each policy flagged.
func Anomalies(path string, s model.PriceSeries, report model.AnomalyReport) error {
	p, err := newTimePlot("Bitcoin Price Anomalies", s)
	if err != nil {
		return err
	}
	if err := addLine(p, "Price", seriesXYs(s), colorPrice, nil); err != nil {
		return err
	}

	var byZ, byIQR gp.XYs
	for _, f := range report.Flags {
		xy := gp.XY{X: unix(f.Timestamp), Y: f.Price}
		if f.ByZScore {
			byZ = append(byZ, xy)
		}
		if f.ByIQR {
			byIQR = append(byIQR, xy)
		}
	}
	if err := addScatter(p, "Z-Score Anomaly", byZ, colorZScore, draw.CircleGlyph{}); err != nil {
		return err
	}
	if err := addScatter(p, "IQR Anomaly", byIQR, colorIQR, draw.CrossGlyph{}); err != nil {
		return err
	}
	return save(p, path)
}

// Forecast draws the price history followed by the forecast.
func Forecast(path string, s model.PriceSeries, points []model.ForecastPoint) error {
	p, err := newTimePlot("Bitcoin Price Forecast", s)
	if err != nil {
		return err
	}
	if err := addLine(p, "Historical Price", seriesXYs(s), colorPrice, nil); err != nil {
		return err
	}
	xys := make(gp.XYs, len(points))
	for i, fp := range points {
		xys[i] = gp.XY{X: unix(fp.Timestamp), Y: fp.Predicted}
	}
	if err := addLine(p, "ARIMA Forecast", xys, colorForecast, dashed); err != nil {
		return err
	}
	return save(p, path)
}

// Decomposition draws the observed series and its trend, seasonal and residual parts stacked.
func Decomposition(path string, s model.PriceSeries, d model.Decomposition) error {
	if s.Empty() {
		return fmt.Errorf("%w: nothing to plot", model.ErrInsufficientData)
	}
	panels := []struct {
		title string
		xys   gp.XYs
	}{
		{"Observed", seriesXYs(s)},
		{"Trend", statXYs(s, d.Trend)},
		{"Seasonal", statXYs(s, d.Seasonal)},
		{"Residual", statXYs(s, d.Residual)},
	}

	plots := make([][]*plot.Plot, len(panels))
	for i, panel := range panels {
		p := plot.New()
		p.Title.Text = panel.title
		p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
		if err := addLine(p, "", panel.xys, colorPrice, nil); err != nil {
			return err
		}
		plots[i] = []*plot.Plot{p}
	}

	img := vgimg.New(width, 4*height/2)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: len(plots), Cols: 1, PadY: vg.Points(8)}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	f, err := create(path)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func newTimePlot(title string, s model.PriceSeries) (*plot.Plot, error) {
	if s.Empty() {
		return nil, fmt.Errorf("%w: nothing to plot", model.ErrInsufficientData)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Price (USD)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(gp.NewGrid())
	p.Legend.Top = true
	return p, nil
}

func addLine(p *plot.Plot, name string, xys gp.XYs, c color.Color, dashes []vg.Length) error {
	if len(xys) == 0 {
		return nil
	}
	l, err := gp.NewLine(xys)
	if err != nil {
		return fmt.Errorf("line %q: %w", name, err)
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = vg.Points(1.5)
	l.LineStyle.Dashes = dashes
	p.Add(l)
	if name != "" {
		p.Legend.Add(name, l)
	}
	return nil
}

func addScatter(p *plot.Plot, name string, xys gp.XYs, c color.Color, shape draw.GlyphDrawer) error {
	if len(xys) == 0 {
		return nil
	}
	sc, err := gp.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("scatter %q: %w", name, err)
	}
	sc.GlyphStyle.Color = c
	sc.GlyphStyle.Radius = vg.Points(4)
	sc.GlyphStyle.Shape = shape
	p.Add(sc)
	p.Legend.Add(name, sc)
	return nil
}

func seriesXYs(s model.PriceSeries) gp.XYs {
	xys := make(gp.XYs, s.Len())
	for i, pt := range s.Points {
		xys[i] = gp.XY{X: unix(pt.Timestamp), Y: pt.Price}
	}
	return xys
}

// statXYs keeps only the defined entries of r.
func statXYs(s model.PriceSeries, r model.RollingStat) gp.XYs {
	xys := make(gp.XYs, 0, r.Len())
	for i, v := range r.Values {
		if math.IsNaN(v) || i >= s.Len() {
			continue
		}
		xys = append(xys, gp.XY{X: unix(s.Points[i].Timestamp), Y: v})
	}
	return xys
}

func unix(t time.Time) float64 { return float64(t.Unix()) }

func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func create(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}
