package webserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/glucomeal/web/internal/domain/forecast"
	"github.com/glucomeal/web/internal/domain/profile"
	apperrors "github.com/glucomeal/web/pkg/errors"
)

// handleDashboard renders the glucose forecast chart. It waits for height
// and weight to be available (store first, then a profile fetch) before
// requesting a prediction; the last successful forecast is kept in the cache
// so a backend hiccup degrades to slightly stale data instead of a blank page.
func (s *WebServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	m := session.Metrics.Metrics()
	if m.HeightCm == nil || m.WeightKg == nil {
		record, err := s.apiClient.FetchProfile(r.Context(), session.BackendCookie())
		if err != nil {
			if apperrors.IsAuthFailure(err) {
				session.Clear()
				s.sessionStore.Save(w, session)
				s.renderTemplate(w, "session-expired", map[string]any{"Title": "Session expired"})
				return
			}
			s.renderError(w, http.StatusBadGateway, userMessage(err))
			return
		}
		session.Metrics.Update(profile.Partial{
			Age:               record.Age,
			HeightCm:          record.HeightCm,
			WeightKg:          record.WeightKg,
			Gender:            record.Gender,
			UnderlyingDisease: record.UnderlyingDisease,
		})
		m = session.Metrics.Metrics()
	}

	if m.HeightCm == nil || m.WeightKg == nil {
		s.renderTemplate(w, "dashboard", map[string]any{
			"Title":        "Dashboard",
			"NeedsProfile": true,
		})
		return
	}

	req := forecast.Request{
		HeightCm: *m.HeightCm,
		WeightKg: *m.WeightKg,
		Age:      m.Age,
		Gender:   m.Gender,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("baseline")); raw != "" {
		if baseline, err := strconv.ParseFloat(raw, 64); err == nil && baseline > 0 {
			req.BaselineAvgGlucose = &baseline
		}
	}
	if bucket := strings.TrimSpace(r.URL.Query().Get("meal")); bucket != "" {
		req.MealBucket = &bucket
	}

	payload, err := s.apiClient.FetchForecast(r.Context(), session.BackendCookie(), req)
	if err != nil {
		if apperrors.IsAuthFailure(err) {
			session.Clear()
			s.sessionStore.Save(w, session)
			s.renderTemplate(w, "session-expired", map[string]any{"Title": "Session expired"})
			return
		}

		// Fall back to the last known forecast, if any
		if cached, ok := s.forecastCache.Get(r.Context(), session.UserID()); ok {
			s.logger.Warn("forecast fetch failed, serving cached series", zap.Error(err))
			s.renderForecast(w, cached, userMessage(err), true)
			return
		}
		s.renderError(w, http.StatusBadGateway, userMessage(err))
		return
	}

	// The backend echoes the inputs it resolved; its baseline anchors the
	// chart at minute 0 when the user supplied none of their own
	baseline := req.BaselineAvgGlucose
	if baseline == nil {
		if v, ok := payload.InputsUsed["baseline_avg_glucose"].(float64); ok && v > 0 {
			baseline = &v
		}
	}

	series, err := forecast.BuildSeries(payload.Minutes, payload.AbsoluteGlucose, baseline)
	if err != nil {
		s.logger.Error("malformed forecast payload", zap.Error(err))
		s.renderError(w, http.StatusBadGateway, "The forecast data could not be read")
		return
	}

	s.forecastCache.Set(r.Context(), session.UserID(), series)
	s.renderForecast(w, series, "", false)
}

func (s *WebServer) renderForecast(w http.ResponseWriter, series forecast.Series, errMsg string, stale bool) {
	s.renderTemplate(w, "dashboard", map[string]any{
		"Title": "Dashboard",
		"Chart": buildChartView(series),
		"Error": errMsg,
		"Stale": stale,
	})
}

// Chart geometry. The series is mapped into a fixed SVG viewport; the
// Y domain comes from forecast.AxisDomain.
const (
	chartWidth    = 640
	chartHeight   = 320
	chartPadLeft  = 48
	chartPadBot   = 32
	chartPadTop   = 16
	chartPadRight = 16
)

type chartTick struct {
	Pos   float64
	Label string
}

type chartView struct {
	Width   int
	Height  int
	Points  string
	Low     float64
	High    float64
	YTicks  []chartTick
	XTicks  []chartTick
	HasData bool
}

func buildChartView(series forecast.Series) chartView {
	view := chartView{Width: chartWidth, Height: chartHeight}
	if len(series) == 0 {
		return view
	}
	view.HasData = true

	low, high := forecast.AxisDomain(series)
	if high <= low {
		// degenerate domain (all points clamped to one bound)
		high = low + 5
	}
	view.Low, view.High = low, high

	minMinute := series[0].Minute
	maxMinute := series[len(series)-1].Minute
	minuteSpan := maxMinute - minMinute
	if minuteSpan == 0 {
		minuteSpan = 1
	}

	plotW := float64(chartWidth - chartPadLeft - chartPadRight)
	plotH := float64(chartHeight - chartPadTop - chartPadBot)

	toX := func(minute float64) float64 {
		return chartPadLeft + (minute-minMinute)/minuteSpan*plotW
	}
	toY := func(glucose float64) float64 {
		return chartPadTop + (high-glucose)/(high-low)*plotH
	}

	var b strings.Builder
	for i, p := range series {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.1f,%.1f", toX(p.Minute), toY(clamp(p.Glucose, low, high)))
	}
	view.Points = b.String()

	for v := low; v <= high; v += 5 {
		// label every other gridline when the domain is wide
		if high-low > 50 && int(v-low)%10 != 0 {
			continue
		}
		view.YTicks = append(view.YTicks, chartTick{Pos: toY(v), Label: strconv.FormatFloat(v, 'f', 0, 64)})
	}

	for _, p := range series {
		view.XTicks = append(view.XTicks, chartTick{Pos: toX(p.Minute), Label: strconv.FormatFloat(p.Minute, 'f', 0, 64)})
	}

	return view
}

func clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
