package webserver

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/glucomeal/web/internal/domain/measure"
	"github.com/glucomeal/web/internal/domain/profile"
	apperrors "github.com/glucomeal/web/pkg/errors"
)

func (s *WebServer) handleProfilePage(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

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

	s.renderProfile(w, session, "", "")
}

func (s *WebServer) handleProfileSave(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r)

	heightUnit := parseHeightUnit(r.FormValue("height_unit"))
	weightUnit := parseWeightUnit(r.FormValue("weight_unit"))

	age, _ := strconv.Atoi(strings.TrimSpace(r.FormValue("age")))
	heightDisplay, _ := strconv.ParseFloat(strings.TrimSpace(r.FormValue("height")), 64)
	weightDisplay, _ := strconv.ParseFloat(strings.TrimSpace(r.FormValue("weight")), 64)
	gender := strings.TrimSpace(r.FormValue("gender"))
	condition := strings.TrimSpace(r.FormValue("underlying_disease"))

	heightCm := measure.HeightToCanonical(heightDisplay, heightUnit)
	weightKg := measure.WeightToCanonical(weightDisplay, weightUnit)

	form := profile.Form{
		Age:               age,
		HeightCm:          heightCm,
		WeightKg:          weightKg,
		Gender:            gender,
		UnderlyingDisease: condition,
	}

	// Local validation failures stay local; nothing is sent to the backend
	if err := profile.ValidateForm(form); err != nil {
		s.renderProfile(w, session, userMessage(err), "")
		return
	}

	record := ProfileRecord{
		Age:               &age,
		HeightCm:          &heightCm,
		WeightKg:          &weightKg,
		UnderlyingDisease: &condition,
	}
	if gender != "" {
		record.Gender = &gender
	}

	saved, err := s.apiClient.UpdateProfile(r.Context(), session.BackendCookie(), record)
	if err != nil {
		if apperrors.IsAuthFailure(err) {
			session.Clear()
			s.sessionStore.Save(w, session)
			s.renderTemplate(w, "session-expired", map[string]any{"Title": "Session expired"})
			return
		}
		s.logger.Warn("profile save failed", zap.Error(err))
		s.renderProfile(w, session, userMessage(err), "")
		return
	}

	update := profile.Partial{
		Age:               saved.Age,
		HeightCm:          saved.HeightCm,
		WeightKg:          saved.WeightKg,
		Gender:            saved.Gender,
		UnderlyingDisease: saved.UnderlyingDisease,
		HeightUnit:        &heightUnit,
		WeightUnit:        &weightUnit,
	}
	if a1cRaw := strings.TrimSpace(r.FormValue("a1c")); a1cRaw != "" {
		if a1c, err := strconv.ParseFloat(a1cRaw, 64); err == nil && a1c > 0 {
			update.A1c = &a1c
		}
	}
	session.Metrics.Update(update)

	s.renderProfile(w, session, "", "Profile saved")
}

// renderProfile renders the profile form from the current metrics snapshot,
// with values converted into the selected display units.
func (s *WebServer) renderProfile(w http.ResponseWriter, session *Session, errMsg, flash string) {
	m := session.Metrics.Metrics()

	data := map[string]any{
		"Title":             "Your profile",
		"Error":             errMsg,
		"Flash":             flash,
		"Age":               "",
		"Gender":            "",
		"A1c":               "",
		"UnderlyingDisease": "",
		"HeightUnit":        string(m.HeightUnit),
		"WeightUnit":        string(m.WeightUnit),
		"FormattedA1c":      measure.FormatA1c(m.A1c),
		"FormattedHeight":   measure.FormatHeight(m.HeightCm, m.HeightUnit),
		"FormattedWeight":   measure.FormatWeight(m.WeightKg, m.WeightUnit),
		"HeightDisplay":     displayValue(m.HeightCm, func(v float64) float64 { return measure.HeightToDisplay(v, m.HeightUnit) }),
		"WeightDisplay":     displayValue(m.WeightKg, func(v float64) float64 { return measure.WeightToDisplay(v, m.WeightUnit) }),
	}
	if m.Age != nil {
		data["Age"] = *m.Age
	}
	if m.Gender != nil {
		data["Gender"] = *m.Gender
	}
	if m.UnderlyingDisease != nil {
		data["UnderlyingDisease"] = *m.UnderlyingDisease
	}
	if m.A1c != nil {
		data["A1c"] = *m.A1c
	}

	s.renderTemplate(w, "profile", data)
}

// displayValue formats a canonical value in its display unit for form
// prefill, or empty when unset.
func displayValue(canonical *float64, convert func(float64) float64) string {
	if canonical == nil {
		return ""
	}
	return strconv.FormatFloat(convert(*canonical), 'f', -1, 64)
}

func parseHeightUnit(raw string) measure.HeightUnit {
	if raw == string(measure.HeightFt) {
		return measure.HeightFt
	}
	return measure.HeightCm
}

func parseWeightUnit(raw string) measure.WeightUnit {
	if raw == string(measure.WeightLb) {
		return measure.WeightLb
	}
	return measure.WeightKg
}
