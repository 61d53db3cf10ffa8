package weather

import (
	"sort"
	"time"
)

const (
	// SunriseWindowDays is the number of days of sun and moon data kept per location.
	SunriseWindowDays = 11

	sunriseInitialDays = 10
	dayTimeThreshold   = 30 * time.Minute
)

// SunriseRequest describes the next sunrise window fetch.
type SunriseRequest struct {
	Date time.Time
	Days int
}

func midnight(t time.Time, zone *time.Location) time.Time {
	if zone == nil {
		zone = time.UTC
	}
	local := t.In(zone)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone)
}

func sameDate(a, b time.Time, zone *time.Location) bool {
	return midnight(a, zone).Equal(midnight(b, zone))
}

// sunriseDate returns the instant identifying the day of s. Polar days and
// nights have no sunrise, so solar noon is used instead.
func sunriseDate(s Sunrise) time.Time {
	if !s.SunRise.IsZero() {
		return s.SunRise
	}
	return s.SolarNoon.Time
}

// NextSunriseRequest returns the fetch needed to fill the sunrise window.
// ok is false once the window already holds SunriseWindowDays days.
func NextSunriseRequest(have []Sunrise, now time.Time, zone *time.Location) (SunriseRequest, bool) {
	if len(have) >= SunriseWindowDays {
		return SunriseRequest{}, false
	}
	today := midnight(now, zone)
	if len(have) == 0 {
		return SunriseRequest{Date: today, Days: sunriseInitialDays}, true
	}
	return SunriseRequest{
		Date: today.AddDate(0, 0, len(have)),
		Days: SunriseWindowDays - len(have),
	}, true
}

// PopPastDays drops sunrise entries of days before today.
func PopPastDays(list []Sunrise, now time.Time, zone *time.Location) []Sunrise {
	if len(list) == 0 {
		return list
	}
	today := midnight(now, zone)
	out := make([]Sunrise, 0, len(list))
	for _, s := range list {
		if !midnight(sunriseDate(s), zone).Before(today) {
			out = append(out, s)
		}
	}
	return out
}

// MergeSunrise adds fetched days missing from have, keeping date order and
// at most SunriseWindowDays entries.
func MergeSunrise(have, fetched []Sunrise, zone *time.Location) []Sunrise {
	out := append([]Sunrise(nil), have...)
	for _, f := range fetched {
		dup := false
		for _, h := range out {
			if sameDate(sunriseDate(h), sunriseDate(f), zone) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return sunriseDate(out[i]).Before(sunriseDate(out[j])) })
	if len(out) > SunriseWindowDays {
		out = out[:SunriseWindowDays]
	}
	return out
}

// IsDayTime reports whether t is daytime according to the sunrise data of its
// day. Daytime starts 30 minutes before sunrise and ends 30 minutes before
// sunset. Without data for that day it reports true.
func IsDayTime(list []Sunrise, t time.Time, zone *time.Location) bool {
	for _, s := range list {
		if !sameDate(sunriseDate(s), t, zone) {
			continue
		}
		if s.SunRise.IsZero() || s.SunSet.IsZero() {
			return s.SolarNoon.Elevation > 0
		}
		return t.Sub(s.SunRise) > -dayTimeThreshold && t.Sub(s.SunSet) < -dayTimeThreshold
	}
	return true
}

// FallbackIsDayTime treats 06:00-18:00 local time as day.
func FallbackIsDayTime(t time.Time, zone *time.Location) bool {
	if zone == nil {
		zone = time.UTC
	}
	h := t.In(zone).Hour()
	return h >= 6 && h < 18
}

// ApplySunrise attaches the sunrise list to f, resolves every hour's icon for
// day or night, and attaches each day's sun and moon data.
func ApplySunrise(f Forecast, list []Sunrise, zone *time.Location) Forecast {
	out := f
	out.Sunrise = append([]Sunrise(nil), list...)

	out.Hourly = make([]HourlyForecast, len(f.Hourly))
	for i, h := range f.Hourly {
		var isDay bool
		if len(list) != 0 {
			isDay = IsDayTime(list, h.Date, zone)
		} else {
			isDay = FallbackIsDayTime(h.Date, zone)
		}

		switch f.Backend {
		case BackendOWM:
			h.WeatherIcon = OWMIcon(isDay, h.SymbolCode)
		default:
			h.WeatherIcon, h.WeatherDescription = NMISymbol(isDay, h.SymbolCode)
		}
		h.Condition = ConditionFromIcon(h.WeatherIcon)
		out.Hourly[i] = h
	}

	out.Daily = make([]DailyForecast, len(f.Daily))
	for i, d := range f.Daily {
		d.Sunrise = nil
		for _, s := range list {
			if sameDate(sunriseDate(s), d.Date, zone) {
				s := s
				d.Sunrise = &s
				break
			}
		}
		out.Daily[i] = d
	}
	return out
}
