package weather

import (
	"math"
	"sort"
	"time"
)

const (
	initialMaxTemp = -1e9
	initialMinTemp = 1e9
)

// DayBuilder merges hourly forecast steps into daily aggregates.
// Days are keyed by the local calendar date in the builder's zone.
// Precipitation is summed; UV index, humidity and pressure keep the maximum;
// the icon and description come from the highest ranked hour, later hours
// winning ties.
type DayBuilder struct {
	zone *time.Location
	days map[string]*DailyForecast
}

// NewDayBuilder creates a DayBuilder for the given zone (UTC when nil).
func NewDayBuilder(zone *time.Location) *DayBuilder {
	if zone == nil {
		zone = time.UTC
	}
	return &DayBuilder{
		zone: zone,
		days: make(map[string]*DailyForecast),
	}
}

func (b *DayBuilder) day(t time.Time) *DailyForecast {
	local := t.In(b.zone)
	key := local.Format("2006-01-02")
	d, ok := b.days[key]
	if !ok {
		d = &DailyForecast{
			Date:        time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, b.zone),
			MaxTemp:     initialMaxTemp,
			MinTemp:     initialMinTemp,
			WeatherIcon: NoIcon,
			Condition:   ConditionUnknown,
		}
		b.days[key] = d
	}
	return d
}

// AddHour folds one hourly step into its day.
func (b *DayBuilder) AddHour(h HourlyForecast) {
	d := b.day(h.Date)

	d.Precipitation += h.PrecipitationAmount
	d.UVIndex = math.Max(d.UVIndex, h.UVIndex)
	d.Humidity = math.Max(d.Humidity, h.Humidity)
	d.Pressure = math.Max(d.Pressure, h.Pressure)
	d.MaxTemp = math.Max(d.MaxTemp, h.Temperature)
	d.MinTemp = math.Min(d.MinTemp, h.Temperature)

	icon := h.NeutralWeatherIcon
	if icon == "" {
		icon = NeutralIcon(h.WeatherIcon)
	}
	if IconRank(icon) >= IconRank(d.WeatherIcon) {
		d.WeatherIcon = icon
		d.WeatherDescription = h.WeatherDescription
		d.Condition = ConditionFromIcon(icon)
	}
}

// AddTempRange widens the day's temperature range with a period max/min
// reported by the upstream API.
func (b *DayBuilder) AddTempRange(t time.Time, maxTemp, minTemp float64) {
	d := b.day(t)
	d.MaxTemp = math.Max(d.MaxTemp, maxTemp)
	d.MinTemp = math.Min(d.MinTemp, minTemp)
}

// AddPrecipitation adds precipitation not covered by an hourly step.
func (b *DayBuilder) AddPrecipitation(t time.Time, mm float64) {
	b.day(t).Precipitation += mm
}

// Days returns the aggregated days ordered by date.
func (b *DayBuilder) Days() []DailyForecast {
	out := make([]DailyForecast, 0, len(b.days))
	for _, d := range b.days {
		day := *d
		if day.MaxTemp == initialMaxTemp && day.MinTemp == initialMinTemp {
			day.MaxTemp, day.MinTemp = 0, 0
		}
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ClosestHour returns the hourly step closest to now.
func ClosestHour(hours []HourlyForecast, now time.Time) (HourlyForecast, bool) {
	if len(hours) == 0 {
		return HourlyForecast{}, false
	}
	best := 0
	bestDist := absDuration(hours[0].Date.Sub(now))
	for i := 1; i < len(hours); i++ {
		if dist := absDuration(hours[i].Date.Sub(now)); dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return hours[best], true
}

// TrimToWindow drops days before today and hours older than one hour,
// both judged in zone.
func TrimToWindow(f Forecast, now time.Time, zone *time.Location) Forecast {
	if zone == nil {
		zone = time.UTC
	}
	local := now.In(zone)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone)
	hourCutoff := now.Add(-time.Hour)

	out := f
	out.Hourly = make([]HourlyForecast, 0, len(f.Hourly))
	for _, h := range f.Hourly {
		if !h.Date.Before(hourCutoff) {
			out.Hourly = append(out.Hourly, h)
		}
	}
	out.Daily = make([]DailyForecast, 0, len(f.Daily))
	for _, d := range f.Daily {
		if !d.Date.Before(today) {
			out.Daily = append(out.Daily, d)
		}
	}
	out.Sunrise = PopPastDays(f.Sunrise, now, zone)
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
