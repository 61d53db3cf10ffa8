package weather

import (
	"math"

	"github.com/i474232898/weather-forecast/internal/common"
)

// NoIcon is used for days and hours whose symbol could not be resolved.
const NoIcon = "weather-none-available"

type iconSet struct {
	neutral, day, night string
}

var (
	iconsStorm          = iconSet{"weather-storm", "weather-storm-day", "weather-storm-night"}
	iconsShowers        = iconSet{"weather-showers", "weather-showers-day", "weather-showers-night"}
	iconsShowersScatter = iconSet{"weather-showers-scattered", "weather-showers-scattered-day", "weather-showers-scattered-night"}
	iconsSnow           = iconSet{"weather-snow", "weather-snow", "weather-snow"}
	iconsSnowScatter    = iconSet{"weather-snow-scattered", "weather-snow-scattered-day", "weather-snow-scattered-night"}
	iconsFreezing       = iconSet{"weather-freezing-rain", "weather-freezing-rain", "weather-freezing-rain"}
	iconsFog            = iconSet{"weather-fog", "weather-fog", "weather-fog"}
	iconsClouds         = iconSet{"weather-clouds", "weather-clouds", "weather-clouds-night"}
	iconsFewClouds      = iconSet{"weather-few-clouds", "weather-few-clouds", "weather-few-clouds-night"}
	iconsClear          = iconSet{"weather-clear", "weather-clear", "weather-clear-night"}
)

type nmiSymbol struct {
	icons   iconSet
	desc    string
	dayDesc string // optional override for the day variant
}

// nmiSymbols maps met.no symbol codes (without the _day/_night suffix) to icons.
// See https://api.met.no/weatherapi/weathericon/2.0/legends
var nmiSymbols = map[string]nmiSymbol{
	"clearsky":     {icons: iconsClear, desc: "Clear"},
	"fair":         {icons: iconsFewClouds, desc: "Light Clouds", dayDesc: "Partly Sunny"},
	"partlycloudy": {icons: iconsClouds, desc: "Partly Cloudy"},
	"cloudy":       {icons: iconsClouds, desc: "Cloudy"},
	"fog":          {icons: iconsFog, desc: "Fog"},

	"lightrain":         {icons: iconsShowersScatter, desc: "Light Rain"},
	"lightrainshowers":  {icons: iconsShowersScatter, desc: "Light Rain"},
	"rain":              {icons: iconsShowers, desc: "Rain"},
	"rainshowers":       {icons: iconsShowers, desc: "Rain"},
	"heavyrain":         {icons: iconsShowers, desc: "Heavy Rain"},
	"heavyrainshowers":  {icons: iconsShowers, desc: "Heavy Rain"},
	"lightsleet":        {icons: iconsShowersScatter, desc: "Light Sleet"},
	"lightsleetshowers": {icons: iconsShowersScatter, desc: "Light Sleet"},
	"sleet":             {icons: iconsFreezing, desc: "Sleet"},
	"sleetshowers":      {icons: iconsFreezing, desc: "Sleet"},
	"heavysleet":        {icons: iconsFreezing, desc: "Heavy Sleet"},
	"heavysleetshowers": {icons: iconsFreezing, desc: "Heavy Sleet"},
	"lightsnow":         {icons: iconsSnowScatter, desc: "Light Snow"},
	"lightsnowshowers":  {icons: iconsSnowScatter, desc: "Light Snow"},
	"snow":              {icons: iconsSnow, desc: "Snow"},
	"snowshowers":       {icons: iconsSnow, desc: "Snow"},
	"snowandthunder":    {icons: iconsSnow, desc: "Snow"},
	"heavysnow":         {icons: iconsSnow, desc: "Heavy Snow"},
	"heavysnowshowers":  {icons: iconsSnow, desc: "Heavy Snow"},

	"lightrainandthunder":          {icons: iconsStorm, desc: "Storm"},
	"lightrainshowersandthunder":   {icons: iconsStorm, desc: "Storm"},
	"rainandthunder":               {icons: iconsStorm, desc: "Storm"},
	"rainshowersandthunder":        {icons: iconsStorm, desc: "Storm"},
	"heavyrainandthunder":          {icons: iconsStorm, desc: "Storm"},
	"heavyrainshowersandthunder":   {icons: iconsStorm, desc: "Storm"},
	"lightsleetandthunder":         {icons: iconsStorm, desc: "Storm"},
	"lightssleetshowersandthunder": {icons: iconsStorm, desc: "Storm"},
	"sleetandthunder":              {icons: iconsStorm, desc: "Storm"},
	"sleetshowersandthunder":       {icons: iconsStorm, desc: "Storm"},
	"heavysleetandthunder":         {icons: iconsStorm, desc: "Storm"},
	"heavysleetshowersandthunder":  {icons: iconsStorm, desc: "Storm"},
	"lightsnowandthunder":          {icons: iconsStorm, desc: "Storm"},
	"lightssnowshowersandthunder":  {icons: iconsStorm, desc: "Storm"},
	"snowshowersandthunder":        {icons: iconsStorm, desc: "Storm"},
	"heavysnowshowersandthunder":   {icons: iconsStorm, desc: "Storm"},
}

// owmIcons maps OpenWeatherMap icon ids to icon names.
var owmIcons = map[string]string{
	"01d": "weather-clear",
	"01n": "weather-clear-night",
	"02d": "weather-clouds",
	"02n": "weather-clouds-night",
	"03d": "weather-many-clouds",
	"03n": "weather-many-clouds",
	"04d": "weather-many-clouds",
	"04n": "weather-many-clouds",
	"09d": "weather-showers-day",
	"09n": "weather-showers-night",
	"10d": "weather-showers-scattered-day",
	"10n": "weather-showers-scattered-night",
	"11d": "weather-storm-day",
	"11n": "weather-storm-night",
	"13d": "weather-snow-scattered-day",
	"13n": "weather-snow-scattered-night",
	"50d": "weather-mist",
	"50n": "weather-mist",
}

// iconRank orders neutral icons by how well they describe a whole day.
// Scattered showers outrank steady showers, matching the OWM day icon choice.
var iconRank = map[string]int{
	"weather-clear":             0,
	"weather-few-clouds":        1,
	"weather-clouds":            2,
	"weather-mist":              2,
	"weather-fog":               2,
	"weather-many-clouds":       3,
	"weather-showers":           4,
	"weather-snow":              4,
	"weather-showers-scattered": 5,
	"weather-snow-scattered":    5,
	"weather-freezing-rain":     5,
	"weather-storm":             6,
}

// NeutralIcon strips the day/night variant from an icon name.
func NeutralIcon(icon string) string {
	return common.TrimAnySuffix(icon, "-day", "-night")
}

// IconRank returns the rank of icon; unknown icons rank below everything.
func IconRank(icon string) int {
	if r, ok := iconRank[NeutralIcon(icon)]; ok {
		return r
	}
	return -1
}

func nmiBase(symbolCode string) string {
	return common.TrimAnySuffix(symbolCode, "_day", "_night", "_polartwilight", "_neutral")
}

// NMISymbol resolves a met.no symbol code to an icon and description for day or night.
func NMISymbol(isDay bool, symbolCode string) (icon, description string) {
	sym, ok := nmiSymbols[nmiBase(symbolCode)]
	if !ok {
		return NoIcon, ""
	}
	if isDay {
		if sym.dayDesc != "" {
			return sym.icons.day, sym.dayDesc
		}
		return sym.icons.day, sym.desc
	}
	return sym.icons.night, sym.desc
}

// NMINeutralIcon resolves a met.no symbol code to its neutral icon.
func NMINeutralIcon(symbolCode string) string {
	sym, ok := nmiSymbols[nmiBase(symbolCode)]
	if !ok {
		return NoIcon
	}
	return sym.icons.neutral
}

// OWMIcon resolves an OpenWeatherMap icon id (e.g. "10d") to an icon name,
// replacing the id's own day/night marker with isDay.
func OWMIcon(isDay bool, iconID string) string {
	if len(iconID) < 2 {
		return NoIcon
	}
	suffix := "n"
	if isDay {
		suffix = "d"
	}
	if icon, ok := owmIcons[iconID[:2]+suffix]; ok {
		return icon
	}
	return NoIcon
}

// OWMRawIcon resolves an OpenWeatherMap icon id as reported.
func OWMRawIcon(iconID string) string {
	if icon, ok := owmIcons[iconID]; ok {
		return icon
	}
	return NoIcon
}

// ConditionFromIcon maps an icon name to a normalized Condition.
func ConditionFromIcon(icon string) Condition {
	switch {
	case icon == "" || icon == NoIcon:
		return ConditionUnknown
	case common.HasAny(icon, "storm"):
		return ConditionStorm
	case common.HasAny(icon, "freezing"):
		return ConditionSleet
	case common.HasAny(icon, "snow"):
		return ConditionSnow
	case common.HasAny(icon, "showers"):
		return ConditionRain
	case common.HasAny(icon, "fog"):
		return ConditionFog
	case common.HasAny(icon, "mist"):
		return ConditionMist
	case common.HasAny(icon, "clouds"):
		return ConditionCloudy
	case common.HasAny(icon, "clear"):
		return ConditionClear
	default:
		return ConditionUnknown
	}
}

var compass = [...]WindDirection{WindN, WindNE, WindE, WindSE, WindS, WindSW, WindW, WindNW}

// WindDirectionFromDegrees converts a meteorological bearing to a compass point.
func WindDirectionFromDegrees(deg float64) WindDirection {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return compass[int((d+22.5)/45)%len(compass)]
}
