// Package geo переводит сохранённые локации пользователей в координаты
// и считает расстояние между ними.
package geo

import (
	"math"
	"strconv"
	"strings"
)

// EarthRadiusMiles радиус Земли, используемый формулой гаверсинуса
const EarthRadiusMiles = 3959.0

// Point географическая точка в градусах
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceMiles расстояние по большому кругу между двумя точками
func DistanceMiles(p1, p2 Point) float64 {
	lat1 := toRadians(p1.Lat)
	lat2 := toRadians(p2.Lat)
	dLat := toRadians(p2.Lat - p1.Lat)
	dLng := toRadians(p2.Lng - p1.Lng)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMiles * c
}

// ParseCoordinates разбирает строку вида "lat,lng"
func ParseCoordinates(s string) (Point, bool) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Point{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return Point{}, false
	}
	p := Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return Point{}, false
	}
	return p, true
}

// Normalize приводит локацию к ключу кэша: нижний регистр, одиночные пробелы
func Normalize(location string) string {
	return strings.ToLower(strings.Join(strings.Fields(location), " "))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Valid сообщает, что координаты конечны и лежат в допустимых диапазонах
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}
