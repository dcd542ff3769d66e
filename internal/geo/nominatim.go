package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"
)

// NominatimProvider геокодер с API, совместимым с Nominatim (/search?format=json)
type NominatimProvider struct {
	baseURL   string
	userAgent string
	client    *fasthttp.Client
}

// NewNominatimProvider создает провайдер; baseURL вида https://nominatim.openstreetmap.org
func NewNominatimProvider(baseURL, userAgent string) *NominatimProvider {
	return &NominatimProvider{
		baseURL:   baseURL,
		userAgent: userAgent,
		client: &fasthttp.Client{
			Name:                userAgent,
			MaxConnsPerHost:     16,
			ReadTimeout:         5 * time.Second,
			WriteTimeout:        5 * time.Second,
			MaxIdleConnDuration: time.Minute,
		},
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Lookup ищет координаты по строке; дедлайн берётся из ctx
func (p *NominatimProvider) Lookup(ctx context.Context, query string) (Point, error) {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)
	args.Set("q", query)
	args.Set("format", "json")
	args.Set("limit", "1")

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.baseURL + "/search?" + args.String())
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	if p.userAgent != "" {
		req.Header.SetUserAgent(p.userAgent)
	}

	timeout := 3 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return Point{}, ctx.Err()
	}

	if err := p.client.DoTimeout(req, resp, timeout); err != nil {
		return Point{}, fmt.Errorf("ошибка запроса к геокодеру: %w", err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return Point{}, fmt.Errorf("геокодер вернул статус %d", resp.StatusCode())
	}

	return parseNominatim(resp.Body())
}

func parseNominatim(body []byte) (Point, error) {
	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return Point{}, fmt.Errorf("ошибка разбора ответа геокодера: %w", err)
	}
	if len(results) == 0 {
		return Point{}, ErrNotFound
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Point{}, fmt.Errorf("некорректная широта: %w", err)
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Point{}, fmt.Errorf("некорректная долгота: %w", err)
	}
	p := Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return Point{}, fmt.Errorf("координаты вне допустимого диапазона: %s,%s", results[0].Lat, results[0].Lon)
	}
	return p, nil
}
