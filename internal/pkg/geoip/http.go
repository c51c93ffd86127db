package geoip

import (
	"context"
	"fmt"
	"time"

	"github.com/imroc/req/v3"
)

// HTTPLocator queries an ip-api compatible JSON endpoint.
type HTTPLocator struct {
	client      *req.Client
	urlTemplate string
}

type ipAPIResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	RegionName  string `json:"regionName"`
	Region      string `json:"region"`
	City        string `json:"city"`
}

// NewHTTPLocator creates a locator for urlTemplate, which must contain one %s
// for the address. Requests are not retried.
func NewHTTPLocator(urlTemplate string, timeout time.Duration) *HTTPLocator {
	client := req.C().
		SetTimeout(timeout).
		SetUserAgent("linkbio").
		SetCommonHeader("Accept", "application/json")

	return &HTTPLocator{client: client, urlTemplate: urlTemplate}
}

func (l *HTTPLocator) Locate(ctx context.Context, ip string) (Location, error) {
	parsed, err := parseIP(ip)
	if err != nil {
		return Location{}, err
	}

	var body ipAPIResponse
	resp, err := l.client.R().
		SetContext(ctx).
		SetSuccessResult(&body).
		Get(fmt.Sprintf(l.urlTemplate, parsed.String()))
	if err != nil {
		return Location{}, &LookupError{Provider: "http", IP: ip, Reason: err.Error()}
	}
	if !resp.IsSuccessState() {
		return Location{}, &LookupError{Provider: "http", IP: ip, Reason: fmt.Sprintf("status %d", resp.GetStatusCode())}
	}
	if body.Status != "success" {
		reason := body.Message
		if reason == "" {
			reason = fmt.Sprintf("status %q", body.Status)
		}
		return Location{}, &LookupError{Provider: "http", IP: ip, Reason: reason}
	}

	country := body.Country
	if country == "" {
		country = countryName(body.CountryCode)
	}

	return Location{
		Country:   country,
		Region:    body.RegionName,
		City:      body.City,
		StateCode: body.Region,
	}, nil
}
