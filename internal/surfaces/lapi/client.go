// Package lapi reads the portal's filter lists from the JSON API that backs
// its dataset page.
package lapi

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"time"

	"wris-inventory/internal/components/assert"
	"wris-inventory/internal/components/telemetry"
	"wris-inventory/lib/restyutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

const (
	report_client_post = "client.post"
)

const DefaultBaseUrl = "https://indiawris.gov.in"

var (
	dataItems  = jp.MustParseString("$.data[*]")
	statusCode = jp.MustParseString("$.statusCode")
)

type ClientConfig struct {
	BaseUrl string `json:"base_url"`
	// RequestsPerSecond limits the request rate, bursts of the same size are allowed.
	RequestsPerSecond float64       `json:"requests_per_second"`
	Timeout           time.Duration `json:"-"`
	// DumpDir receives every request and response when set.
	DumpDir string `json:"dump_dir"`
}

type client struct {
	http *resty.Client
	tel  telemetry.API
}

func newClient(config ClientConfig, tel telemetry.API) (*client, error) {
	assert.NotNil(tel)

	if config.BaseUrl == "" {
		config.BaseUrl = DefaultBaseUrl
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 2
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	parsedBaseUrl, err := url.Parse(config.BaseUrl)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(config.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)

	httpClient.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36")
	httpClient.SetHeader("origin", config.BaseUrl)
	httpClient.SetHeader("referer", config.BaseUrl+"/dataSet/")
	httpClient.SetHeader("accept", "application/json, text/plain, */*")
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	httpClient.SetTimeout(config.Timeout)

	burst := max(int(config.RequestsPerSecond), 1)
	rateLimiter := rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel)

	var output restyutil.Output
	if config.DumpDir != "" {
		fsOutput, err := restyutil.NewFilesystemOutput(config.DumpDir)
		if err != nil {
			return nil, err
		}
		output = fsOutput
	}
	restyutil.InstrumentClient(httpClient, otel.Tracer("wris.lapi"), output)

	return &client{http: httpClient, tel: tel}, nil
}

// post sends payload as JSON and returns the entries of the response's data
// array.
func (c *client) post(ctx context.Context, endpoint string, payload map[string]any) ([]any, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(payload).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", endpoint, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("post %s: %s", endpoint, res.Status())
	}

	body, err := oj.Parse(res.Body())
	if err != nil {
		c.tel.ReportBroken(report_client_post, fmt.Errorf("parse %s: %w", endpoint, err))
		return nil, fmt.Errorf("parse %s: %w", endpoint, err)
	}

	status := statusCode.First(body)
	switch v := status.(type) {
	case nil:
	case int64:
		if v != 200 {
			return nil, fmt.Errorf("post %s: status code %d in response", endpoint, v)
		}
	case string:
		if v != "200" {
			return nil, fmt.Errorf("post %s: status code %s in response", endpoint, v)
		}
	}

	return dataItems.Get(body), nil
}
