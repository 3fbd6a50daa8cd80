package sentinel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/harvest-ai/nni-research-cli/internal/errs"
	"github.com/harvest-ai/nni-research-cli/internal/properties"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2/clientcredentials"
)

const maxOutputPixels = 2500

var errUnauthorized = errors.New("unauthorized access, check your client ID and secret")

// ProcessAPIProvider requests composites from the Copernicus Sentinel Hub Process API. Cloud
// masking (SCL classes 3, 8, 9, 10, 11) and compositing run server side in the evalscript.
type ProcessAPIProvider struct {
	URL           string
	TokenURL      string
	ClientIDs     []string
	ClientSecrets []string
	// ResolutionM is the output pixel size in meters.
	ResolutionM float64
	Retries     int
	RetryDelay  time.Duration

	// HTTPClient bypasses the OAuth2 client credentials flow when set.
	HTTPClient *http.Client
	// Decode turns the GeoTIFF response into a composite. Defaults to DecodeGeoTIFF.
	Decode func([]byte) (*Composite, error)
}

func NewProcessAPIProvider() *ProcessAPIProvider {
	return &ProcessAPIProvider{
		URL:           properties.ProcessAPIURL(),
		TokenURL:      properties.CopernicusTokenURL(),
		ClientIDs:     properties.CopernicusClientIDs(),
		ClientSecrets: properties.CopernicusClientSecrets(),
		ResolutionM:   10,
		Retries:       3,
		RetryDelay:    5 * time.Second,
	}
}

func calculatePixels(distance float64, resolution float64) int {
	pixels := distance * (111_000.0 / resolution)
	if pixels < 1 {
		return 1
	}
	if pixels > maxOutputPixels {
		return maxOutputPixels
	}
	return int(pixels)
}

func (p *ProcessAPIProvider) Composite(ctx context.Context, polygon orb.Polygon, params CompositeParams) (*Composite, error) {
	params, err := params.Normalized()
	if err != nil {
		return nil, err
	}

	payload, err := buildRequestPayload(polygon, params, p.ResolutionM)
	if err != nil {
		return nil, err
	}

	body, err := p.post(ctx, payload)
	if err != nil {
		return nil, &errs.ProviderError{Op: "sentinel composite", Params: params.Describe(), Err: err}
	}

	decode := p.Decode
	if decode == nil {
		decode = DecodeGeoTIFF
	}
	composite, err := decode(body)
	if err != nil {
		return nil, &errs.ProviderError{Op: "sentinel composite decode", Params: params.Describe(), Err: err}
	}
	return composite, nil
}

func (p *ProcessAPIProvider) clients(ctx context.Context) ([]*http.Client, error) {
	if p.HTTPClient != nil {
		return []*http.Client{p.HTTPClient}, nil
	}
	if len(p.ClientIDs) == 0 || len(p.ClientSecrets) == 0 || p.TokenURL == "" {
		return nil, fmt.Errorf("missing required environment variables: COPERNICUS_CLIENT_ID, COPERNICUS_CLIENT_SECRET, or COPERNICUS_TOKEN_URL")
	}
	if len(p.ClientIDs) != len(p.ClientSecrets) {
		return nil, fmt.Errorf("mismatched number of client IDs and secrets")
	}

	clients := make([]*http.Client, 0, len(p.ClientIDs))
	for i, clientID := range p.ClientIDs {
		config := &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: p.ClientSecrets[i],
			TokenURL:     p.TokenURL,
		}
		clients = append(clients, config.Client(ctx))
	}
	return clients, nil
}

// post tries every configured credential in turn, retrying each one on transient failures.
func (p *ProcessAPIProvider) post(ctx context.Context, payload []byte) ([]byte, error) {
	clients, err := p.clients(ctx)
	if err != nil {
		return nil, err
	}

	retries := p.Retries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for i, client := range clients {
		for attempt := 1; attempt <= retries; attempt++ {
			body, err := p.postOnce(ctx, client, payload)
			if err == nil {
				return body, nil
			}
			lastErr = err
			log.WithFields(log.Fields{"client": i, "attempt": attempt}).Warnf("[Sentinel] Process API request failed: %v", err)

			if errors.Is(err, errUnauthorized) || ctx.Err() != nil {
				break
			}
			if attempt < retries {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(p.RetryDelay):
				}
			}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("failed to request image after %d attempts: %w", retries, lastErr)
}

func (p *ProcessAPIProvider) postOnce(ctx context.Context, client *http.Client, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/tiff")

	response, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	switch {
	case response.StatusCode == http.StatusOK:
		return body, nil
	case response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden:
		return nil, errUnauthorized
	default:
		return nil, fmt.Errorf("status %d: %s", response.StatusCode, strings.TrimSpace(string(body)))
	}
}

func buildRequestPayload(polygon orb.Polygon, params CompositeParams, resolutionM float64) ([]byte, error) {
	if resolutionM <= 0 {
		resolutionM = 10
	}
	bound := polygon.Bound()
	widthPixels := calculatePixels(bound.Max.X()-bound.Min.X(), resolutionM)
	heightPixels := calculatePixels(bound.Max.Y()-bound.Min.Y(), resolutionM)

	geometry, err := json.Marshal(geojson.NewGeometry(polygon))
	if err != nil {
		return nil, fmt.Errorf("failed to export geometry to GeoJSON: %w", err)
	}

	dataFilter := map[string]interface{}{
		"timeRange": map[string]string{
			"from": params.DateStart.Format(time.RFC3339),
			"to":   params.DateEnd.Format(time.RFC3339),
		},
		"maxCloudCoverage": params.MaxCloudPct,
	}
	if params.Strategy == CompositeLeastCloudyMosaic {
		dataFilter["mosaickingOrder"] = "leastCC"
	}

	requestPayload := map[string]interface{}{
		"input": map[string]interface{}{
			"bounds": map[string]interface{}{
				"geometry": json.RawMessage(geometry),
			},
			"data": []map[string]interface{}{
				{
					"type":       "sentinel-2-l2a",
					"dataFilter": dataFilter,
				},
			},
		},
		"output": map[string]interface{}{
			"width":  widthPixels,
			"height": heightPixels,
			"responses": []map[string]interface{}{
				{
					"identifier": "default",
					"format": map[string]string{
						"type": "image/tiff",
					},
				},
			},
		},
		"evalscript": evalscript(params.Strategy, params.RedEdge),
	}

	requestBody, err := json.Marshal(requestPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}
	return requestBody, nil
}

// evalscript returns Blue, Green, Red, NIR and the chosen red edge band as digital numbers.
func evalscript(strategy CompositeStrategy, redEdge RedEdgeBand) string {
	re := redEdge.sentinelHubName()
	header := fmt.Sprintf(`//VERSION=3
const MASKED_SCL = [3, 8, 9, 10, 11];

function setup() {
  return {
    input: [{ bands: ["B02", "B03", "B04", "B08", "%s", "SCL", "dataMask"], units: "DN" }],
    output: { id: "default", bands: 5, sampleType: SampleType.FLOAT32 },
    mosaicking: "%s"
  };
}

function usable(s) {
  return s.dataMask === 1 && MASKED_SCL.indexOf(s.SCL) === -1;
}
`, re, mosaickingFor(strategy))

	if strategy == CompositeMedian {
		return header + fmt.Sprintf(`
function median(values) {
  values.sort(function (a, b) { return a - b; });
  const mid = Math.floor(values.length / 2);
  return values.length %% 2 ? values[mid] : (values[mid - 1] + values[mid]) / 2;
}

function evaluatePixel(samples) {
  const valid = samples.filter(usable);
  if (valid.length === 0) {
    return [NaN, NaN, NaN, NaN, NaN];
  }
  return [
    median(valid.map(function (s) { return s.B02; })),
    median(valid.map(function (s) { return s.B03; })),
    median(valid.map(function (s) { return s.B04; })),
    median(valid.map(function (s) { return s.B08; })),
    median(valid.map(function (s) { return s.%s; })),
  ];
}
`, re)
	}

	return header + fmt.Sprintf(`
function evaluatePixel(sample) {
  if (!usable(sample)) {
    return [NaN, NaN, NaN, NaN, NaN];
  }
  return [sample.B02, sample.B03, sample.B04, sample.B08, sample.%s];
}
`, re)
}

func mosaickingFor(strategy CompositeStrategy) string {
	if strategy == CompositeMedian {
		return "ORBIT"
	}
	return "SIMPLE"
}
