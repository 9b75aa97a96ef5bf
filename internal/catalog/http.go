package catalog

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/telemetry"
)

const (
	// DefaultTimeout bounds a single catalog request.
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 4 << 20
)

// HTTPClient reads the catalog from a PokeAPI-shaped REST service.
type HTTPClient struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	tracer  trace.Tracer
}

// NewHTTPClient creates a client for baseURL (for example
// "https://pokeapi.co/api/v2"). A zero timeout uses DefaultTimeout and a nil
// hc uses http.DefaultClient.
func NewHTTPClient(baseURL string, timeout time.Duration, hc *http.Client) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    hc,
		tracer:  telemetry.Tracer("github.com/hpungsan/critter/internal/catalog"),
	}
}

func (c *HTTPClient) FetchCreature(ctx context.Context, id int) (*CreatureDoc, error) {
	var doc CreatureDoc
	if err := c.get(ctx, fmt.Sprintf("pokemon/%d", id), c.baseURL+fmt.Sprintf("/pokemon/%d", id), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *HTTPClient) FetchSpecies(ctx context.Context, id int) (*SpeciesDoc, error) {
	var doc SpeciesDoc
	if err := c.get(ctx, fmt.Sprintf("pokemon-species/%d", id), c.baseURL+fmt.Sprintf("/pokemon-species/%d", id), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// FetchEvolutionChain accepts the absolute URL from a species document or a
// path relative to the base URL.
func (c *HTTPClient) FetchEvolutionChain(ctx context.Context, url string) (*EvolutionChainDoc, error) {
	full := url
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		full = c.baseURL + "/" + strings.TrimLeft(url, "/")
	}
	var doc EvolutionChainDoc
	if err := c.get(ctx, chainResource(url), full, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// get fetches url into out. resource names the document in errors and spans.
func (c *HTTPClient) get(ctx context.Context, resource, url string, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "catalog.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("catalog.resource", resource),
			attribute.String("http.url", url),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.NewCatalogUnavailable(resource, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return errors.NewTimeout(resource, err)
		}
		return errors.NewCatalogUnavailable(resource, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.NewCatalogNotFound(resource)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return errors.NewCatalogUnavailable(resource, fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return errors.NewTimeout(resource, err)
		}
		return errors.NewCatalogUnavailable(resource, fmt.Errorf("decode: %w", err))
	}
	return nil
}

// chainResource names an evolution chain by its numeric ID when the URL has one.
func chainResource(url string) string {
	if id := IDFromURL(url); id > 0 {
		return fmt.Sprintf("evolution-chain/%d", id)
	}
	return "evolution-chain/" + url
}
