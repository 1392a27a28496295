//go:build pact
// +build pact

package consumer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	pacttest "github.com/localborga/milling-orders/test/pact"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"
)

type orderPayload struct {
	ID           int64   `json:"id"`
	ItemName     string  `json:"itemName"`
	MillingStyle *string `json:"millingStyle"`
	Status       string  `json:"status"`
}

type orderCreated struct {
	Message string       `json:"message"`
	Order   orderPayload `json:"order"`
}

type problemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

type apiError struct {
	status int
	title  string
	detail string
}

func (e apiError) Error() string {
	msg := e.title
	if msg == "" {
		msg = "api error"
	}
	if e.detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.detail)
	}
	return fmt.Sprintf("%s (status %d)", msg, e.status)
}

func TestTrackingPortalContract(t *testing.T) {
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	request := pacttest.ExampleOrderPayload()
	orderMatcher := matchers.Map{
		"id":           matchers.Like(pacttest.ExistingOrderID),
		"itemName":     matchers.Like(request["itemName"]),
		"millingStyle": matchers.Like(request["millingStyle"]),
		"weightKg":     matchers.Like(20.0),
		"totalPrice":   matchers.Like(60.0),
		"status":       matchers.Term("pending", "pending|milling|completed"),
		"createdAt":    matchers.Like("2026-01-01T00:00:00Z"),
		"updatedAt":    matchers.Like("2026-01-01T00:00:00Z"),
	}
	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")

	pact.AddInteraction().
		Given(pacttest.StateOrdersBaseline).
		UponReceiving("a request to place a custom milling order").
		WithRequest("POST", "/api/orders", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(request)
		}).
		WillRespondWith(http.StatusCreated, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"message": matchers.S("Order created"),
				"order":   orderMatcher,
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderExists).
		UponReceiving("a request to track an existing order").
		WithRequest("GET", fmt.Sprintf("/api/orders/%d", pacttest.ExistingOrderID)).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(orderMatcher)
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderMissing).
		UponReceiving("a request to track a missing order").
		WithRequest("GET", fmt.Sprintf("/api/orders/%d", pacttest.MissingOrderID)).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/not-found"),
				"title":  matchers.S("Order Not Found"),
				"status": matchers.Like(http.StatusNotFound),
			})
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		client := newTrackingClient(config)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		created, err := client.PlaceOrder(ctx, request)
		if err != nil {
			return fmt.Errorf("place order: %w", err)
		}
		if created.Order.ID == 0 || created.Order.Status != "pending" {
			return fmt.Errorf("expected a pending order with an id, got %+v", created.Order)
		}

		tracked, err := client.Track(ctx, pacttest.ExistingOrderID)
		if err != nil {
			return fmt.Errorf("track order: %w", err)
		}
		if tracked.ID != pacttest.ExistingOrderID {
			return fmt.Errorf("expected order id %d, got %d", pacttest.ExistingOrderID, tracked.ID)
		}

		_, err = client.Track(ctx, pacttest.MissingOrderID)
		var apiErr apiError
		if !errors.As(err, &apiErr) {
			return fmt.Errorf("expected an api error for order %d, got %v", pacttest.MissingOrderID, err)
		}
		if apiErr.status != http.StatusNotFound || apiErr.title != "Order Not Found" {
			return fmt.Errorf("unexpected problem for missing order: %v", apiErr)
		}
		return nil
	})
	require.NoError(t, err)
}

type trackingClient struct {
	baseURL    string
	httpClient *http.Client
}

func newTrackingClient(config pactconsumer.MockServerConfig) *trackingClient {
	host := config.Host
	if host == "" {
		host = "localhost"
	}
	transport := &http.Transport{TLSClientConfig: config.TLSConfig}
	return &trackingClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, config.Port),
		httpClient: &http.Client{Transport: transport, Timeout: 10 * time.Second},
	}
}

func (c *trackingClient) PlaceOrder(ctx context.Context, order map[string]any) (*orderCreated, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var created orderCreated
	if err := c.do(req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *trackingClient) Track(ctx context.Context, id int64) (*orderPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/orders/%d", c.baseURL, id), nil)
	if err != nil {
		return nil, err
	}
	var order orderPayload
	if err := c.do(req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *trackingClient) do(req *http.Request, out any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(res)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func decodeAPIError(res *http.Response) error {
	var problem problemDetail
	_ = json.NewDecoder(res.Body).Decode(&problem)
	status := problem.Status
	if status == 0 {
		status = res.StatusCode
	}
	return apiError{status: status, title: problem.Title, detail: problem.Detail}
}
