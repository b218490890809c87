//go:build pact
// +build pact

package consumer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	pacttest "github.com/Apurer/stock-ledger/test/pact"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"
)

type batchPayload struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Expiry   string `json:"expiry,omitempty"`
}

type stockPayload struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type problemDetail struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Extensions struct {
		Available int `json:"available"`
	} `json:"extensions"`
}

type apiError struct {
	status    int
	kind      string
	title     string
	detail    string
	available int
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

func (e apiError) Status() int {
	return e.status
}

func TestPharmacyPortalContract(t *testing.T) {
	t.Helper()
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")
	problemContentType := matchers.S("application/problem+json")

	pact.AddInteraction().
		Given(pacttest.StateLedgerBaseline).
		UponReceiving("a request to receive a batch").
		WithRequest("POST", "/v1/inventory/batches", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(pacttest.ExampleBatchPayload())
		}).
		WillRespondWith(http.StatusCreated, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"name":      matchers.S(pacttest.StockedItem),
				"quantity":  matchers.Like(pacttest.StockedQuantity),
				"expiry":    matchers.Term(pacttest.StockedExpiry, `\d{4}-\d{2}-\d{2}|none`),
				"unitCost":  matchers.Like("0"),
				"unitPrice": matchers.Like("0"),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StatePanadolInStock).
		UponReceiving("a request for the stock of a stocked item").
		WithRequest("GET", "/v1/inventory/stock/"+pacttest.StockedItem).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"name":     matchers.S(pacttest.StockedItem),
				"quantity": matchers.Like(pacttest.StockedQuantity),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StatePanadolInStock).
		UponReceiving("a withdrawal exceeding the available stock").
		WithRequest("POST", "/v1/transactions", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(pacttest.ExampleOverdrawPayload())
		}).
		WillRespondWith(http.StatusConflict, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", problemContentType)
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/insufficient-stock"),
				"title":  matchers.S("Insufficient Stock"),
				"status": matchers.Like(http.StatusConflict),
				"extensions": matchers.Map{
					"item":      matchers.S(pacttest.StockedItem),
					"requested": matchers.Like(pacttest.OverdrawQuantity),
					"available": matchers.Like(pacttest.StockedQuantity),
				},
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderMissing).
		UponReceiving("a request for a missing order").
		WithRequest("GET", "/v1/orders/"+pacttest.MissingOrderID).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", problemContentType)
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/not-found"),
				"title":  matchers.S("Resource Not Found"),
				"status": matchers.Like(http.StatusNotFound),
			})
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		client := newLedgerClient(config)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		created, err := client.AddBatch(ctx, batchPayload{
			Name:     pacttest.StockedItem,
			Quantity: pacttest.StockedQuantity,
			Expiry:   pacttest.StockedExpiry,
		})
		if err != nil {
			return fmt.Errorf("add batch: %w", err)
		}
		if created.Name != pacttest.StockedItem {
			return fmt.Errorf("expected batch for %s, got %+v", pacttest.StockedItem, created)
		}

		stock, err := client.StockCount(ctx, pacttest.StockedItem)
		if err != nil {
			return fmt.Errorf("stock count: %w", err)
		}
		if stock.Quantity != pacttest.StockedQuantity {
			return fmt.Errorf("expected %d units, got %d", pacttest.StockedQuantity, stock.Quantity)
		}

		err = client.Withdraw(ctx, pacttest.StockedItem, pacttest.OverdrawQuantity)
		apiErr, ok := err.(apiError)
		if !ok || apiErr.Status() != http.StatusConflict {
			return fmt.Errorf("expected 409 for overdraw, got %v", err)
		}
		if apiErr.available != pacttest.StockedQuantity {
			return fmt.Errorf("expected %d available, got %d", pacttest.StockedQuantity, apiErr.available)
		}

		if err := client.GetOrder(ctx, pacttest.MissingOrderID); err == nil {
			return fmt.Errorf("expected 404 for order %s", pacttest.MissingOrderID)
		} else if apiErr, ok := err.(apiError); ok && apiErr.Status() != http.StatusNotFound {
			return fmt.Errorf("expected 404, got %d", apiErr.Status())
		}

		return nil
	})
	require.NoError(t, err)
}

type ledgerClient struct {
	baseURL    string
	httpClient *http.Client
}

func newLedgerClient(config pactconsumer.MockServerConfig) *ledgerClient {
	host := config.Host
	if host == "" {
		host = "localhost"
	}
	transport := &http.Transport{TLSClientConfig: config.TLSConfig}
	client := &http.Client{Transport: transport, Timeout: 10 * time.Second}
	return &ledgerClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, config.Port),
		httpClient: client,
	}
}

func (c *ledgerClient) AddBatch(ctx context.Context, batch batchPayload) (*batchPayload, error) {
	var out batchPayload
	if err := c.do(ctx, http.MethodPost, "/v1/inventory/batches", batch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ledgerClient) StockCount(ctx context.Context, name string) (*stockPayload, error) {
	var out stockPayload
	if err := c.do(ctx, http.MethodGet, "/v1/inventory/stock/"+name, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *ledgerClient) Withdraw(ctx context.Context, name string, quantity int) error {
	body := map[string]any{"name": name, "quantity": quantity, "type": "OUTGOING"}
	return c.do(ctx, http.MethodPost, "/v1/transactions", body, nil)
}

func (c *ledgerClient) GetOrder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodGet, "/v1/orders/"+id, nil, nil)
}

func (c *ledgerClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(res)
	}
	if out == nil {
		return nil
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
	return apiError{
		status:    status,
		kind:      problem.Type,
		title:     problem.Title,
		detail:    problem.Detail,
		available: problem.Extensions.Available,
	}
}
