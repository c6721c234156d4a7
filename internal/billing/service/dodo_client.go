package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/scyra/scyra/internal/billing/domain"
	"github.com/scyra/scyra/internal/config"
	obsmetrics "github.com/scyra/scyra/internal/observability/metrics"
	"go.uber.org/zap"
)

type dodoCustomer struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type dodoSubscriptionRequest struct {
	ProductID string       `json:"product_id"`
	Customer  dodoCustomer `json:"customer"`
	ReturnURL string       `json:"return_url,omitempty"`
}

type dodoSubscriptionResponse struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
	PaymentLink string `json:"payment_link"`
}

// DodoClient calls the Dodo Payments REST API.
type DodoClient struct {
	log     *zap.Logger
	apiKey  string
	baseURL string
	client  *http.Client
	metrics *obsmetrics.Metrics
}

func NewDodoClient(log *zap.Logger, cfg config.Config, metrics *obsmetrics.Metrics) domain.PaymentClient {
	return &DodoClient{
		log:     log.Named("billing.dodo"),
		apiKey:  cfg.Dodo.APIKey,
		baseURL: strings.TrimRight(cfg.Dodo.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Dodo.Timeout},
		metrics: metrics,
	}
}

func (c *DodoClient) CreateSubscription(ctx context.Context, req domain.CreateSubscriptionRequest) (*domain.Subscription, error) {
	if c.apiKey == "" {
		return nil, domain.ErrProviderFailure
	}

	body, err := json.Marshal(dodoSubscriptionRequest{
		ProductID: req.ProductID,
		Customer: dodoCustomer{
			Email: req.CustomerEmail,
			Name:  req.CustomerName,
		},
		ReturnURL: req.ReturnURL,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/subscriptions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if c.metrics != nil {
		c.metrics.RecordUpstreamCall(ctx, "dodo", "create_subscription", time.Since(start), err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn("subscription create rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return nil, fmt.Errorf("%w: status %d", domain.ErrProviderFailure, resp.StatusCode)
	}

	var decoded dodoSubscriptionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}

	checkoutURL := decoded.CheckoutURL
	if checkoutURL == "" {
		checkoutURL = decoded.PaymentLink
	}
	return &domain.Subscription{
		ID:          decoded.ID,
		CheckoutURL: checkoutURL,
	}, nil
}
