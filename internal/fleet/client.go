// Package fleet is the client for the upstream fleet integration API.
package fleet

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

	"github.com/newrelic/go-agent/v3/newrelic"

	"fleetrecon/internal/config"
	"fleetrecon/internal/domain"
)

const fleetOrdersPath = "/fleetIntegration/v1/getFleetOrders"

// maxPages caps pagination in case the upstream keeps returning full pages.
const maxPages = 100

// TokenSource provides the bearer token for the fleet API. Token refresh
// lives behind this interface.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token returns the token.
func (t StaticToken) Token(context.Context) (string, error) {
	if t == "" {
		return "", errors.New("fleet api token not configured")
	}
	return string(t), nil
}

// StatusError is returned when the API answers with a non-2xx status or a
// non-zero application code.
type StatusError struct {
	HTTPStatus int
	Code       int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fleet api: http %d, code %d: %s", e.HTTPStatus, e.Code, e.Message)
}

// Client fetches fleet orders.
type Client struct {
	baseURL    string
	pageLimit  int
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient creates a new Client. The transport is wrapped for New Relic so
// calls show up as external segments of the running transaction.
func NewClient(cfg config.FleetConfig, tokens TokenSource) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		pageLimit: cfg.PageLimit,
		tokens:    tokens,
		httpClient: &http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: newrelic.NewRoundTripper(http.DefaultTransport),
		},
	}
}

type ordersRequest struct {
	Offset     int      `json:"offset"`
	Limit      int      `json:"limit"`
	CompanyIDs []string `json:"company_ids"`
	CompanyID  string   `json:"company_id"`
	StartTS    int64    `json:"start_ts"`
	EndTS      int64    `json:"end_ts"`
}

type ordersResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Orders []wireOrder `json:"orders"`
	} `json:"data"`
}

type wireOrder struct {
	OrderReference            string     `json:"order_reference"`
	DriverUUID                string     `json:"driver_uuid"`
	PaymentMethod             string     `json:"payment_method"`
	OrderStatus               string     `json:"order_status"`
	OrderPrice                *wirePrice `json:"order_price"`
	OrderCreatedTimestamp     *int64     `json:"order_created_timestamp"`
	OrderAcceptedTimestamp    *int64     `json:"order_accepted_timestamp"`
	OrderPickupTimestamp      *int64     `json:"order_pickup_timestamp"`
	OrderDropOffTimestamp     *int64     `json:"order_drop_off_timestamp"`
	OrderFinishedTimestamp    *int64     `json:"order_finished_timestamp"`
	PaymentConfirmedTimestamp *int64     `json:"payment_confirmed_timestamp"`
}

type wirePrice struct {
	RidePrice       *float64 `json:"ride_price"`
	BookingFee      *float64 `json:"booking_fee"`
	TollFee         *float64 `json:"toll_fee"`
	Tip             *float64 `json:"tip"`
	CashDiscount    *float64 `json:"cash_discount"`
	Commission      *float64 `json:"commission"`
	InAppDiscount   *float64 `json:"in_app_discount"`
	NetEarnings     *float64 `json:"net_earnings"`
	CancellationFee *float64 `json:"cancellation_fee"`
}

// FetchOrders returns every order of the company in [start, end]. It pages
// through the API until a short page comes back; any failing page fails the
// whole fetch so callers never see a partial batch.
func (c *Client) FetchOrders(ctx context.Context, companyID string, start, end time.Time) ([]domain.OrderSnapshot, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("fleet token: %w", err)
	}

	var snapshots []domain.OrderSnapshot
	for page := 0; page < maxPages; page++ {
		req := ordersRequest{
			Offset:     page * c.pageLimit,
			Limit:      c.pageLimit,
			CompanyIDs: []string{companyID},
			CompanyID:  companyID,
			StartTS:    start.Unix(),
			EndTS:      end.Unix(),
		}

		orders, err := c.fetchPage(ctx, token, req)
		if err != nil {
			return nil, err
		}
		for _, o := range orders {
			snapshots = append(snapshots, o.toSnapshot())
		}
		if len(orders) < c.pageLimit {
			return snapshots, nil
		}
	}

	return nil, fmt.Errorf("fleet api: more than %d pages of orders", maxPages)
}

func (c *Client) fetchPage(ctx context.Context, token string, body ordersRequest) ([]wireOrder, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+fleetOrdersPath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fleet api request: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("fleet api read body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &StatusError{HTTPStatus: res.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	var out ordersResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("fleet api decode: %w", err)
	}
	if out.Code != 0 {
		return nil, &StatusError{HTTPStatus: res.StatusCode, Code: out.Code, Message: out.Message}
	}

	return out.Data.Orders, nil
}

func (o wireOrder) toSnapshot() domain.OrderSnapshot {
	s := domain.OrderSnapshot{
		OrderReference: strings.TrimSpace(o.OrderReference),
		Status:         domain.OrderStatus(o.OrderStatus),
		DriverUUID:     o.DriverUUID,
		PaymentMethod:  domain.PaymentMethod(o.PaymentMethod),
		Timestamps: domain.Timestamps{
			Created:          unix(o.OrderCreatedTimestamp),
			Accepted:         unix(o.OrderAcceptedTimestamp),
			Pickup:           unix(o.OrderPickupTimestamp),
			Dropoff:          unix(o.OrderDropOffTimestamp),
			Finished:         unix(o.OrderFinishedTimestamp),
			PaymentConfirmed: unix(o.PaymentConfirmedTimestamp),
		},
	}
	if p := o.OrderPrice; p != nil {
		s.Fare = domain.Fare{
			RidePrice:       value(p.RidePrice),
			BookingFee:      value(p.BookingFee),
			TollFee:         value(p.TollFee),
			Tip:             value(p.Tip),
			CashDiscount:    value(p.CashDiscount),
			Commission:      value(p.Commission),
			InAppDiscount:   value(p.InAppDiscount),
			NetEarnings:     value(p.NetEarnings),
			CancellationFee: value(p.CancellationFee),
		}
	}
	return s
}

func value(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func unix(ts *int64) time.Time {
	if ts == nil || *ts == 0 {
		return time.Time{}
	}
	return time.Unix(*ts, 0).UTC()
}
