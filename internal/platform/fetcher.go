package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/MoovFleet/MoovFleet/internal/common/logger"
)

const (
	endpointDriverProfiles = "/v1/parks/driver-profiles/list"
	endpointOrders         = "/v1/parks/orders/list"
	endpointTransactions   = "/v1/parks/transactions/list"
	endpointWorkRules      = "/v1/parks/work-rules/list"
)

// Fetcher retrieves the three collections a sync run needs. Each fetch fails
// fast on the first bad page; no retries happen at this layer.
type Fetcher struct {
	client   *Client
	pageSize int
	maxPages int
	log      logger.Logger
}

// NewFetcher builds a fetcher. maxPages is the hard ceiling guarding every
// pagination loop against a misbehaving API.
func NewFetcher(client *Client, pageSize, maxPages int, log logger.Logger) *Fetcher {
	if pageSize <= 0 {
		pageSize = 100
	}
	if maxPages <= 0 {
		maxPages = 50
	}
	return &Fetcher{client: client, pageSize: pageSize, maxPages: maxPages, log: log}
}

type driverProfilesRequest struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type driverProfilesEnvelope struct {
	DriverProfiles []DriverProfile `json:"driver_profiles"`
	Total          int             `json:"total"`
}

// FetchDrivers retrieves the full driver roster with offset paging. The
// roster is not filtered to currently-working drivers: matching needs every
// profile the park has ever seen.
func (f *Fetcher) FetchDrivers(ctx context.Context) ([]DriverProfile, error) {
	var all []DriverProfile
	for page := 0; page < f.maxPages; page++ {
		var env driverProfilesEnvelope
		req := driverProfilesRequest{Limit: f.pageSize, Offset: page * f.pageSize}
		if err := f.client.post(ctx, endpointDriverProfiles, req, &env); err != nil {
			return nil, fmt.Errorf("fetch drivers: %w", err)
		}
		all = append(all, env.DriverProfiles...)
		if len(env.DriverProfiles) < f.pageSize {
			return all, nil
		}
	}
	if f.log != nil {
		f.log.Warnf("driver roster pagination hit page ceiling (%d pages), roster may be truncated", f.maxPages)
	}
	return all, nil
}

type windowRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type ordersEnvelope struct {
	Orders []Order `json:"orders"`
}

// FetchOrders retrieves a day's orders in one bounded request. The platform
// sizes this endpoint's single page for a full day's volume, so no cursor
// loop is needed here.
func (f *Fetcher) FetchOrders(ctx context.Context, from, to time.Time) ([]Order, error) {
	var env ordersEnvelope
	req := windowRequest{From: from.Format(time.RFC3339), To: to.Format(time.RFC3339)}
	if err := f.client.post(ctx, endpointOrders, req, &env); err != nil {
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	return env.Orders, nil
}

type transactionsRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Cursor string `json:"cursor,omitempty"`
}

type transactionsEnvelope struct {
	Transactions []Transaction `json:"transactions"`
	Cursor       string        `json:"cursor"`
}

// FetchTransactions retrieves the window's transactions, following the
// server-issued cursor until it is empty or the page ceiling is hit.
func (f *Fetcher) FetchTransactions(ctx context.Context, from, to time.Time) ([]Transaction, error) {
	var all []Transaction
	cursor := ""
	for page := 0; page < f.maxPages; page++ {
		var env transactionsEnvelope
		req := transactionsRequest{
			From:   from.Format(time.RFC3339),
			To:     to.Format(time.RFC3339),
			Cursor: cursor,
		}
		if err := f.client.post(ctx, endpointTransactions, req, &env); err != nil {
			return nil, fmt.Errorf("fetch transactions: %w", err)
		}
		all = append(all, env.Transactions...)
		if env.Cursor == "" {
			return all, nil
		}
		cursor = env.Cursor
	}
	if f.log != nil {
		f.log.Warnf("transaction pagination hit page ceiling (%d pages), window may be truncated", f.maxPages)
	}
	return all, nil
}

type workRulesEnvelope struct {
	WorkRules []WorkRule `json:"work_rules"`
}

// FetchWorkRules retrieves the park's work-rule list (single page).
func (f *Fetcher) FetchWorkRules(ctx context.Context) ([]WorkRule, error) {
	var env workRulesEnvelope
	if err := f.client.post(ctx, endpointWorkRules, struct{}{}, &env); err != nil {
		return nil, fmt.Errorf("fetch work rules: %w", err)
	}
	return env.WorkRules, nil
}
