package skydropxhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/PaqueMex/EnvioBox/internal/integrations/carrier"
	"github.com/PaqueMex/EnvioBox/internal/models"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Client talks to the Skydropx REST API. No retries: a failed call surfaces
// to the caller, and the affordability check upstream guarantees the common
// rejection path never reaches here.
type Client struct {
	baseURL string
	tokens  *tokenProvider
	httpc   *http.Client
}

func New(baseURL, clientID, clientSecret string) *Client {
	if baseURL == "" {
		baseURL = "https://api.skydropx.com"
	}
	httpc := &http.Client{Timeout: 10 * time.Second}
	return &Client{
		baseURL: baseURL,
		tokens:  newTokenProvider(baseURL, clientID, clientSecret, httpc),
		httpc:   httpc,
	}
}

type quotationResp struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Provider           string          `json:"provider"`
			ServiceLevelName   string          `json:"service_level_name"`
			TotalPricing       json.RawMessage `json:"total_pricing"`
			Currency           string          `json:"currency_local"`
			Days               int             `json:"days"`
			AvailableForPickup bool            `json:"available_for_pickup"`
		} `json:"attributes"`
	} `json:"data"`
}

func (c *Client) GetQuotes(ctx context.Context, req models.QuoteRequest) ([]models.RateQuote, error) {
	payload := map[string]any{
		"quotation": map[string]any{
			"address_from": map[string]any{
				"country_code": "mx",
				"postal_code":  req.OriginZip,
				"area_level3":  req.OriginColonia,
			},
			"address_to": map[string]any{
				"country_code": "mx",
				"postal_code":  req.DestZip,
				"area_level3":  req.DestColonia,
			},
			"parcel": map[string]any{
				"mass_unit":   "KG",
				"weight":      req.Parcel.WeightKg,
				"length_unit": "CM",
				"length":      req.Parcel.LengthCm,
				"width":       req.Parcel.WidthCm,
				"height":      req.Parcel.HeightCm,
			},
		},
	}

	var out quotationResp
	if err := c.do(ctx, http.MethodPost, "/api/v1/quotations", payload, &out); err != nil {
		return nil, err
	}

	rates := make([]models.RateQuote, 0, len(out.Data))
	for _, d := range out.Data {
		price, err := parsePricing(d.Attributes.TotalPricing)
		if err != nil {
			// Provider sometimes returns rates without pricing; skip those.
			continue
		}
		currency := d.Attributes.Currency
		if currency == "" {
			currency = "MXN"
		}
		rates = append(rates, models.RateQuote{
			ID:                 d.ID,
			Provider:           d.Attributes.Provider,
			ServiceLevelName:   d.Attributes.ServiceLevelName,
			TotalPricing:       price,
			Currency:           currency,
			Days:               d.Attributes.Days,
			AvailableForPickup: d.Attributes.AvailableForPickup,
		})
	}
	return rates, nil
}

type shipmentResp struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			WorkflowStatus string  `json:"workflow_status"`
			TrackingNumber *string `json:"master_tracking_number"`
			LabelURL       *string `json:"label_url"`
		} `json:"attributes"`
	} `json:"data"`
}

func (c *Client) PurchaseLabel(ctx context.Context, req carrier.PurchaseRequest) (carrier.PurchaseResult, error) {
	parcels := make([]map[string]any, 0, len(req.Parcels))
	for _, p := range req.Parcels {
		parcels = append(parcels, map[string]any{
			"weight": p.WeightKg, "length": p.LengthCm, "width": p.WidthCm, "height": p.HeightCm,
			"mass_unit": "KG", "length_unit": "CM", "package_number": "1",
		})
	}

	payload := map[string]any{
		"shipment": map[string]any{
			"rate_id":      req.RateID,
			"address_from": addressPayload(req.AddressFrom),
			"address_to":   addressPayload(req.AddressTo),
			"packages":     parcels,
		},
	}

	raw, err := c.doRaw(ctx, http.MethodPost, "/api/v1/shipments", payload)
	if err != nil {
		return carrier.PurchaseResult{}, err
	}

	var out shipmentResp
	if err := json.Unmarshal(raw, &out); err != nil {
		return carrier.PurchaseResult{}, errors.Wrap(err, "decode shipment")
	}
	if out.Data.ID == "" {
		return carrier.PurchaseResult{}, errors.New("skydropx shipment response without id")
	}

	return carrier.PurchaseResult{
		ExternalID:     out.Data.ID,
		TrackingNumber: out.Data.Attributes.TrackingNumber,
		LabelURL:       out.Data.Attributes.LabelURL,
		WorkflowStatus: out.Data.Attributes.WorkflowStatus,
		RawData:        string(raw),
	}, nil
}

func (c *Client) RefreshShipment(ctx context.Context, externalID string) (carrier.PurchaseResult, error) {
	raw, err := c.doRaw(ctx, http.MethodGet, "/api/v1/shipments/"+externalID, nil)
	if err != nil {
		return carrier.PurchaseResult{}, err
	}

	var out shipmentResp
	if err := json.Unmarshal(raw, &out); err != nil {
		return carrier.PurchaseResult{}, errors.Wrap(err, "decode shipment")
	}
	if out.Data.ID == "" {
		return carrier.PurchaseResult{}, errors.New("skydropx shipment response without id")
	}

	return carrier.PurchaseResult{
		ExternalID:     out.Data.ID,
		TrackingNumber: out.Data.Attributes.TrackingNumber,
		LabelURL:       out.Data.Attributes.LabelURL,
		WorkflowStatus: out.Data.Attributes.WorkflowStatus,
		RawData:        string(raw),
	}, nil
}

type cancelResp struct {
	Data struct {
		Attributes struct {
			Status string `json:"status"`
		} `json:"attributes"`
	} `json:"data"`
}

func (c *Client) CancelLabel(ctx context.Context, externalID, reason string) (carrier.CancelResult, error) {
	payload := map[string]any{"reason": reason}

	var out cancelResp
	if err := c.do(ctx, http.MethodPost, "/api/v1/shipments/"+externalID+"/cancel", payload, &out); err != nil {
		return carrier.CancelResult{}, err
	}
	return carrier.CancelResult{Confirmed: out.Data.Attributes.Status != "failed"}, nil
}

type trackingResp struct {
	Data struct {
		Attributes struct {
			Status string `json:"status"`
			Events []struct {
				Status      string `json:"status"`
				Description string `json:"description"`
				Location    string `json:"location"`
				Timestamp   string `json:"timestamp"`
			} `json:"events"`
		} `json:"attributes"`
	} `json:"data"`
}

func (c *Client) TrackLabel(ctx context.Context, trackingNumber, carrierHint string) (carrier.TrackingResult, error) {
	path := "/api/v1/trackings/" + trackingNumber
	if carrierHint != "" {
		path += "?carrier=" + carrierHint
	}

	var out trackingResp
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return carrier.TrackingResult{}, err
	}

	status := normalizeStatus(out.Data.Attributes.Status)
	events := make([]*models.TrackingEvent, 0, len(out.Data.Attributes.Events))
	for _, e := range out.Data.Attributes.Events {
		evTime := time.Now().UTC()
		if e.Timestamp != "" {
			if t, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
				evTime = t.UTC()
			}
		}
		ev := &models.TrackingEvent{
			TrackingNumber: trackingNumber,
			Status:         normalizeStatus(e.Status),
			EventDate:      evTime,
		}
		if e.Description != "" {
			d := e.Description
			ev.Description = &d
		}
		if e.Location != "" {
			l := e.Location
			ev.Location = &l
		}
		events = append(events, ev)
	}

	return carrier.TrackingResult{Status: status, Events: events}, nil
}

func normalizeStatus(s string) string {
	switch s {
	case "created", "label_created":
		return models.TrackingStatusCreated
	case "picked_up", "collected":
		return models.TrackingStatusPickedUp
	case "in_transit", "out_for_delivery":
		return models.TrackingStatusInTransit
	case "delivered":
		return models.TrackingStatusDelivered
	case "cancelled":
		return models.TrackingStatusCancelled
	default:
		return models.TrackingStatusUnknown
	}
}

func addressPayload(a models.Address) map[string]any {
	return map[string]any{
		"name":         a.Name,
		"phone":        a.Phone,
		"email":        a.Email,
		"country_code": "mx",
		"postal_code":  a.Zip,
		"street1":      a.Line(),
		"area_level2":  a.City,
		"area_level1":  a.State,
	}
}

func parsePricing(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 {
		return decimal.Decimal{}, errors.New("empty pricing")
	}
	// The API returns pricing either as a number or a quoted string.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return decimal.NewFromString(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "parse pricing")
	}
	return decimal.NewFromFloat(f), nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	raw, err := c.doRaw(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(raw, out), "decode response")
}

func (c *Client) doRaw(ctx context.Context, method, path string, payload any) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.tokens.Invalidate()
		return nil, errors.Errorf("skydropx http 401: %s", truncate(raw, 200))
	}
	if resp.StatusCode/100 != 2 {
		return nil, errors.Errorf("skydropx http %d: %s", resp.StatusCode, truncate(raw, 200))
	}
	return raw, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
