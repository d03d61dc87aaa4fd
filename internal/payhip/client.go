package payhip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/super-videotheque/backend/internal/models"
	"github.com/super-videotheque/backend/pkg/apperror"
)

// Config configures the license API client.
type Config struct {
	BaseURL         string
	APIKey          string
	ProductID       string
	Timeout         time.Duration
	FreshnessWindow time.Duration
}

// licenseData is the "data" object of /license/verify.
type licenseData struct {
	Enabled     *bool      `json:"enabled"`
	ProductLink string     `json:"product_link"`
	ProductName string     `json:"product_name"`
	LicenseKey  string     `json:"license_key"`
	BuyerEmail  string     `json:"buyer_email"`
	Uses        int        `json:"uses"`
	Date        flexString `json:"date"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type licenseEnvelope struct {
	Data    json.RawMessage `json:"data"`
	Success *bool           `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

// Client validates purchase codes against the Payhip license API.
type Client struct {
	baseURL   string
	apiKey    string
	productID string
	freshness time.Duration
	http      *http.Client
	logger    *zap.Logger
	now       func() time.Time
}

// NewClient creates a license client. Every call is bounded by cfg.Timeout.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	freshness := cfg.FreshnessWindow
	if freshness <= 0 {
		freshness = 60 * time.Minute
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		productID: cfg.ProductID,
		freshness: freshness,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
		now:       time.Now,
	}
}

// Validate checks a code upstream and returns the normalized result.
// Failures are apperror kinds: LicenseInvalid, LicenseDisabled, LicenseExpired or
// LicenseServiceUnavailable. Calls are never retried.
func (c *Client) Validate(ctx context.Context, code string) (*models.LicenseValidation, error) {
	data, raw, err := c.fetch(ctx, code)
	if err != nil {
		return nil, err
	}
	if data.LicenseKey == "" {
		return nil, apperror.ErrLicenseInvalid
	}
	if data.Enabled != nil && !*data.Enabled {
		return nil, apperror.ErrLicenseDisabled
	}

	var purchasedAt *time.Time
	if data.Date != "" {
		if t, ok := parsePurchaseDate(string(data.Date)); ok {
			purchasedAt = &t
		} else {
			c.logger.Warn("unparseable license purchase date, skipping freshness check", zap.String("date", string(data.Date)))
		}
	}
	if purchasedAt != nil && c.now().Sub(*purchasedAt) > c.freshness {
		return nil, apperror.ErrLicenseExpired
	}

	productID := data.ProductLink
	if productID == "" {
		productID = c.productID
	}
	product := data.ProductName
	if product == "" {
		product = productID
	}

	return &models.LicenseValidation{
		Valid:       true,
		LicenseKey:  data.LicenseKey,
		Status:      models.LicenseStatusActive,
		Email:       strings.TrimSpace(data.BuyerEmail),
		ProductID:   productID,
		ProductName: data.ProductName,
		PurchasedAt: purchasedAt,
		Grant:       ClassifyProduct(product),
		Metadata:    raw,
	}, nil
}

func (c *Client) fetch(ctx context.Context, code string) (*licenseData, map[string]any, error) {
	endpoint := c.baseURL + "/license/verify?" + url.Values{"license_key": {code}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, unavailable(err)
	}
	req.Header.Set("product-secret-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("license service request failed", zap.Error(err))
		return nil, nil, unavailable(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, unavailable(err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusUnprocessableEntity:
		c.logger.Info("license rejected upstream", zap.Int("status", resp.StatusCode))
		return nil, nil, apperror.ErrLicenseInvalid
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Error("license service error status", zap.Int("status", resp.StatusCode))
		return nil, nil, unavailable(fmt.Errorf("upstream status %d", resp.StatusCode))
	}

	var env licenseEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, nil, unavailable(fmt.Errorf("decode response: %w", err))
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, nil, apperror.ErrLicenseInvalid
	}
	var data licenseData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		// Payhip answers unknown keys with an empty array instead of an object.
		var arr []any
		if json.Unmarshal(env.Data, &arr) == nil {
			return nil, nil, apperror.ErrLicenseInvalid
		}
		return nil, nil, unavailable(fmt.Errorf("decode license data: %w", err))
	}
	var raw map[string]any
	_ = json.Unmarshal(env.Data, &raw)
	return &data, raw, nil
}

// unavailable reports an upstream failure that says nothing about the code itself.
func unavailable(cause error) error {
	return apperror.Wrap(apperror.KindLicenseServiceUnavailable, apperror.ErrLicenseServiceUnavailable.Message, cause)
}

var purchaseDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parsePurchaseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range purchaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0), true
	}
	return time.Time{}, false
}
