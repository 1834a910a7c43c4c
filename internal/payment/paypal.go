package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrPaymentNotCompleted means the gateway reported a non-success capture
// status; the caller must release the reservation, never finalize it.
var ErrPaymentNotCompleted = errors.New("payment not completed")

const capturedStatus = "COMPLETED"

type CaptureResult struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

func (r CaptureResult) Completed() bool { return r.Status == capturedStatus }

// apiError is a non-2xx gateway response. 4xx responses are the caller's
// problem and do not trip the breaker.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("paypal: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the PayPal orders API (create intent, capture). All calls
// go through a circuit breaker; transport failures surface to the HTTP
// handler, which lets the shopper retry while the sweeper backstops any
// stock left reserved.
type Client struct {
	BaseURL    string
	ClientID   string
	Secret     string
	HTTPClient *http.Client

	breaker *gobreaker.CircuitBreaker[[]byte]

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func NewClient(baseURL, clientID, secret string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ClientID:   clientID,
		Secret:     secret,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:    "paypal",
			Timeout: 30 * time.Second,
			IsSuccessful: func(err error) bool {
				if err == nil {
					return true
				}
				var ae *apiError
				return errors.As(err, &ae) && ae.StatusCode < 500
			},
		}),
	}
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.ClientID, c.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		return "", err
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", err
	}
	c.token = tok.AccessToken
	// renew a minute early
	c.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn-60) * time.Second)
	return c.token, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &apiError{StatusCode: resp.StatusCode, Body: string(body)}
		}
		return body, nil
	})
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	respBody, err := c.do(req)
	if err != nil {
		return err
	}
	if out != nil {
		return json.Unmarshal(respBody, out)
	}
	return nil
}

// CreateOrder opens a payment intent for the server-computed total and
// returns the gateway's order reference. The amount never comes from the
// client.
func (c *Client) CreateOrder(ctx context.Context, totalCents int, currency string) (string, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": map[string]string{
				"currency_code": currency,
				"value":         centsToDecimal(totalCents),
			},
		}},
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.postJSON(ctx, "/v2/checkout/orders", payload, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("paypal: create order returned no id")
	}
	return out.ID, nil
}

// CaptureOrder confirms capture of the intent and returns the normalized
// result. Its status decides whether the caller finalizes or releases.
func (c *Client) CaptureOrder(ctx context.Context, intentID string) (CaptureResult, error) {
	var out struct {
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	if err := c.postJSON(ctx, "/v2/checkout/orders/"+intentID+"/capture", nil, &out); err != nil {
		return CaptureResult{}, err
	}

	res := CaptureResult{Status: out.Status}
	for _, u := range out.PurchaseUnits {
		for _, cap := range u.Payments.Captures {
			res.TransactionID = cap.ID
			if cap.Status != "" {
				res.Status = cap.Status
			}
		}
	}
	return res, nil
}

func centsToDecimal(cents int) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
