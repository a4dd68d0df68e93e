package valr

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math/big"
	"net/http"
	"strconv"
	"time"
)

const defaultBaseURL = "https://api.valr.com"

type Config struct {
	ApiKey    string
	ApiSecret string
	BaseURL   string

	// FundingAccountID and LoanAccountID identify the subaccounts between
	// which revolving-debt repayments are moved.
	FundingAccountID string
	LoanAccountID    string

	// Simulation makes all trading and transfer operations side-effect
	// free; only public market data is fetched.
	Simulation bool
}

// Client is a low-level VALR REST client. VALR has no official Go SDK so
// requests are signed by hand: HMAC-SHA512 over timestamp, verb, path and
// body, keyed with the API secret.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiSecret  string
}

func NewClient(config *Config) *Client {
	baseURL := config.BaseURL
	if len(baseURL) == 0 {
		baseURL = defaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		apiKey:     config.ApiKey,
		apiSecret:  config.ApiSecret,
	}
}

func (c *Client) call(
	ctx context.Context,
	method string,
	path string,
	request interface{},
	response interface{},
) error {
	var body []byte
	if request != nil {
		var err error
		body, err = json.Marshal(request)
		if err != nil {
			return fmt.Errorf("could not marshal request body: [%v]", err)
		}
	}

	httpRequest, err := http.NewRequestWithContext(
		ctx,
		method,
		c.baseURL+path,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("could not create request: [%v]", err)
	}

	httpRequest.Header.Set("Content-Type", "application/json")

	if len(c.apiKey) > 0 {
		timestamp := strconv.FormatInt(
			time.Now().UnixNano()/int64(time.Millisecond),
			10,
		)

		httpRequest.Header.Set("X-VALR-API-KEY", c.apiKey)
		httpRequest.Header.Set("X-VALR-TIMESTAMP", timestamp)
		httpRequest.Header.Set(
			"X-VALR-SIGNATURE",
			c.sign(timestamp, method, path, body),
		)
	}

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return fmt.Errorf("could not perform request: [%v]", err)
	}
	defer func() {
		_ = httpResponse.Body.Close()
	}()

	responseBody, err := ioutil.ReadAll(httpResponse.Body)
	if err != nil {
		return fmt.Errorf("could not read response body: [%v]", err)
	}

	if httpResponse.StatusCode >= 400 {
		return fmt.Errorf(
			"request [%v %v] failed with status [%v]: [%v]",
			method,
			path,
			httpResponse.StatusCode,
			string(responseBody),
		)
	}

	if response != nil {
		if err := json.Unmarshal(responseBody, response); err != nil {
			return fmt.Errorf(
				"could not unmarshal response body: [%v]",
				err,
			)
		}
	}

	return nil
}

func (c *Client) sign(
	timestamp string,
	method string,
	path string,
	body []byte,
) string {
	mac := hmac.New(sha512.New, []byte(c.apiSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}

type balanceEntry struct {
	Currency  string `json:"currency"`
	Available string `json:"available"`
	Total     string `json:"total"`
}

func (c *Client) balances(ctx context.Context) ([]balanceEntry, error) {
	var balances []balanceEntry

	err := c.call(
		ctx,
		http.MethodGet,
		"/v1/account/balances",
		nil,
		&balances,
	)
	if err != nil {
		return nil, err
	}

	return balances, nil
}

func parseAmount(value string) (*big.Float, error) {
	amount, ok := new(big.Float).SetString(value)
	if !ok {
		return nil, fmt.Errorf("could not parse amount: [%v]", value)
	}

	return amount, nil
}
