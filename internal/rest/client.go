// Package rest реализует HTTP-шлюз к REST API Azure DevOps.
package rest

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// CloudRootURL корень Azure DevOps Cloud, к нему добавляется имя организации.
	CloudRootURL = "https://dev.azure.com/"

	contentTypeJSON      = "application/json"
	contentTypeJSONPatch = "application/json-patch+json"

	defaultProxyPort = 8080
	defaultTimeout   = 60 * time.Second
)

// Opts параметры подключения к Azure DevOps.
type Opts struct {
	OrganizationURL string
	Token           string
	ProxyHost       string
	ProxyPort       string
	Timeout         time.Duration
}

// Client выполняет запросы к REST API с авторизацией по персональному токену.
type Client struct {
	opts    Opts
	baseURL string
	logger  *slog.Logger
	http    *http.Client
}

// NewClient создаёт клиента REST API.
func NewClient(opts Opts, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if strings.TrimSpace(opts.Token) == "" {
		return nil, fmt.Errorf("personal access token is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if host := strings.TrimSpace(opts.ProxyHost); host != "" {
		proxyURL := &url.URL{Scheme: "http", Host: host + ":" + strconv.Itoa(ProxyPort(opts.ProxyPort))}
		transport.Proxy = http.ProxyURL(proxyURL)
		logger.Debug("Using HTTP proxy", "proxy", proxyURL.String())
	}

	return &Client{
		opts:    opts,
		baseURL: OrganizationURL(opts.OrganizationURL),
		logger:  logger,
		http:    &http.Client{Timeout: timeout, Transport: transport},
	}, nil
}

// OrganizationURL приводит введённое значение к полному адресу организации.
// Полный адрес (on-premise сервер) используется как есть без завершающего '/',
// иначе значение считается именем организации в Azure DevOps Cloud.
func OrganizationURL(org string) string {
	org = strings.TrimSpace(org)
	lower := strings.ToLower(org)
	if strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "http://") {
		return strings.TrimRight(org, "/")
	}
	return CloudRootURL + org
}

// ProxyPort возвращает порт прокси, 8080 для пустого или нечислового значения.
func ProxyPort(port string) int {
	p, err := strconv.Atoi(strings.TrimSpace(port))
	if err != nil || p <= 0 {
		return defaultProxyPort
	}
	return p
}

// BaseURL адрес организации, к которому добавляются относительные пути.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get выполняет GET запрос.
func (c *Client) Get(ctx context.Context, uri string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, uri, contentTypeJSON, nil)
}

// Post выполняет POST запрос с JSON телом.
func (c *Client) Post(ctx context.Context, uri string, payload []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, uri, contentTypeJSON, payload)
}

// PostPatch выполняет POST с телом JSON Patch (создание рабочих элементов).
func (c *Client) PostPatch(ctx context.Context, uri string, payload []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPost, uri, contentTypeJSONPatch, payload)
}

// Patch выполняет PATCH с телом JSON Patch.
func (c *Client) Patch(ctx context.Context, uri string, payload []byte) ([]byte, error) {
	return c.do(ctx, http.MethodPatch, uri, contentTypeJSONPatch, payload)
}

func (c *Client) do(ctx context.Context, method, uri, contentType string, payload []byte) ([]byte, error) {
	fullURL := c.baseURL + uri

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", c.authorizationHeader())
	req.Header.Set("Accept", contentTypeJSON)
	// Для трассировки запросов на промежуточных шлюзах.
	req.Header.Set("X-B3-TraceId", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}

	c.logger.Debug("Sending request", "method", method, "url", fullURL)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, uri, err)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Verb:       method,
			URL:        uri,
			Payload:    string(payload),
			Response:   string(respBody),
		}
	}

	if readErr != nil {
		return nil, fmt.Errorf("read response: %w", readErr)
	}

	return respBody, nil
}

// authorizationHeader имя пользователя для авторизации по токену не важно.
func (c *Client) authorizationHeader() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+c.opts.Token))
}
