package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/rest"
)

// ErrMissingAccessToken не задан персональный токен доступа.
var ErrMissingAccessToken = errors.New("personal access token is missing")

// proxyPortWhenUnset порт прокси, если хост задан, а порт нет.
const proxyPortWhenUnset = "80"

// RestOptsFromValues собирает параметры REST клиента из конфигурации хоста.
func RestOptsFromValues(values models.ValueSet) (rest.Opts, error) {
	token := strings.TrimSpace(values.Get(models.KeyPersonalAccessToken))
	if token == "" {
		return rest.Opts{}, ErrMissingAccessToken
	}

	opts := rest.Opts{
		OrganizationURL: values.Get(models.KeyOrganizationURL),
		Token:           token,
		ProxyHost:       strings.TrimSpace(values.Get(models.KeyProxyHost)),
		ProxyPort:       strings.TrimSpace(values.Get(models.KeyProxyPort)),
	}
	if opts.ProxyHost != "" && opts.ProxyPort == "" {
		opts.ProxyPort = proxyPortWhenUnset
	}
	return opts, nil
}

// NewServiceFromConfig создаёт сервис с новым кэшем метаданных для одного вызова хоста.
func NewServiceFromConfig(values models.ValueSet, users UserLookup, logger *slog.Logger) (*AzureDevopsService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts, err := RestOptsFromValues(values)
	if err != nil {
		return nil, err
	}

	client, err := rest.NewClient(opts, logger)
	if err != nil {
		return nil, fmt.Errorf("create rest client: %w", err)
	}

	return NewAzureDevopsService(client, NewMetadataCache(), users, logger), nil
}
