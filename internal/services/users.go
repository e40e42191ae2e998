package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
)

// UserProvider поиск пользователей хост-системы.
type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// FullNameUserProvider поиск пользователей с поддержкой полного имени в рамках проекта.
type FullNameUserProvider interface {
	UserProvider
	GetByFullName(ctx context.Context, fullName string, projectID *int64) (*models.User, error)
}

// UserLookup стратегия сопоставления исполнителя Azure DevOps пользователю хост-системы.
// Реализация выбирается встраивающей стороной в зависимости от возможностей хоста.
type UserLookup interface {
	Lookup(ctx context.Context, identifier, fullName string, projectID *int64) *models.User
}

// BasicUserLookup ищет по email, затем по имени пользователя.
type BasicUserLookup struct {
	provider UserProvider
	logger   *slog.Logger
}

// NewBasicUserLookup создаёт стратегию без поиска по полному имени.
func NewBasicUserLookup(provider UserProvider, logger *slog.Logger) *BasicUserLookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &BasicUserLookup{provider: provider, logger: logger}
}

func (l *BasicUserLookup) Lookup(ctx context.Context, identifier, _ string, _ *int64) *models.User {
	return lookupByEmailOrUsername(ctx, l.provider, identifier, l.logger)
}

// FullNameUserLookup дополнительно ищет по полному имени.
type FullNameUserLookup struct {
	provider FullNameUserProvider
	logger   *slog.Logger
}

// NewFullNameUserLookup создаёт стратегию с поиском по полному имени.
func NewFullNameUserLookup(provider FullNameUserProvider, logger *slog.Logger) *FullNameUserLookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &FullNameUserLookup{provider: provider, logger: logger}
}

func (l *FullNameUserLookup) Lookup(ctx context.Context, identifier, fullName string, projectID *int64) *models.User {
	if u := lookupByEmailOrUsername(ctx, l.provider, identifier, l.logger); u != nil {
		return u
	}

	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil
	}

	u, err := l.provider.GetByFullName(ctx, fullName, projectID)
	if err != nil {
		l.logger.Debug("User lookup by full name failed", "full_name", fullName, "error", err)
		return nil
	}
	return u
}

func lookupByEmailOrUsername(ctx context.Context, provider UserProvider, identifier string, logger *slog.Logger) *models.User {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || provider == nil {
		return nil
	}

	u, err := provider.GetByEmail(ctx, identifier)
	if err != nil {
		logger.Debug("User lookup by email failed", "identifier", identifier, "error", err)
	}
	if u != nil {
		return u
	}

	u, err = provider.GetByUsername(ctx, identifier)
	if err != nil {
		logger.Debug("User lookup by username failed", "identifier", identifier, "error", err)
	}
	return u
}
