package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
)

// UserDirectory справочник пользователей хост-системы на sqlite.
// Реализует поиск по email, имени пользователя и полному имени в рамках проекта.
type UserDirectory struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewUserDirectory открывает (и при необходимости создаёт) базу справочника.
func NewUserDirectory(dbPath string, logger *slog.Logger) (*UserDirectory, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("failed to create db dir", "dir", dir, "error", err)
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Error("failed to open sqlite db", "path", dbPath, "error", err)
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.ProjectMember{}); err != nil {
		logger.Error("failed to auto-migrate user models", "error", err)
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	logger.Info("sqlite user directory initialized", "path", dbPath)

	return &UserDirectory{db: db, logger: logger}, nil
}

// GetByEmail ищет пользователя по email без учёта регистра. Если не найден, возвращает nil без ошибки.
func (s *UserDirectory) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.first(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

// GetByUsername ищет пользователя по имени без учёта регистра.
func (s *UserDirectory) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.first(ctx, "LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username)))
}

// GetByFullName ищет пользователя по полному имени. Если задан projectID,
// учитываются только участники проекта.
func (s *UserDirectory) GetByFullName(ctx context.Context, fullName string, projectID *int64) (*models.User, error) {
	db := s.db.WithContext(ctx)

	q := db.Model(&models.User{}).Where("users.full_name = ?", strings.TrimSpace(fullName))
	if projectID != nil {
		q = q.Joins("JOIN project_members pm ON pm.user_id = users.user_id").
			Where("pm.project_id = ?", *projectID)
	}

	var users []models.User
	if err := q.Order("users.user_id").Limit(2).Find(&users).Error; err != nil {
		s.logger.Error("failed to find user by full name", "full_name", fullName, "error", err)
		return nil, fmt.Errorf("find user by full name: %w", err)
	}

	switch len(users) {
	case 0:
		return nil, nil
	case 1:
		return &users[0], nil
	default:
		// Однофамильцев не сопоставляем.
		s.logger.Debug("ambiguous full name", "full_name", fullName)
		return nil, nil
	}
}

func (s *UserDirectory) first(ctx context.Context, query string, arg string) (*models.User, error) {
	if arg == "" {
		return nil, nil
	}

	var u models.User
	err := s.db.WithContext(ctx).Where(query, arg).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("failed to load user", "query", query, "error", err)
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &u, nil
}

// SaveUser создаёт пользователя или обновляет существующего по UserID.
func (s *UserDirectory) SaveUser(ctx context.Context, u models.User) error {
	db := s.db.WithContext(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "email", "full_name", "updated_at"}),
	}).Create(&u).Error
	if err != nil {
		s.logger.Error("failed to save user", "user_id", u.UserID, "error", err)
		return fmt.Errorf("save user: %w", err)
	}

	s.logger.Debug("user saved", "user_id", u.UserID)
	return nil
}

// AddProjectMember добавляет пользователя в проект. Повторное добавление не ошибка.
func (s *UserDirectory) AddProjectMember(ctx context.Context, projectID, userID int64) error {
	db := s.db.WithContext(ctx)

	err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ProjectMember{ProjectID: projectID, UserID: userID}).Error
	if err != nil {
		s.logger.Error("failed to add project member", "project_id", projectID, "user_id", userID, "error", err)
		return fmt.Errorf("add project member: %w", err)
	}
	return nil
}

// ListUsers возвращает всех пользователей справочника.
func (s *UserDirectory) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("user_id").Find(&users).Error; err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Close закрывает соединение с базой.
func (s *UserDirectory) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
