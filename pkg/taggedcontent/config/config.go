// Package config loads server configuration from the environment and
// assembles a Repo from it.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/tendant/tagged-content/pkg/taggedcontent"
	"github.com/tendant/tagged-content/pkg/taggedcontent/auth"
	"github.com/tendant/tagged-content/pkg/taggedcontent/preview"
	repomemory "github.com/tendant/tagged-content/pkg/taggedcontent/repo/memory"
	repopg "github.com/tendant/tagged-content/pkg/taggedcontent/repo/postgres"
	searchmemory "github.com/tendant/tagged-content/pkg/taggedcontent/search/memory"
	fsstorage "github.com/tendant/tagged-content/pkg/taggedcontent/storage/fs"
	memorystorage "github.com/tendant/tagged-content/pkg/taggedcontent/storage/memory"
	s3storage "github.com/tendant/tagged-content/pkg/taggedcontent/storage/s3"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Preview  PreviewConfig

	RequireAccount    bool `env:"REQUIRE_ACCOUNT" env-default:"false"`
	RequireInvitation bool `env:"REQUIRE_INVITATION" env-default:"false"`
}

type ServerConfig struct {
	Host string `env:"SERVER_HOST" env-default:"localhost"`
	Port uint16 `env:"SERVER_PORT" env-default:"8080"`
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Type string `env:"DATABASE_TYPE" env-default:"memory"`
	URL  string `env:"DATABASE_URL" env-default:""`

	Port     uint16 `env:"PG_PORT" env-default:"5432"`
	Host     string `env:"PG_HOST" env-default:"localhost"`
	Name     string `env:"PG_NAME" env-default:"tagged_content"`
	User     string `env:"PG_USER" env-default:"tagged_content"`
	Password string `env:"PG_PASSWORD" env-default:""`

	DraftRetention time.Duration `env:"DRAFT_RETENTION" env-default:"0"`
}

// DatabaseURL returns the configured URL, or one assembled from the
// individual PG_* settings.
func (c DatabaseConfig) DatabaseURL() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   c.Name,
	}
	return u.String()
}

type StorageConfig struct {
	Type string `env:"STORAGE_TYPE" env-default:"memory"`

	BaseDir string `env:"STORAGE_BASE_DIR" env-default:"./data/objects"`

	S3 S3Config
}

type S3Config struct {
	Endpoint        string `env:"AWS_S3_ENDPOINT" env-default:""`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	Bucket          string `env:"AWS_S3_BUCKET" env-default:"tagged-content"`
	Region          string `env:"AWS_S3_REGION" env-default:"us-east-1"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

type AuthConfig struct {
	Secret        string        `env:"AUTH_SECRET" env-default:""`
	SessionTTL    time.Duration `env:"AUTH_SESSION_TTL" env-default:"720h"`
	InvitationTTL time.Duration `env:"AUTH_INVITATION_TTL" env-default:"168h"`
}

type PreviewConfig struct {
	Workers   int `env:"PREVIEW_WORKERS" env-default:"4"`
	QueueSize int `env:"PREVIEW_QUEUE_SIZE" env-default:"64"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Type != "memory" && c.Database.Type != "postgres" {
		return errors.New("DATABASE_TYPE must be 'memory' or 'postgres'")
	}
	switch c.Storage.Type {
	case "memory", "fs", "s3":
	default:
		return errors.New("STORAGE_TYPE must be 'memory', 'fs' or 's3'")
	}
	if c.Auth.Secret == "" {
		return errors.New("AUTH_SECRET is required")
	}
	return nil
}

// BuildRepo assembles a Repo from the configuration.
func (c *Config) BuildRepo(ctx context.Context, log *slog.Logger) (*taggedcontent.Repo, error) {
	db, maint, err := c.buildDatabase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build database: %w", err)
	}

	store, err := c.buildObjectStore()
	if err != nil {
		return nil, fmt.Errorf("failed to build object store: %w", err)
	}

	signer, err := auth.New([]byte(c.Auth.Secret),
		auth.WithSessionTTL(c.Auth.SessionTTL),
		auth.WithInvitationTTL(c.Auth.InvitationTTL))
	if err != nil {
		return nil, err
	}

	previews := preview.New(store, db,
		preview.WithWorkers(c.Preview.Workers),
		preview.WithQueueSize(c.Preview.QueueSize),
		preview.WithLogger(log))

	options := []taggedcontent.Option{
		taggedcontent.WithDatabase(db),
		taggedcontent.WithObjectStore(store),
		taggedcontent.WithSearchIndex(searchmemory.New()),
		taggedcontent.WithAuth(signer),
		taggedcontent.WithPreviewGenerator(previews),
		taggedcontent.WithLogger(log),
	}
	if maint != nil {
		options = append(options, taggedcontent.WithMaintenance(maint))
	}
	if c.RequireAccount {
		options = append(options, taggedcontent.RequireAccount())
	}
	if c.RequireInvitation {
		options = append(options, taggedcontent.RequireInvitation())
	}
	return taggedcontent.New(options...)
}

// BuildMaintenance returns the maintenance interface for the configured
// database without assembling a full Repo. The CLI uses it for schema
// lifecycle commands that must work before any account exists.
func (c *Config) BuildMaintenance(ctx context.Context) (taggedcontent.Maintenance, error) {
	_, maint, err := c.buildDatabase(ctx)
	if err != nil {
		return nil, err
	}
	if maint == nil {
		return nil, errors.New("maintenance is not supported for this database type")
	}
	return maint, nil
}

func (c *Config) buildDatabase(ctx context.Context) (taggedcontent.Database, taggedcontent.Maintenance, error) {
	switch c.Database.Type {
	case "memory":
		db := repomemory.New()
		db.DraftRetention = c.Database.DraftRetention
		return db, db, nil
	case "postgres":
		dsn := c.Database.DatabaseURL()
		db, err := repopg.New(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		db.DraftRetention = c.Database.DraftRetention
		return db, repopg.NewMaintenance(dsn), nil
	default:
		return nil, nil, fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
}

func (c *Config) buildObjectStore() (taggedcontent.ObjectStore, error) {
	switch c.Storage.Type {
	case "memory":
		return memorystorage.New(), nil
	case "fs":
		return fsstorage.New(fsstorage.Config{BaseDir: c.Storage.BaseDir})
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:                 c.Storage.S3.Region,
			Bucket:                 c.Storage.S3.Bucket,
			AccessKeyID:            c.Storage.S3.AccessKeyID,
			SecretAccessKey:        c.Storage.S3.SecretAccessKey,
			Endpoint:               c.Storage.S3.Endpoint,
			UsePathStyle:           c.Storage.S3.UsePathStyle,
			CreateBucketIfNotExist: c.Storage.S3.CreateBucket,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
}
