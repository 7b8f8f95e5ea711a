package tcpostgres

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	defaultImage = "postgres:17-alpine"
	readyLog     = "database system is ready to accept connections"
)

var postgresPort = nat.Port("5432/tcp")

type containerConfig struct {
	image    string
	name     string
	user     string
	password string
	dbName   string
}

type ContainerOption func(cfg *containerConfig)

func WithImage(image string) ContainerOption {
	return func(cfg *containerConfig) { cfg.image = image }
}

// WithName names the container. A running container of that name is reused.
func WithName(containerName string) ContainerOption {
	return func(cfg *containerConfig) { cfg.name = containerName }
}

func WithInitialDatabase(user, password, dbName string) ContainerOption {
	return func(cfg *containerConfig) {
		cfg.user, cfg.password, cfg.dbName = user, password, dbName
	}
}

// StartPostgres starts a postgres container and returns the connection url
// of its initial database.
func StartPostgres(ctx context.Context, opts ...ContainerOption) (string, error) {
	cfg := containerConfig{
		image:    defaultImage,
		user:     "postgres",
		password: "password",
		dbName:   "postgres",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	req := testcontainers.ContainerRequest{
		Image: cfg.image,
		Name:  cfg.name,
		Env: map[string]string{
			"POSTGRES_USER":     cfg.user,
			"POSTGRES_PASSWORD": cfg.password,
			"POSTGRES_DB":       cfg.dbName,
		},
		ExposedPorts: []string{string(postgresPort)},
		Cmd:          []string{"postgres", "-c", "fsync=off"},
		// the server restarts once after the init scripts ran
		WaitingFor: wait.ForLog(readyLog).
			WithOccurrence(2).
			WithStartupTimeout(time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
			Reuse:            cfg.name != "",
		})
	if err != nil {
		return "", err
	}

	port, err := container.MappedPort(ctx, postgresPort)
	if err != nil {
		return "", err
	}
	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.user, cfg.password, host, port.Port(), cfg.dbName), nil
}
