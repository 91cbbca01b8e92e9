package testutil

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	firestoreEmulatorImage = "gcr.io/google.com/cloudsdktool/cloud-sdk:emulators"
	mongoImage             = "mongo:7.0"
	rabbitMQImage          = "rabbitmq:3.13-alpine"
)

// SkipWithoutDocker skips the test when no container runtime answers.
func SkipWithoutDocker(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		t.Skip("docker not available: " + err.Error())
	}
	defer provider.Close()
	if err := provider.Health(ctx); err != nil {
		t.Skip("docker daemon unavailable: " + err.Error())
	}
}

// StartFirestoreEmulator launches the Firestore emulator and returns its host:port.
func StartFirestoreEmulator(t *testing.T) string {
	t.Helper()
	SkipWithoutDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	req := testcontainers.ContainerRequest{
		Image:        firestoreEmulatorImage,
		ExposedPorts: []string{"8080/tcp"},
		Cmd: []string{
			"gcloud", "beta", "emulators", "firestore", "start",
			"--host-port=0.0.0.0:8080", "--quiet",
		},
		WaitingFor: wait.ForListeningPort("8080/tcp").WithStartupTimeout(2 * time.Minute),
	}
	container := startContainer(ctx, t, req)
	mapped, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)
	return hostPort(ctx, t, container, mapped.Port())
}

// StartMongoReplicaSet launches a single node replica set so sessions can run transactions.
// It returns a connection URI.
func StartMongoReplicaSet(t *testing.T) string {
	t.Helper()
	SkipWithoutDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	req := testcontainers.ContainerRequest{
		Image:        mongoImage,
		ExposedPorts: []string{"27017/tcp"},
		Cmd:          []string{"--replSet", "rs0", "--bind_ip_all"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(90 * time.Second),
	}
	container := startContainer(ctx, t, req)

	initiate := []string{
		"mongosh", "--quiet", "--eval",
		"rs.initiate({_id:'rs0',members:[{_id:0,host:'localhost:27017'}]})",
	}
	code, out, err := container.Exec(ctx, initiate)
	require.NoError(t, err)
	if code != 0 {
		body, _ := io.ReadAll(out)
		t.Fatalf("rs.initiate exited with %d: %s", code, body)
	}

	waitPrimary := []string{
		"mongosh", "--quiet", "--eval",
		"while (!db.hello().isWritablePrimary) { sleep(200) }",
	}
	code, _, err = container.Exec(ctx, waitPrimary)
	require.NoError(t, err)
	require.Zero(t, code)

	mapped, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)
	return fmt.Sprintf("mongodb://%s/?directConnection=true", hostPort(ctx, t, container, mapped.Port()))
}

// StartRabbitMQ launches a RabbitMQ container and returns a ready AMQP connection and its URL.
func StartRabbitMQ(t *testing.T) (*amqp.Connection, string) {
	t.Helper()
	SkipWithoutDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	req := testcontainers.ContainerRequest{
		Image:        rabbitMQImage,
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForListeningPort("5672/tcp").WithStartupTimeout(90 * time.Second),
	}
	container := startContainer(ctx, t, req)

	mapped, err := container.MappedPort(ctx, "5672")
	require.NoError(t, err)
	url := "amqp://" + hostPort(ctx, t, container, mapped.Port()) + "/"
	conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn, url
}

func startContainer(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest) testcontainers.Container {
	t.Helper()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = container.Terminate(cleanupCtx)
	})
	return container
}

func hostPort(ctx context.Context, t *testing.T, container testcontainers.Container, port string) string {
	t.Helper()
	host, err := container.Host(ctx)
	require.NoError(t, err)
	return host + ":" + port
}
