package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"secureNotes/internal/config"
	"secureNotes/internal/testutil"
)

// startBufconn serves s over an in-process listener and returns a health client.
func startBufconn(t *testing.T, s *Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func check(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealth_ServingWhileDatabaseIsUp(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "")
	logger, _ := test.NewNullLogger()
	c := startBufconn(t, NewServer(d, 20*time.Millisecond, logger))

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, c, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, c, StoreService))
}

func TestHealth_NotServingOnceDatabaseCloses(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "")
	logger, hook := test.NewNullLogger()
	c := startBufconn(t, NewServer(d, 20*time.Millisecond, logger))

	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, c, StoreService))
	require.NoError(t, d.Close())

	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: StoreService})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_NOT_SERVING
	}, 2*time.Second, 20*time.Millisecond)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "database health check failed" {
			warned = true
		}
	}
	assert.True(t, warned, "expected a warning for the failed probe")
}

func TestHealth_UnknownService(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "")
	logger, _ := test.NewNullLogger()
	c := startBufconn(t, NewServer(d, time.Second, logger))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: "notes.v1.Nope"})
	assert.Error(t, err)
}

func TestStartGRPC_ListensAndShutsDown(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "")
	logger, _ := test.NewNullLogger()
	cfg := config.Default()
	cfg.GRPC.Address = "127.0.0.1:0"

	shutdown, err := StartGRPC(cfg, d, logger)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, shutdown(ctx))
}
