package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/AliB771/One4All/internal/config"
	"github.com/AliB771/One4All/internal/ledger"
)

type IntegrationSuite struct {
	T      *testing.T
	Ledger *sql.DB
	NSQ    *nsq.Producer

	// NSQDAddr is the mapped TCP address consumers connect to.
	NSQDAddr string

	nsqContainer testcontainers.Container
}

func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	return &IntegrationSuite{T: t}
}

func (s *IntegrationSuite) Setup() {
	ctx := context.Background()

	// 1. Ledger
	var err error
	s.Ledger, err = ledger.Open(ctx, filepath.Join(s.T.TempDir(), "ledger.db"))
	require.NoError(s.T, err)

	// 2. NSQ
	nsqReq := testcontainers.ContainerRequest{
		Image:        "nsqio/nsq:v1.3.0",
		ExposedPorts: []string{"4150/tcp", "4151/tcp"},
		Cmd:          []string{"/nsqd", "--broadcast-address=localhost"},
		WaitingFor:   wait.ForLog("TCP: listening on").WithStartupTimeout(60 * time.Second),
	}
	nsqC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: nsqReq,
		Started:          true,
	})
	require.NoError(s.T, err)
	s.nsqContainer = nsqC

	nsqHost, err := nsqC.Host(ctx)
	require.NoError(s.T, err)
	nsqPort, err := nsqC.MappedPort(ctx, "4150")
	require.NoError(s.T, err)
	s.NSQDAddr = fmt.Sprintf("%s:%s", nsqHost, nsqPort.Port())

	s.NSQ, err = nsq.NewProducer(s.NSQDAddr, nsq.NewConfig())
	require.NoError(s.T, err)
	require.NoError(s.T, s.NSQ.Ping())
}

func (s *IntegrationSuite) Teardown() {
	ctx := context.Background()
	if s.NSQ != nil {
		s.NSQ.Stop()
	}
	if s.Ledger != nil {
		s.Ledger.Close()
	}
	if s.nsqContainer != nil {
		s.nsqContainer.Terminate(ctx)
	}
}

// GetAppConfig returns a config pointing at the suite's nsqd and a fresh
// ledger path.
func (s *IntegrationSuite) GetAppConfig() *config.Config {
	cfg := PipelineConfig(s.T, s.T.TempDir())
	cfg.NSQDHost = s.NSQDAddr
	cfg.LedgerPath = filepath.Join(s.T.TempDir(), "app-ledger.db")
	cfg.BootstrapRetryAttempts = 3
	return cfg
}
