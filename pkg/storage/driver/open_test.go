package driver

import (
	"context"
	"io"
	"testing"

	"github.com/angelmondragon/coinledger-backend/pkg/config"
	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenLocal(t *testing.T) {
	cfg := &config.Config{Reports: config.ReportsConfig{
		StorageDriver: "LOCAL",
		LocalRoot:     t.TempDir(),
		PublicBaseURL: "/reports/",
	}}
	logg := logger.New(logger.Options{ServiceName: "driver-test", Output: io.Discard})

	store, err := Open(context.Background(), cfg, logg)
	require.NoError(t, err)
	require.NoError(t, store.Ping(context.Background()))
	assert.Equal(t, "/reports/u-1/a.pdf", store.URL("u-1", "a.pdf"))
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := &config.Config{Reports: config.ReportsConfig{StorageDriver: "s3"}}
	logg := logger.New(logger.Options{ServiceName: "driver-test", Output: io.Discard})

	_, err := Open(context.Background(), cfg, logg)
	assert.Error(t, err)
}
