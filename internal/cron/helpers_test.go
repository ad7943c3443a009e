package cron

import (
	"context"
	"io"
	"testing"

	"github.com/angelmondragon/coinledger-backend/pkg/logger"
	"gorm.io/gorm"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type fakeJob struct {
	name  string
	runFn func(ctx context.Context) error
	runs  int
}

func (f *fakeJob) Name() string { return f.name }

func (f *fakeJob) Run(ctx context.Context) error {
	f.runs++
	if f.runFn != nil {
		return f.runFn(ctx)
	}
	return nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
