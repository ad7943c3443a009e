package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
)

type schemaRow struct {
	EventID    string    `bigquery:"event_id"`
	Coin       int64     `bigquery:"coin"`
	OccurredAt time.Time `bigquery:"occurred_at"`
}

func TestSchemaForInfersColumns(t *testing.T) {
	schema, err := SchemaFor(schemaRow{})
	if err != nil {
		t.Fatalf("infer schema: %v", err)
	}
	if len(schema) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(schema))
	}
	if schema[0].Name != "event_id" {
		t.Fatalf("unexpected first field %q", schema[0].Name)
	}
}

func TestIsNotFound(t *testing.T) {
	if !isNotFound(fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusNotFound})) {
		t.Fatal("expected wrapped 404 to be not found")
	}
	if isNotFound(&googleapi.Error{Code: http.StatusForbidden}) {
		t.Fatal("403 is not not-found")
	}
	if isNotFound(errors.New("plain")) {
		t.Fatal("plain error is not not-found")
	}
}

func TestNilClientGuards(t *testing.T) {
	var c *Client
	if err := c.InsertRows(context.Background(), "t", []any{1}); !errors.Is(err, errClientNotInitialized) {
		t.Fatalf("expected not initialized, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
