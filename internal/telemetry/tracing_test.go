package telemetry

import (
	"context"
	"testing"
)

func TestSetup_NoopWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), Options{ServiceName: "skynet-test", Endpoint: "  "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("expected noop shutdown to ignore cancelled context, got %v", err)
	}
}

func TestSetup_CreatesProviderWithEndpoint(t *testing.T) {
	// 192.0.2.0/24 is reserved for documentation so nothing is exported.
	shutdown, err := Setup(context.Background(), Options{Endpoint: "http://192.0.2.1:4318"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}
