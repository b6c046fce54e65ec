package observe

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
)

// Not parallel: StartTelemetry replaces the global providers.
func TestStartTelemetry(t *testing.T) {
	reg := prometheus.NewRegistry()
	tel, err := StartTelemetry(TelemetryOptions{Version: "test", Registerer: reg})
	if err != nil {
		t.Fatalf("StartTelemetry: %v", err)
	}
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	if otel.GetMeterProvider() != tel.meters {
		t.Error("meter provider not installed globally")
	}

	tel.Metrics.RecordAction(context.Background(), "ShowDialog")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "casescript_actions_executed") {
			found = true
		}
	}
	if !found {
		names := make([]string, 0, len(families))
		for _, f := range families {
			names = append(names, f.GetName())
		}
		t.Errorf("families = %v, want casescript_actions_executed*", names)
	}
}
