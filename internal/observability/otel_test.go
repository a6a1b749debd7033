package observability

import (
	"context"
	"testing"

	"github.com/yungbote/hearth-backend/internal/platform/logger"
)

func TestParseHeaders(t *testing.T) {
	got := parseHeaders(" api-key = abc ,broken, =x,team=hearth")
	if len(got) != 2 || got["api-key"] != "abc" || got["team"] != "hearth" {
		t.Fatalf("parseHeaders: got=%v", got)
	}
	if parseHeaders("") != nil {
		t.Fatalf("parseHeaders(empty): want nil")
	}
}

func TestLoadOtelConfigClampsRatio(t *testing.T) {
	t.Setenv("OTEL_SAMPLER_RATIO", "3")
	if got := LoadOtelConfig().SampleRatio; got != 1 {
		t.Fatalf("ratio: want=1 got=%v", got)
	}
	t.Setenv("OTEL_SAMPLER_RATIO", "-1")
	if got := LoadOtelConfig().SampleRatio; got != 0 {
		t.Fatalf("ratio: want=0 got=%v", got)
	}
}

func TestInitOTelDisabledIsNoop(t *testing.T) {
	shutdown := InitOTel(context.Background(), logger.Nop(), OtelConfig{})
	if shutdown == nil {
		t.Fatalf("shutdown: want non-nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
