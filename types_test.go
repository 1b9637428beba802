package overshoot

import (
	"strings"
	"testing"
)

func TestDecodeInferenceResult(t *testing.T) {
	frame := `{
		"id": "res-1",
		"stream_id": "st-1",
		"mode": "clip",
		"model_backend": "overshoot",
		"model_name": "Qwen/Qwen3-VL-30B-A3B-Instruct",
		"prompt": "how many people are visible?",
		"result": "3",
		"inference_latency_ms": 250.0,
		"total_latency_ms": 410.5,
		"ok": true,
		"finish_reason": "stop"
	}`

	result, err := decodeInferenceResult([]byte(frame))
	if err != nil {
		t.Fatalf("decodeInferenceResult failed: %v", err)
	}
	if result.ID != "res-1" || result.StreamID != "st-1" {
		t.Errorf("unexpected identifiers: %+v", result)
	}
	if result.Mode != ModeClip || result.ModelBackend != BackendOvershoot {
		t.Errorf("unexpected mode/backend: %+v", result)
	}
	if result.TotalLatencyMS != 410.5 {
		t.Errorf("expected total latency 410.5, got %v", result.TotalLatencyMS)
	}
	if !result.OK || result.FinishReason != FinishReasonStop {
		t.Errorf("unexpected status fields: %+v", result)
	}
}

func TestDecodeInferenceResultMissingFields(t *testing.T) {
	complete := map[string]string{
		"id":                   `"res-1"`,
		"stream_id":            `"st-1"`,
		"mode":                 `"clip"`,
		"model_backend":        `"overshoot"`,
		"model_name":           `"m"`,
		"prompt":               `"p"`,
		"result":               `"r"`,
		"inference_latency_ms": `1.0`,
		"total_latency_ms":     `2.0`,
		"ok":                   `true`,
	}

	for missing := range complete {
		t.Run("missing "+missing, func(t *testing.T) {
			var parts []string
			for k, v := range complete {
				if k == missing {
					continue
				}
				parts = append(parts, `"`+k+`": `+v)
			}
			frame := "{" + strings.Join(parts, ",") + "}"

			_, err := decodeInferenceResult([]byte(frame))
			if err == nil {
				t.Fatalf("expected error for frame missing %q", missing)
			}
			if !strings.Contains(err.Error(), missing) {
				t.Errorf("error should name the missing field %q: %v", missing, err)
			}
		})
	}
}

func TestDecodeInferenceResultNotJSON(t *testing.T) {
	for _, frame := range []string{"not json", `["an","array"]`, `42`, ``} {
		if _, err := decodeInferenceResult([]byte(frame)); err == nil {
			t.Errorf("expected error for frame %q", frame)
		}
	}
}

func TestResultJSON(t *testing.T) {
	result := StreamInferenceResult{Result: `{"people": 3, "alert": false}`}

	var parsed struct {
		People int  `json:"people"`
		Alert  bool `json:"alert"`
	}
	if err := result.ResultJSON(&parsed); err != nil {
		t.Fatalf("ResultJSON failed: %v", err)
	}
	if parsed.People != 3 || parsed.Alert {
		t.Errorf("unexpected parsed result: %+v", parsed)
	}
}

func TestResultJSONNotJSON(t *testing.T) {
	result := StreamInferenceResult{Result: "three people standing"}

	var parsed map[string]any
	if err := result.ResultJSON(&parsed); err == nil {
		t.Fatal("expected error for free-text result")
	}
}
