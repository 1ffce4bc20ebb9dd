package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteErrorCode(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorCode(rec, http.StatusConflict, CodeSlotConflict, "slot not available", nil)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != CodeSlotConflict || body.Error != "slot not available" || body.Details != nil {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestWriteErrorOmitsEmptyCode(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusBadRequest, "invalid json", map[string]string{"data": "required"})

	var raw map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := raw["code"]; ok {
		t.Fatalf("expected no code field, got %v", raw)
	}
	if raw["details"].(map[string]interface{})["data"] != "required" {
		t.Fatalf("unexpected details %v", raw["details"])
	}
}
