package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Otar989/bugman-bot/internal/initdata"
	"go.uber.org/zap"
)

func TestDebugHandler_Verify(t *testing.T) {
	verifier := initdata.NewVerifier([]string{"T1"},
		initdata.WithClock(func() time.Time { return time.Unix(1060, 0) }))
	valid := initdata.Encode(map[string]string{
		"auth_date": "1000",
		"user":      `{"id":42,"first_name":"Bug"}`,
	}, "T1")

	tests := []struct {
		name         string
		body         string
		expectedCode int
		check        func(t *testing.T, body map[string]any)
	}{
		{
			name:         "valid",
			body:         mustJSON(t, VerifyRequest{InitData: valid}),
			expectedCode: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				if body["identity"] != "42" || body["display_name"] != "Bug" {
					t.Errorf("unexpected body %v", body)
				}
				if body["auth_date"] != float64(1000) {
					t.Errorf("unexpected auth_date %v", body["auth_date"])
				}
				fields, _ := body["fields"].(map[string]any)
				if _, ok := fields["hash"]; ok {
					t.Error("hash must not be echoed")
				}
			},
		},
		{
			name:         "wrong token reveals reason",
			body:         mustJSON(t, VerifyRequest{InitData: initdata.Encode(map[string]string{"user": `{"id":1}`}, "T2")}),
			expectedCode: http.StatusUnauthorized,
			check: func(t *testing.T, body map[string]any) {
				if body["error"] != "invalid_init_data" || body["reason"] != initdata.ErrInvalidSignature.Error() {
					t.Errorf("unexpected body %v", body)
				}
			},
		},
		{
			name:         "missing initData",
			body:         `{}`,
			expectedCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &DebugHandler{Verifier: verifier, Logger: zap.NewNop()}
			rec := httptest.NewRecorder()
			h.Verify(rec, httptest.NewRequest(http.MethodPost, "/debug/verify", bytes.NewBufferString(tt.body)))

			if rec.Code != tt.expectedCode {
				t.Fatalf("expected %d, got %d", tt.expectedCode, rec.Code)
			}
			if tt.check != nil {
				var body map[string]any
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				tt.check(t, body)
			}
		})
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
