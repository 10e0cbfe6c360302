package fortune

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zgpcy/cloud-metrics-exporter/internal/config"
	"github.com/zgpcy/cloud-metrics-exporter/internal/logger"
)

// fixedPicker always returns the same index
type fixedPicker int

func (p fixedPicker) IntN(n int) int { return int(p) % n }

func testLogger() *logger.Logger {
	return logger.NewWithWriter("error", &bytes.Buffer{})
}

// TestNewTeller_Empty tests that an empty list is rejected
func TestNewTeller_Empty(t *testing.T) {
	if _, err := NewTeller(nil, nil); !errors.Is(err, ErrNoFortunes) {
		t.Errorf("NewTeller(nil) error = %v, want ErrNoFortunes", err)
	}
}

// TestTell_ReturnsListMember tests that every fortune comes from the list
func TestTell_ReturnsListMember(t *testing.T) {
	teller, err := NewTeller(Default, nil)
	if err != nil {
		t.Fatalf("NewTeller() error = %v", err)
	}

	valid := make(map[string]bool, len(Default))
	for _, f := range Default {
		valid[f] = true
	}

	for i := 0; i < 100; i++ {
		if f := teller.Tell(); !valid[f] {
			t.Fatalf("Tell() = %q, not in the default list", f)
		}
	}
}

// TestTell_UsesPicker tests that the injected picker selects the fortune
func TestTell_UsesPicker(t *testing.T) {
	teller, err := NewTeller([]string{"a", "b", "c"}, fixedPicker(1))
	if err != nil {
		t.Fatalf("NewTeller() error = %v", err)
	}
	if got := teller.Tell(); got != "b" {
		t.Errorf("Tell() = %q, want b", got)
	}
}

// TestTeller_CopiesList tests that the caller's slice is not shared
func TestTeller_CopiesList(t *testing.T) {
	list := []string{"a"}
	teller, _ := NewTeller(list, fixedPicker(0))
	list[0] = "changed"

	if got := teller.Tell(); got != "a" {
		t.Errorf("Tell() = %q, want a", got)
	}
	teller.Fortunes()[0] = "changed"
	if got := teller.Tell(); got != "a" {
		t.Errorf("Tell() after Fortunes() mutation = %q, want a", got)
	}
}

// TestHandler_JSON tests the JSON response
func TestHandler_JSON(t *testing.T) {
	teller, _ := NewTeller([]string{"hello"}, nil)
	h := Handler(teller, config.FortuneFormatJSON, testLogger())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fortune", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var body struct {
		Fortune string `json:"fortune"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.Fortune != "hello" {
		t.Errorf("fortune: got %q, want hello", body.Fortune)
	}
}

// TestHandler_Text tests the plain text response
func TestHandler_Text(t *testing.T) {
	teller, _ := NewTeller([]string{"hello"}, nil)
	h := Handler(teller, config.FortuneFormatText, testLogger())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fortune", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("Content-Type: got %q, want text/plain", w.Header().Get("Content-Type"))
	}
	if got := strings.TrimSpace(w.Body.String()); got != "hello" {
		t.Errorf("body: got %q, want hello", got)
	}
}

// TestHandler_MethodNotAllowed tests that only GET is served
func TestHandler_MethodNotAllowed(t *testing.T) {
	teller, _ := NewTeller(Default, nil)
	h := Handler(teller, config.FortuneFormatJSON, testLogger())

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(method, "/fortune", nil))

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("status: got %d, want 405", w.Code)
			}
			if allow := w.Header().Get("Allow"); allow != http.MethodGet {
				t.Errorf("Allow: got %q, want GET", allow)
			}
		})
	}
}
