// Package fortune serves a random one-line fortune.
package fortune

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"

	"github.com/zgpcy/cloud-metrics-exporter/internal/config"
	"github.com/zgpcy/cloud-metrics-exporter/internal/logger"
)

// ErrNoFortunes is returned by NewTeller for an empty list
var ErrNoFortunes = errors.New("fortune list is empty")

// Default is the built-in fortune list
var Default = []string{
	"🚀 Today’s a great day to learn Terraform.",
	"🐹 A Go exporter says hi!",
	"💡 Jenkins will behave today (maybe).",
	"🔥 AWS bills shrink when you IaC.",
	"☁️ Cloud is just someone else’s computer.",
}

// Picker chooses an index in [0, n). *rand.Rand implements it.
type Picker interface {
	IntN(n int) int
}

type globalPicker struct{}

func (globalPicker) IntN(n int) int { return rand.IntN(n) }

// Teller picks fortunes uniformly at random
type Teller struct {
	fortunes []string
	picker   Picker
}

// NewTeller creates a Teller over fortunes. A nil picker uses the global
// math/rand/v2 source.
func NewTeller(fortunes []string, picker Picker) (*Teller, error) {
	if len(fortunes) == 0 {
		return nil, ErrNoFortunes
	}
	if picker == nil {
		picker = globalPicker{}
	}
	return &Teller{
		fortunes: append([]string(nil), fortunes...),
		picker:   picker,
	}, nil
}

// Tell returns one fortune
func (t *Teller) Tell() string {
	return t.fortunes[t.picker.IntN(len(t.fortunes))]
}

// Fortunes returns a copy of the list
func (t *Teller) Fortunes() []string {
	return append([]string(nil), t.fortunes...)
}

type response struct {
	Fortune string `json:"fortune"`
}

// Handler serves GET requests with one fortune, encoded as JSON
// ({"fortune": "..."}) or plain text depending on format
func Handler(t *Teller, format string, log *logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		fortune := t.Tell()

		if format == config.FortuneFormatText {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			if _, err := w.Write([]byte(fortune + "\n")); err != nil {
				log.Error("Failed to write fortune response", "error", err)
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(response{Fortune: fortune}); err != nil {
			log.Error("Failed to write fortune response", "error", err)
		}
	})
}
