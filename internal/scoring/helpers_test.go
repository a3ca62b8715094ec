package scoring

import (
	"math"
	"testing"

	"SignalForge/internal/domain/models"
)

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s: got %.12f want %.12f", name, got, want)
	}
}

func sig(t models.SignalType, strength float64) models.Signal {
	return models.Signal{Type: t, Strength: strength}
}
