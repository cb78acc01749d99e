package postprocess

import (
	"math"
	"testing"

	"github.com/voxtrace/voxtrace/pkg/core"
)

func TestApply_ClampsNonFinite(t *testing.T) {
	for _, op := range []Operator{Gamma, Filmic, ACES} {
		got := Apply(op, core.NewVec3(math.NaN(), math.Inf(1), -1), 2.2)
		if !got.IsFinite() {
			t.Errorf("operator %v produced non-finite output: %v", op, got)
		}
	}
}

func TestApply_GammaIdentityAtOne(t *testing.T) {
	got := Apply(Gamma, core.NewVec3(0.5, 0.5, 0.5), 1.0)
	if math.Abs(got.X-0.5) > 1e-9 {
		t.Errorf("gamma=1 should be identity, got %v", got.X)
	}
}

func TestApply_FilmicMapsWhiteNearOne(t *testing.T) {
	got := Apply(Filmic, core.NewVec3(11.2, 11.2, 11.2), 2.2)
	if math.Abs(got.X-1.0) > 1e-6 {
		t.Errorf("filmic white point should map to ~1.0, got %v", got.X)
	}
}

func TestApply_ACESBounded(t *testing.T) {
	got := Apply(ACES, core.NewVec3(1000, 1000, 1000), 2.2)
	if got.X > 1.0001 || got.X < 0 {
		t.Errorf("ACES output should stay roughly within [0,1], got %v", got.X)
	}
}
