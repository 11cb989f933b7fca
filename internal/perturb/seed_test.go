package perturb

import "testing"

func TestDeriveSeedStable(t *testing.T) {
	a := DeriveSeed(42, 3, NameAdditiveNoise)
	b := DeriveSeed(42, 3, NameAdditiveNoise)

	if a != b {
		t.Errorf("Identical inputs produced different seeds: %d vs %d", a, b)
	}
}

func TestDeriveSeedDistinct(t *testing.T) {
	base := DeriveSeed(42, 3, NameAdditiveNoise)

	if s := DeriveSeed(43, 3, NameAdditiveNoise); s == base {
		t.Error("Changing base seed did not change derived seed")
	}
	if s := DeriveSeed(42, 4, NameAdditiveNoise); s == base {
		t.Error("Changing segment index did not change derived seed")
	}
	if s := DeriveSeed(42, 3, NameCodecStub); s == base {
		t.Error("Changing perturbation name did not change derived seed")
	}
}

func TestDeriveSeedAcrossSegments(t *testing.T) {
	seen := make(map[int64]int)
	for i := 0; i < 100; i++ {
		seed := DeriveSeed(7, i, NameAdditiveNoise)
		if prev, ok := seen[seed]; ok {
			t.Fatalf("Segments %d and %d collide on seed %d", prev, i, seed)
		}
		seen[seed] = i
	}
}
