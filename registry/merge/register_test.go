package merge

import (
	"testing"
	"time"
)

var (
	t1 = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	t2 = time.Date(2026, 8, 2, 10, 0, 0, 0, time.UTC)
)

func TestRegisterAdoptsFirstWrite(t *testing.T) {
	var r Register[string]

	if changed := r.merge("Нурофен", t1); !changed {
		t.Error("first write should report a change")
	}
	if r.Value() != "Нурофен" {
		t.Errorf("Value = %q, want Нурофен", r.Value())
	}
	if !r.UpdatedAt().Equal(t1) {
		t.Errorf("UpdatedAt = %v, want %v", r.UpdatedAt(), t1)
	}
}

func TestRegisterNewerWins(t *testing.T) {
	var r Register[string]
	r.merge("Нурофен", t1)

	if changed := r.merge("Нурофен Экспресс", t2); !changed {
		t.Error("newer write should win")
	}
	if r.Value() != "Нурофен Экспресс" {
		t.Errorf("Value = %q, want the newer value", r.Value())
	}
}

func TestRegisterOlderLoses(t *testing.T) {
	var r Register[string]
	r.merge("Нурофен Экспресс", t2)

	if changed := r.merge("Нурофен", t1); changed {
		t.Error("older write must not change the register")
	}
	if r.Value() != "Нурофен Экспресс" {
		t.Errorf("Value = %q, older write overwrote newer", r.Value())
	}
	if !r.UpdatedAt().Equal(t2) {
		t.Errorf("UpdatedAt = %v, want %v", r.UpdatedAt(), t2)
	}
}

func TestRegisterTieKeepsStored(t *testing.T) {
	var r Register[string]
	r.merge("first", t1)

	if changed := r.merge("second", t1); changed {
		t.Error("equal timestamp must keep the stored value")
	}
	if r.Value() != "first" {
		t.Errorf("Value = %q, want first", r.Value())
	}
}

func TestRegisterIdempotent(t *testing.T) {
	var r Register[float64]
	r.merge(12.5, t1)

	if changed := r.merge(12.5, t1); changed {
		t.Error("re-applying the same write must be a no-op")
	}
	if r.Value() != 12.5 {
		t.Errorf("Value = %v, want 12.5", r.Value())
	}
}

func TestRegisterNewerSameValueIsNoChange(t *testing.T) {
	var r Register[string]
	r.merge("same", t1)

	if changed := r.merge("same", t2); changed {
		t.Error("newer write with an identical value should not report change")
	}
	if !r.UpdatedAt().Equal(t2) {
		t.Error("timestamp should still advance on a newer identical write")
	}
}
