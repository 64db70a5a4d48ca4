package apperr

import (
	"errors"
	"strings"
	"testing"
)

func TestWrappedErrorsMatchClass(t *testing.T) {
	if err := Validationf("date %q is bad", "x"); !errors.Is(err, ErrValidation) {
		t.Errorf("Validationf should match ErrValidation: %v", err)
	}

	cause := errors.New("connection refused")
	err := Persistence("read roster", cause)
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("Persistence should match ErrPersistence: %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("cause should stay in the chain: %v", err)
	}
	if !strings.Contains(err.Error(), "read roster") {
		t.Errorf("op should appear in message: %v", err)
	}

	if err := Export("flush", cause); !errors.Is(err, ErrExport) {
		t.Errorf("Export should match ErrExport: %v", err)
	}
}

func TestClassesAreDisjoint(t *testing.T) {
	if errors.Is(Validationf("x"), ErrPersistence) {
		t.Error("validation error must not match persistence")
	}
	if errors.Is(Persistence("op", errors.New("x")), ErrValidation) {
		t.Error("persistence error must not match validation")
	}
}
