package bootstrap

import (
	"errors"
	"testing"

	"github.com/nerve-engine/nerve/internal/domain"
)

func TestEnsureRegionEmptyIsAllowed(t *testing.T) {
	if err := EnsureRegion(""); err != nil {
		t.Errorf("EnsureRegion(\"\") error = %v, want nil", err)
	}
}

func TestEnsureRegionKnownIsAllowed(t *testing.T) {
	if err := EnsureRegion("francecentral"); err != nil {
		t.Errorf("EnsureRegion(francecentral) error = %v, want nil", err)
	}
}

func TestEnsureRegionUnknownReturnsErrUnsupportedRegion(t *testing.T) {
	err := EnsureRegion("nowhere")
	if !errors.Is(err, domain.ErrUnsupportedRegion) {
		t.Errorf("EnsureRegion(nowhere) error = %v, want ErrUnsupportedRegion", err)
	}
}
