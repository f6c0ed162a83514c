package pricing

import (
	"testing"

	"github.com/studioxv/booking-platform/pkg/logging"
)

func TestResolveKnownPackage(t *testing.T) {
	catalog := NewCatalog(logging.Default())

	res := catalog.Resolve(ModePackage, "half-day", "", "Recording", 0)

	if res.PackageName != "Half Day Session" {
		t.Errorf("expected catalog name, got %q", res.PackageName)
	}
	if res.DurationHours != 4 {
		t.Errorf("expected 4 hours, got %d", res.DurationHours)
	}
	if !res.DurationConfirmed {
		t.Error("expected confirmed duration for known package")
	}
	if res.Hours != 0 {
		t.Errorf("hours should not be set for package bookings, got %d", res.Hours)
	}
}

func TestResolveUnknownPackageFallsBackToMetadataName(t *testing.T) {
	catalog := NewCatalog(logging.Default())

	res := catalog.Resolve(ModePackage, "weekend-special", "Weekend Special", "Recording", 0)

	if res.PackageName != "Weekend Special" {
		t.Errorf("expected metadata name fallback, got %q", res.PackageName)
	}
	if res.DurationHours != 0 {
		t.Errorf("expected unconfirmed zero duration, got %d", res.DurationHours)
	}
	if res.DurationConfirmed {
		t.Error("unknown package must flag duration as unconfirmed")
	}
}

func TestResolveUnknownPackageWithoutNameSynthesizes(t *testing.T) {
	catalog := NewCatalog(logging.Default())

	res := catalog.Resolve(ModePackage, "mystery", "", "Mixing", 0)

	if res.PackageName != "Mixing Package" {
		t.Errorf("expected synthesized fallback name, got %q", res.PackageName)
	}
}

func TestResolveHourly(t *testing.T) {
	catalog := NewCatalog(logging.Default())

	res := catalog.Resolve(ModeHourly, "", "", "Recording", 3)

	if res.DurationHours != 3 || res.Hours != 3 {
		t.Errorf("expected 3 hours, got duration=%d hours=%d", res.DurationHours, res.Hours)
	}
	if res.PackageName != "3 Hour Recording Session" {
		t.Errorf("unexpected synthesized name %q", res.PackageName)
	}
	if !res.DurationConfirmed {
		t.Error("hourly durations are always confirmed")
	}
}

func TestResolveHourlyClampsInvalidHours(t *testing.T) {
	catalog := NewCatalog(logging.Default())

	for _, hours := range []int{0, -4} {
		res := catalog.Resolve(ModeHourly, "", "", "Recording", hours)
		if res.DurationHours != DefaultHourlyDuration {
			t.Errorf("hours=%d: expected default %d, got %d", hours, DefaultHourlyDuration, res.DurationHours)
		}
	}
}

func TestResolveTrustsModeOverConflictingFields(t *testing.T) {
	catalog := NewCatalog(logging.Default())

	// Package mode with a stray hours value: hours ignored.
	res := catalog.Resolve(ModePackage, "full-day", "", "Recording", 3)
	if res.DurationHours != 8 {
		t.Errorf("expected package duration 8, got %d", res.DurationHours)
	}

	// Hourly mode with stray package fields: package ignored.
	res = catalog.Resolve(ModeHourly, "full-day", "Full Day Session", "Recording", 2)
	if res.Mode != ModeHourly || res.DurationHours != 2 {
		t.Errorf("expected hourly resolution, got %+v", res)
	}
}

func TestWithPackagesReplacesCatalog(t *testing.T) {
	catalog := NewCatalog(logging.Default()).WithPackages([]Package{
		{ID: "overnight", Name: "Overnight Lockout", DurationHours: 12, Price: 500},
	})

	if _, ok := catalog.Lookup("half-day"); ok {
		t.Error("default packages should be gone after WithPackages")
	}
	res := catalog.Resolve(ModePackage, "overnight", "", "Recording", 0)
	if res.PackageName != "Overnight Lockout" || res.DurationHours != 12 {
		t.Errorf("expected configured package, got %+v", res)
	}
}
