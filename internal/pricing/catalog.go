package pricing

import (
	"fmt"

	"github.com/studioxv/booking-platform/pkg/logging"
)

// Mode selects how a booking's duration and price were derived.
type Mode string

const (
	ModePackage Mode = "package"
	ModeHourly  Mode = "hourly"
)

// DefaultHourlyDuration is used when an hourly booking arrives without a
// usable hour count. Sessions are never zero-length.
const DefaultHourlyDuration = 2

// Package is a fixed-duration catalog entry reusable across services.
type Package struct {
	ID            string
	Name          string
	DurationHours int
	Price         float64
}

// defaultPackages mirrors the studio's published session packages.
func defaultPackages() map[string]Package {
	return map[string]Package{
		"half-day": {ID: "half-day", Name: "Half Day Session", DurationHours: 4, Price: 160},
		"full-day": {ID: "full-day", Name: "Full Day Session", DurationHours: 8, Price: 300},
		"single":   {ID: "single", Name: "Single Track", DurationHours: 1, Price: 50},
		"ep":       {ID: "ep", Name: "EP (4-6 tracks)", DurationHours: 3, Price: 180},
		"album":    {ID: "album", Name: "Album (10+ tracks)", DurationHours: 8, Price: 400},
	}
}

// Catalog resolves package and hourly pricing metadata into a single
// consistent view of what was booked.
type Catalog struct {
	packages map[string]Package
	logger   *logging.Logger
}

// NewCatalog creates a catalog with the studio's default packages.
func NewCatalog(logger *logging.Logger) *Catalog {
	if logger == nil {
		logger = logging.Default()
	}
	return &Catalog{packages: defaultPackages(), logger: logger}
}

// WithPackages replaces the package set, for deployments that configure
// their own catalog.
func (c *Catalog) WithPackages(packages []Package) *Catalog {
	m := make(map[string]Package, len(packages))
	for _, p := range packages {
		m[p.ID] = p
	}
	c.packages = m
	return c
}

// Lookup returns the catalog entry for a package id.
func (c *Catalog) Lookup(id string) (Package, bool) {
	p, ok := c.packages[id]
	return p, ok
}

// Resolution is the resolved duration/display view of a booking's pricing.
type Resolution struct {
	Mode          Mode
	PackageID     string
	PackageName   string
	DurationHours int
	// Hours is populated only for hourly bookings.
	Hours int
	// DurationConfirmed is false when the package id was unknown and no
	// duration could be derived. DurationHours of 0 then means "to be
	// confirmed", not a zero-length session.
	DurationConfirmed bool
}

// Resolve derives package name and duration from raw checkout metadata.
// The mode flag is trusted over conflicting fields: upstream metadata is
// less reliable than the explicit pricing mode.
func (c *Catalog) Resolve(mode Mode, packageID, metadataName, service string, hours int) Resolution {
	switch mode {
	case ModePackage:
		if hours > 0 {
			c.logger.Warn("pricing: package booking carries an hours value, ignoring",
				"package_id", packageID, "hours", hours)
		}
		if pkg, ok := c.packages[packageID]; ok {
			return Resolution{
				Mode:              ModePackage,
				PackageID:         packageID,
				PackageName:       pkg.Name,
				DurationHours:     pkg.DurationHours,
				DurationConfirmed: true,
			}
		}
		name := metadataName
		if name == "" {
			name = fmt.Sprintf("%s Package", service)
		}
		c.logger.Warn("pricing: unknown package id, duration unconfirmed",
			"package_id", packageID, "fallback_name", name)
		return Resolution{
			Mode:              ModePackage,
			PackageID:         packageID,
			PackageName:       name,
			DurationHours:     0,
			DurationConfirmed: false,
		}

	default:
		if packageID != "" || metadataName != "" {
			c.logger.Warn("pricing: hourly booking carries package fields, ignoring",
				"package_id", packageID, "package_name", metadataName)
		}
		h := hours
		if h <= 0 {
			h = DefaultHourlyDuration
		}
		return Resolution{
			Mode:              ModeHourly,
			PackageName:       fmt.Sprintf("%d Hour %s Session", h, service),
			DurationHours:     h,
			Hours:             h,
			DurationConfirmed: true,
		}
	}
}
