package store

// Config holds configuration for the Store.
type Config struct {
	// TableName is the single table holding every entity kind.
	// Default: "rentiva"
	TableName string

	// CarIndex is the GSI keyed by the carId attribute, used for the
	// bookings-by-car reverse lookup. Empty selects the scan fallback.
	CarIndex string

	// UserIndex is the GSI keyed by the userId attribute, used for the
	// bookings-by-user reverse lookup. Empty selects the scan fallback.
	UserIndex string

	// DelegationIndex is the GSI keyed by the delegationId attribute, used
	// for the cars-by-delegation reverse lookup. Empty selects the scan
	// fallback.
	DelegationIndex string

	// ScanSegments is the number of parallel segments used by full-table
	// scans. Higher values shorten scans of large tables at the cost of
	// parallel read capacity.
	// Default: 1 (sequential scan)
	// Max: 16
	ScanSegments int
}

// DefaultConfig returns defaults suitable for small deployments: one table,
// no secondary indexes (scan fallback everywhere), sequential scans.
func DefaultConfig() Config {
	return Config{
		TableName:    "rentiva",
		ScanSegments: 1,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.TableName == "" {
		c.TableName = "rentiva"
	}
	if c.ScanSegments < 1 {
		c.ScanSegments = 1
	}
	if c.ScanSegments > 16 {
		c.ScanSegments = 16
	}
}

// indexFor returns the configured GSI name for a reverse-lookup attribute,
// or "" when the attribute falls back to scanning.
func (c Config) indexFor(attribute string) string {
	switch attribute {
	case AttributeCarID:
		return c.CarIndex
	case AttributeUserID:
		return c.UserIndex
	case AttributeDelegationID:
		return c.DelegationIndex
	default:
		return ""
	}
}
