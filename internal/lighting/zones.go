package lighting

import "strings"

// HighlightFunc issues the actual hardware actuation for a zone. The uplink
// treats the lighting subsystem as a black box behind this hook; success
// means the actuation was issued, not hardware-confirmed.
type HighlightFunc func(zone string)

// Logger is the subset of logging used by the controller.
type Logger interface {
	Info(msg string, args ...any)
}

// Controller maps command tokens onto the configured lighting zones.
//
// It implements dispatch.Actuator: Actuate answers whether the name
// addressed a known zone and, if so, triggers the highlight hook.
type Controller struct {
	zones     map[string]struct{}
	highlight HighlightFunc
	logger    Logger
}

// NewController creates a Controller for the given zone names.
//
// Parameters:
//   - zones: Addressable zone names from configuration (e.g. "Zone1")
//   - highlight: Hardware hook; nil means log-only operation
//   - logger: Destination for actuation events
func NewController(zones []string, highlight HighlightFunc, logger Logger) *Controller {
	known := make(map[string]struct{}, len(zones))
	for _, zone := range zones {
		zone = strings.TrimSpace(zone)
		if zone != "" {
			known[zone] = struct{}{}
		}
	}
	return &Controller{
		zones:     known,
		highlight: highlight,
		logger:    logger,
	}
}

// Actuate highlights the named zone.
//
// Returns:
//   - bool: true when the name matched a known zone and the actuation was
//     issued; false for unknown names (a normal negative outcome)
func (c *Controller) Actuate(name string) bool {
	if _, ok := c.zones[name]; !ok {
		return false
	}

	if c.highlight != nil {
		c.highlight(name)
	}
	c.logger.Info("zone highlighted", "zone", name)
	return true
}

// ZoneCount returns how many zones are addressable.
func (c *Controller) ZoneCount() int {
	return len(c.zones)
}
