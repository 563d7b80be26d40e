package lighting

import "testing"

type nopLogger struct{}

func (nopLogger) Info(string, ...any) {}

func TestActuate_KnownZone(t *testing.T) {
	var highlighted []string
	c := NewController([]string{"Zone1", "Zone2"}, func(zone string) {
		highlighted = append(highlighted, zone)
	}, nopLogger{})

	if !c.Actuate("Zone1") {
		t.Error("Actuate(Zone1) = false, want true")
	}
	if len(highlighted) != 1 || highlighted[0] != "Zone1" {
		t.Errorf("highlighted = %v, want [Zone1]", highlighted)
	}
}

func TestActuate_UnknownZone(t *testing.T) {
	var highlighted []string
	c := NewController([]string{"Zone1"}, func(zone string) {
		highlighted = append(highlighted, zone)
	}, nopLogger{})

	if c.Actuate("Zone9") {
		t.Error("Actuate(Zone9) = true, want false")
	}
	if len(highlighted) != 0 {
		t.Errorf("unknown zone triggered highlight: %v", highlighted)
	}
}

func TestActuate_CaseSensitive(t *testing.T) {
	c := NewController([]string{"Zone1"}, nil, nopLogger{})

	if c.Actuate("zone1") {
		t.Error("Actuate(zone1) = true, want case-sensitive match only")
	}
}

func TestActuate_NilHighlight(t *testing.T) {
	c := NewController([]string{"Zone1"}, nil, nopLogger{})

	// Log-only operation must not panic.
	if !c.Actuate("Zone1") {
		t.Error("Actuate(Zone1) = false with nil highlight, want true")
	}
}

func TestNewController_SkipsBlankNames(t *testing.T) {
	c := NewController([]string{"Zone1", "", "  ", "Zone2"}, nil, nopLogger{})

	if c.ZoneCount() != 2 {
		t.Errorf("ZoneCount() = %d, want 2", c.ZoneCount())
	}
}
