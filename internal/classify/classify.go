package classify

import (
	"strings"

	"payloadkeeper/internal/payload"
)

// Tag names as they appear in filenames.
const (
	TagControlNet = "cnet"
	TagXYZ        = "xyz"
)

// Generation modes, one skeleton per mode.
const (
	ModeSingle = "single"
	ModeXYZ    = "xyz"
)

// xyzScriptNames are the selectable script titles the host has used for the X/Y/Z plot.
var xyzScriptNames = []string{"x/y/z plot", "xyz plot"}

// Tags is the semantic tag set of a payload.
type Tags struct {
	ControlNet bool
	XYZ        bool
}

// Empty reports whether no tag is set.
func (t Tags) Empty() bool {
	return !t.ControlNet && !t.XYZ
}

// Suffix renders the tags in filename order: "_cnet" before "_xyz".
func (t Tags) Suffix() string {
	var b strings.Builder
	if t.ControlNet {
		b.WriteString("_" + TagControlNet)
	}
	if t.XYZ {
		b.WriteString("_" + TagXYZ)
	}
	return b.String()
}

// Names lists the set tags in filename order.
func (t Tags) Names() []string {
	names := make([]string, 0, 2)
	if t.ControlNet {
		names = append(names, TagControlNet)
	}
	if t.XYZ {
		names = append(names, TagXYZ)
	}
	return names
}

func (t Tags) String() string {
	if t.Empty() {
		return "none"
	}
	return strings.Join(t.Names(), ",")
}

// Mode returns the skeleton mode for a tag set.
func (t Tags) Mode() string {
	if t.XYZ {
		return ModeXYZ
	}
	return ModeSingle
}

// Classify derives the tag set from payload content. Missing or mistyped fields
// yield no tag; it never fails.
func Classify(p payload.Payload) Tags {
	if p == nil {
		return Tags{}
	}
	return Tags{
		ControlNet: usesControlNet(p),
		XYZ:        usesXYZ(p),
	}
}

func usesControlNet(p payload.Payload) bool {
	if scripts, ok := payload.Object(p[payload.KeyAlwaysOnScripts]); ok {
		for name, script := range scripts {
			if !strings.Contains(strings.ToLower(name), "controlnet") {
				continue
			}
			block, ok := payload.Object(script)
			if ok && hasEnabledUnit(block["args"]) {
				return true
			}
		}
	}
	if block, ok := payload.Object(p["controlnet"]); ok {
		if payload.Truthy(block["enabled"]) || hasEnabledUnit(block["args"]) {
			return true
		}
	}
	return false
}

// hasEnabledUnit reports whether a ControlNet args list holds a unit that is on.
// Units without an explicit enabled flag count when they carry any settings.
func hasEnabledUnit(v any) bool {
	units, ok := v.([]any)
	if !ok {
		return false
	}
	for _, raw := range units {
		unit, ok := payload.Object(raw)
		if !ok || len(unit) == 0 {
			continue
		}
		enabled, present := unit["enabled"]
		if !present || payload.Truthy(enabled) {
			return true
		}
	}
	return false
}

func usesXYZ(p payload.Payload) bool {
	name := strings.ToLower(strings.TrimSpace(p.String(payload.KeyScriptName)))
	for _, candidate := range xyzScriptNames {
		if name == candidate {
			return true
		}
	}
	if block, ok := payload.Object(p["xyz_plot"]); ok && len(block) > 0 {
		return true
	}
	return false
}
