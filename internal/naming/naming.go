package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"payloadkeeper/internal/classify"
)

// TimestampLayout is the sortable, second-precision timestamp at the start of every payload filename.
const TimestampLayout = "20060102150405"

// Extension is the payload file extension.
const Extension = ".json"

var (
	canonicalPattern = regexp.MustCompile(`^(\d{14})(_cnet)?(_xyz)?(?:_(\d+))?\.json$`)
	// payload_20240101_100000_cnet_xyz.json and payload_cnet_xyz_20240101_100000.json
	legacyPattern = regexp.MustCompile(`^payload_(?:((?:cnet_)?xyz|cnet)_)?(\d{8})_(\d{6})(?:_((?:cnet_)?xyz|cnet))?\.json$`)
	// anything else that still embeds a timestamp
	looseTimestamp = regexp.MustCompile(`(\d{8})_?(\d{6})`)
)

// Name builds the filename for a payload created at ts with the given tags:
// <YYYYMMDDHHMMSS>[_cnet][_xyz].json. The timestamp is rendered in ts's own location.
func Name(ts time.Time, tags classify.Tags) string {
	return ts.Format(TimestampLayout) + tags.Suffix() + Extension
}

// NameWithSerial is Name with a collision serial appended. Serials below 2 produce the plain name.
func NameWithSerial(ts time.Time, tags classify.Tags, serial int) string {
	if serial < 2 {
		return Name(ts, tags)
	}
	return fmt.Sprintf("%s%s_%d%s", ts.Format(TimestampLayout), tags.Suffix(), serial, Extension)
}

// Parsed is what a filename says about its payload.
type Parsed struct {
	Time time.Time
	// Tags are the tags spelled in the name, which may disagree with the content.
	Tags      classify.Tags
	Serial    int
	Canonical bool
	Legacy    bool
}

// Parse extracts the timestamp (in the local zone), tags and serial from a payload filename.
// It returns false when the name carries no recognizable timestamp.
func Parse(filename string) (Parsed, bool) {
	if m := canonicalPattern.FindStringSubmatch(filename); m != nil {
		ts, err := time.ParseInLocation(TimestampLayout, m[1], time.Local)
		if err != nil {
			return Parsed{}, false
		}
		parsed := Parsed{
			Time:      ts,
			Tags:      classify.Tags{ControlNet: m[2] != "", XYZ: m[3] != ""},
			Canonical: true,
		}
		if m[4] != "" {
			serial, err := strconv.Atoi(m[4])
			if err != nil || serial < 2 {
				// "_0" and "_1" are never produced by NameWithSerial.
				parsed.Canonical = false
			}
			parsed.Serial = serial
		}
		return parsed, true
	}

	if m := legacyPattern.FindStringSubmatch(filename); m != nil {
		ts, err := time.ParseInLocation(TimestampLayout, m[2]+m[3], time.Local)
		if err != nil {
			return Parsed{}, false
		}
		return Parsed{Time: ts, Tags: legacyTags(m[1] + m[4]), Legacy: true}, true
	}

	if m := looseTimestamp.FindStringSubmatch(filename); m != nil {
		ts, err := time.ParseInLocation(TimestampLayout, m[1]+m[2], time.Local)
		if err != nil {
			return Parsed{}, false
		}
		return Parsed{Time: ts}, true
	}
	return Parsed{}, false
}

func legacyTags(spelled string) classify.Tags {
	return classify.Tags{
		ControlNet: strings.Contains(spelled, classify.TagControlNet),
		XYZ:        strings.Contains(spelled, classify.TagXYZ),
	}
}
