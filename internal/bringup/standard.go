// Package bringup programs the capture device for a selected video
// standard. Each standard has its own fixed sequence of vendor commands;
// this package owns the dispatch and the device-reset sequence.
package bringup

import (
	"fmt"
)

// Standard is one of the capture modes the device supports
type Standard int

const (
	// Standard720p captures progressive 720p over HDMI
	Standard720p Standard = iota

	// Standard1080p captures progressive 1080p over HDMI
	Standard1080p

	// Standard576i captures interlaced 576i SD
	Standard576i

	// StandardComponent576p captures 576p over component input
	StandardComponent576p

	// StandardComponent720p captures 720p over component input
	StandardComponent720p

	// StandardComponent1080i captures 1080i over component input
	StandardComponent1080i

	// StandardComponent1080p captures 1080p over component input
	StandardComponent1080p
)

// DefaultStandard is selected when the user does not ask for a resolution
const DefaultStandard = Standard720p

var tokens = map[string]Standard{
	"720p":   Standard720p,
	"1080p":  Standard1080p,
	"576i":   Standard576i,
	"c576p":  StandardComponent576p,
	"c720p":  StandardComponent720p,
	"c1080i": StandardComponent1080i,
	"c1080p": StandardComponent1080p,
}

// ParseStandard maps a CLI resolution token to its Standard. Unknown
// tokens are an error; there is no fallback.
func ParseStandard(token string) (Standard, error) {
	std, ok := tokens[token]
	if !ok {
		return 0, fmt.Errorf("unsupported resolution: %q", token)
	}
	return std, nil
}

// String returns the CLI token for the standard
func (s Standard) String() string {
	switch s {
	case Standard720p:
		return "720p"
	case Standard1080p:
		return "1080p"
	case Standard576i:
		return "576i"
	case StandardComponent576p:
		return "c576p"
	case StandardComponent720p:
		return "c720p"
	case StandardComponent1080i:
		return "c1080i"
	case StandardComponent1080p:
		return "c1080p"
	default:
		return fmt.Sprintf("Standard(%d)", int(s))
	}
}

// Standards lists every supported standard in token order
func Standards() []Standard {
	return []Standard{
		Standard720p,
		Standard1080p,
		Standard576i,
		StandardComponent576p,
		StandardComponent720p,
		StandardComponent1080i,
		StandardComponent1080p,
	}
}
