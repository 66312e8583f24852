package valueobjects

import (
	"fmt"
	"maps"
	"strings"
)

const (
	DefaultVariant = "standard"
	DefaultRegion  = "DEFAULT"

	ModeRated  = "rated"
	ModeCasual = "casual"
)

// HardConstraints define the pool a ticket queues in. Two tickets are only
// ever compared when all four fields match.
type HardConstraints struct {
	TimeControl string `json:"time_control"`
	Mode        string `json:"mode"`
	Variant     string `json:"variant"`
	Region      string `json:"region"`
}

// Normalize fills defaults and validates the mode.
func (h HardConstraints) Normalize() (HardConstraints, error) {
	h.TimeControl = strings.TrimSpace(h.TimeControl)
	h.Mode = strings.ToLower(strings.TrimSpace(h.Mode))
	h.Variant = strings.ToLower(strings.TrimSpace(h.Variant))
	h.Region = strings.TrimSpace(h.Region)
	if h.TimeControl == "" {
		return h, fmt.Errorf("time control is required")
	}
	if h.Mode != ModeRated && h.Mode != ModeCasual {
		return h, fmt.Errorf("invalid mode %q: want rated or casual", h.Mode)
	}
	if h.Variant == "" {
		h.Variant = DefaultVariant
	}
	if h.Region == "" {
		h.Region = DefaultRegion
	}
	return h, nil
}

// PoolKey renders variant_timecontrol_mode_region, e.g. standard_5+0_rated_DEFAULT.
func (h HardConstraints) PoolKey() string {
	return fmt.Sprintf("%s_%s_%s_%s", h.Variant, h.TimeControl, h.Mode, h.Region)
}

func (h HardConstraints) Rated() bool {
	return h.Mode == ModeRated
}

// ParsePoolKey reverses PoolKey. Region may itself contain underscores.
func ParsePoolKey(key string) (HardConstraints, error) {
	parts := strings.SplitN(key, "_", 4)
	if len(parts) != 4 {
		return HardConstraints{}, fmt.Errorf("invalid pool key %q", key)
	}
	return HardConstraints{Variant: parts[0], TimeControl: parts[1], Mode: parts[2], Region: parts[3]}, nil
}

// Soft constraint keys read by the matcher. Other keys are stored verbatim.
const (
	SoftRatingWindow    = "rating_window"
	SoftPreferredRegion = "preferred_region"
	SoftMaxLatencyMS    = "max_latency_ms"
	SoftColorPreference = "color_preference"
)

// SoftConstraints are free-form preferences. Updates merge key by key.
type SoftConstraints map[string]any

// Merge returns a copy of s overlaid with update.
func (s SoftConstraints) Merge(update SoftConstraints) SoftConstraints {
	out := make(SoftConstraints, len(s)+len(update))
	maps.Copy(out, s)
	maps.Copy(out, update)
	return out
}

func (s SoftConstraints) RatingWindow() (int, bool) {
	return intValue(s[SoftRatingWindow])
}

func (s SoftConstraints) MaxLatencyMS() (int, bool) {
	return intValue(s[SoftMaxLatencyMS])
}

func (s SoftConstraints) PreferredRegion() string {
	v, _ := s[SoftPreferredRegion].(string)
	return v
}

func (s SoftConstraints) ColorPreference() string {
	v, _ := s[SoftColorPreference].(string)
	return strings.ToLower(v)
}

// WideningConfig carries per-ticket overrides of the widening defaults.
type WideningConfig struct {
	RatingWindow *int `json:"rating_window,omitempty"`
	MaxLatencyMS *int `json:"max_latency_ms,omitempty"`
}

// intValue accepts the numeric shapes a decoded JSON map can hold.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, n > 0
	case int64:
		return int(n), n > 0
	case float64:
		return int(n), n > 0
	case float32:
		return int(n), n > 0
	default:
		return 0, false
	}
}
