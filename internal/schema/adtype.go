package schema

import "strings"

// AdType is the closed set of canonical ad formats.
type AdType int

const (
	AdTypeBanner AdType = iota
	AdTypeInterstitial
	AdTypeRewarded
)

func (a AdType) String() string {
	switch a {
	case AdTypeInterstitial:
		return "interstitial"
	case AdTypeRewarded:
		return "rewarded"
	default:
		return "banner"
	}
}

// adTypeAliases maps every raw network ad-format spelling this system has
// observed to its canonical AdType. Kept as a single flat table so adding a
// network's format never requires touching more than one line.
var adTypeAliases = map[string]AdType{
	"banner":          AdTypeBanner,
	"mrec":            AdTypeBanner,
	"native":          AdTypeBanner,
	"native_banner":   AdTypeBanner,
	"adaptive_banner": AdTypeBanner,

	"interstitial":                  AdTypeInterstitial,
	"fullscreen":                    AdTypeInterstitial,
	"app_open":                      AdTypeInterstitial,
	"non_skippable_interstitial":    AdTypeInterstitial,

	"rewarded_video":        AdTypeRewarded,
	"skippable_video":       AdTypeRewarded,
	"non_skippable_video":   AdTypeRewarded,
	"incentivized_video":    AdTypeRewarded,
	"incentivized":          AdTypeRewarded,
	"rewarded":              AdTypeRewarded,
	"rewarded_interstitial": AdTypeRewarded,
}

// NormalizeAdType maps a raw network ad-format string to a canonical
// AdType. incentivized is special-cased by the caller via
// NormalizeVideoLabel when the "video" label needs the companion
// incentivized flag to disambiguate rewarded vs. interstitial.
func NormalizeAdType(raw string) (AdType, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	if strings.HasPrefix(key, "incentivized") {
		return AdTypeRewarded, true
	}
	t, ok := adTypeAliases[key]
	return t, ok
}

// NormalizeVideoLabel resolves the mediator-independent "video" label,
// which is ambiguous between interstitial and rewarded without the
// companion incentivized field some networks attach to it.
func NormalizeVideoLabel(incentivized bool) AdType {
	if incentivized {
		return AdTypeRewarded
	}
	return AdTypeInterstitial
}
