package schema

import "strings"

// Network is the closed set of mediation partners this system reconciles
// against. Unity is the mediator's own demand source entry too, since MAX
// reports Unity inventory the same way it reports any other network.
type Network int

const (
	NetworkUnknown Network = iota
	NetworkAdMob
	NetworkAdjust
	NetworkAppLovin
	NetworkBidMachine
	NetworkChartboost
	NetworkDTExchange
	NetworkInMobi
	NetworkIronSource
	NetworkLiftoff
	NetworkMeta
	NetworkMintegral
	NetworkMoloco
	NetworkPangle
	NetworkUnity
)

// NetworkInfo is the per-network descriptor: display name, icon tag,
// typical reporting delay, and whether previous-day substitution is
// acceptable when a fetch fails.
type NetworkInfo struct {
	Network         Network
	DisplayName     string
	IconTag         string
	ReportingDelay  int // days
	Fallback        bool
	DefaultTimeZone string
}

var networkInfos = map[Network]NetworkInfo{
	NetworkAdMob:       {NetworkAdMob, "AdMob", "admob", 1, true, "UTC"},
	NetworkAdjust:      {NetworkAdjust, "Adjust", "adjust", 1, true, "UTC"},
	NetworkAppLovin:    {NetworkAppLovin, "AppLovin MAX", "applovin", 1, false, "UTC"},
	NetworkBidMachine:  {NetworkBidMachine, "BidMachine", "bidmachine", 2, true, "UTC"},
	NetworkChartboost:  {NetworkChartboost, "Chartboost", "chartboost", 2, true, "UTC"},
	NetworkDTExchange:  {NetworkDTExchange, "DT Exchange", "dtexchange", 2, true, "UTC"},
	NetworkInMobi:      {NetworkInMobi, "InMobi", "inmobi", 2, true, "UTC"},
	NetworkIronSource:  {NetworkIronSource, "ironSource", "ironsource", 1, true, "UTC"},
	NetworkLiftoff:     {NetworkLiftoff, "Liftoff", "liftoff", 2, true, "UTC"},
	NetworkMeta:        {NetworkMeta, "Meta Audience Network", "meta", 3, true, "UTC"},
	NetworkMintegral:   {NetworkMintegral, "Mintegral", "mintegral", 2, true, "UTC"},
	NetworkMoloco:      {NetworkMoloco, "Moloco", "moloco", 1, true, "UTC"},
	NetworkPangle:      {NetworkPangle, "Pangle", "pangle", 2, true, "UTC"},
	NetworkUnity:       {NetworkUnity, "Unity Ads", "unity", 1, true, "UTC"},
}

// Info returns the descriptor for n, or the zero-value NetworkUnknown
// descriptor if n has none.
func (n Network) Info() NetworkInfo {
	if info, ok := networkInfos[n]; ok {
		return info
	}
	return NetworkInfo{Network: NetworkUnknown, DisplayName: "unknown"}
}

func (n Network) String() string {
	return n.Info().DisplayName
}

// networkAliases is the bidirectional name table: every observed API
// spelling maps to exactly one Network value. It lists each network's
// own lowercase name plus the extra spellings networks are known to use for
// themselves or for each other (e.g. AppLovin's MAX dashboard reports
// "Facebook Audience Network" for Meta).
var networkAliases = map[string]Network{
	"admob":                    NetworkAdMob,
	"google admob":             NetworkAdMob,
	"adjust":                   NetworkAdjust,
	"applovin":                 NetworkAppLovin,
	"applovin max":             NetworkAppLovin,
	"applovin_max":             NetworkAppLovin,
	"max":                      NetworkAppLovin,
	"bidmachine":               NetworkBidMachine,
	"bid_machine":              NetworkBidMachine,
	"chartboost":               NetworkChartboost,
	"dt exchange":              NetworkDTExchange,
	"dtexchange":               NetworkDTExchange,
	"digital turbine exchange": NetworkDTExchange,
	"fyber":                    NetworkDTExchange,
	"inmobi":                   NetworkInMobi,
	"ironsource":               NetworkIronSource,
	"iron source":              NetworkIronSource,
	"is":                       NetworkIronSource,
	"liftoff":                  NetworkLiftoff,
	"vungle":                   NetworkLiftoff,
	"meta":                     NetworkMeta,
	"facebook":                 NetworkMeta,
	"facebook audience network": NetworkMeta,
	"fan":                      NetworkMeta,
	"mintegral":                NetworkMintegral,
	"moloco":                   NetworkMoloco,
	"pangle":                   NetworkPangle,
	"unity":                    NetworkUnity,
	"unity ads":                NetworkUnity,
}

// ResolveNetwork maps a raw network label (as reported by the mediator or
// by a network's own API) to a canonical Network. The boolean is false
// when the label is unresolvable; callers must not guess and must count
// the row as unresolved instead.
func ResolveNetwork(raw string) (Network, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	n, ok := networkAliases[key]
	if !ok || n == NetworkUnknown {
		return NetworkUnknown, false
	}
	return n, true
}

// AllNetworks returns every non-mediator Network in a stable order,
// suitable for config enumeration and deterministic iteration.
func AllNetworks() []Network {
	return []Network{
		NetworkAdMob, NetworkAdjust, NetworkBidMachine, NetworkChartboost,
		NetworkDTExchange, NetworkInMobi, NetworkIronSource, NetworkLiftoff,
		NetworkMeta, NetworkMintegral, NetworkMoloco, NetworkPangle, NetworkUnity,
	}
}
