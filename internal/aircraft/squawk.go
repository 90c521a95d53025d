package aircraft

// emergencySquawks are the transponder codes the Alert Dispatcher treats as
// priority=critical, bypassing the per-aircraft cooldown but not the
// per-hour cap (spec §4.6).
var emergencySquawks = map[string]bool{
	"7500": true, // unlawful interference (hijack)
	"7600": true, // radio failure
	"7700": true, // general emergency
}

// IsEmergencySquawk reports whether squawk is one of the three emergency
// codes.
func IsEmergencySquawk(squawk string) bool {
	return emergencySquawks[squawk]
}
