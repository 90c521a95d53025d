package config

import (
	"sentinel1090/internal/aircraft"
	"sentinel1090/internal/source"
	"sentinel1090/internal/watchlist"
)

// SourceConfigs converts the parsed source list into source.Config values
// ready for Manager.AddSource.
func (c Config) SourceConfigs() []source.Config {
	out := make([]source.Config, 0, len(c.Sources))
	for _, s := range c.Sources {
		out = append(out, source.Config{
			Name:                    s.Name,
			Type:                    source.Type(s.Type),
			Address:                 s.Address,
			ReconnectBackoffInitial: s.ReconnectBackoffInitial,
			ReconnectBackoffMax:     s.ReconnectBackoffMax,
			ReadIdleTimeout:         s.ReadIdleTimeout,
			PollInterval:            s.PollInterval,
		})
	}
	return out
}

// AircraftTrackerConfig converts the CPR + tracker sections into aircraft.Config.
func (c Config) AircraftTrackerConfig() aircraft.Config {
	defaults := aircraft.DefaultConfig()
	return aircraft.Config{
		AircraftTimeout:  c.Tracker.AircraftTimeout,
		MaxAircraft:      c.Tracker.MaxAircraft,
		GlobalCPRWindow:  defaults.GlobalCPRWindow,
		SurfaceCPRWindow: defaults.SurfaceCPRWindow,
		LocalCPRRangeNM:  c.CPR.LocalRangeNM,
		PositionTimeout:  c.Tracker.PositionTimeout,
		ReferenceLat:     c.CPR.ReferenceLat,
		ReferenceLon:     c.CPR.ReferenceLon,
		HasReference:     c.CPR.HasReference,
	}
}

// WatchlistEntries compiles every configured entry, returning the first
// compile error encountered (config.validate already rejected unknown
// kinds, so only pattern-specific errors like a bad regex surface here).
func (c Config) WatchlistEntries() ([]watchlist.Entry, error) {
	out := make([]watchlist.Entry, 0, len(c.Watchlist.Entries))
	for _, e := range c.Watchlist.Entries {
		kind, err := watchlistKind(e.Kind)
		if err != nil {
			return nil, err
		}
		compiled, err := watchlist.Compile(watchlist.Entry{Kind: kind, Value: e.Value, Label: e.Label})
		if err != nil {
			return nil, err
		}
		out = append(out, compiled)
	}
	return out, nil
}
