package models

// RouteInfo is the human-readable summary of a computed leg, shown alongside
// the live map. Cleared, never left stale, when a directions call fails.
type RouteInfo struct {
	Distance string `json:"distance"`
	Duration string `json:"duration"`
}

// RouteLeg is the raw result of a directions request between two points.
type RouteLeg struct {
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int    `json:"duration_seconds"`
	DistanceText    string `json:"distance_text"`
	DurationText    string `json:"duration_text"`
	Polyline        string `json:"polyline"`
}
