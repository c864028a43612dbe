package model

// Well-known partner statuses published by the feed.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Partner is a geolocated partner point shown on the map.
// StoreID is unique and stable across syncs.
type Partner struct {
	StoreID   string  `json:"storeId"`
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	Capacity  int     `json:"capacity"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DeliveryStation has the same shape as Partner but belongs to its own collection.
type DeliveryStation struct {
	StoreID   string  `json:"storeId"`
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	Capacity  int     `json:"capacity"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Snapshot is the result of one complete sync: both collections as they were
// returned (or served from cache) by a single refresh.
type Snapshot struct {
	Partners         []Partner         `json:"partners"`
	DeliveryStations []DeliveryStation `json:"deliveryStations"`
}

// ValidCoordinate reports whether lat/lon are WGS84 degrees usable for map placement.
func ValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
