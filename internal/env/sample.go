package env

// WindRecord is one line sent by the anemometer microcontroller, e.g. {"ws_ms": 1.57}.
// A nil WindSpeed means the field was missing or null.
type WindRecord struct {
	WindSpeed *float64 `json:"ws_ms"` // m/s
}

// Combined is the debug record emitted when a tick has both a wind sample
// and a known temperature.
type Combined struct {
	WindSpeed   float64 `json:"ws_ms"`  // m/s
	Temperature float64 `json:"temp_c"` // °C
}
