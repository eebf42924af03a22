// Package domain models point rainfall observations resolved from a chain of
// external precipitation providers.
//
// # Data Sources
//
// Rainfall figures come from several independent upstreams with very different
// shapes, latencies, and failure modes:
//
//	CHIRPS daily   UCSB-CHG/CHIRPS/DAILY raster, band "precipitation", reduced
//	               server-side over a point (or buffered region) at 5 km scale.
//	               Final product lags real time by roughly two days. A
//	               provider-level scalar correction factor compensates for the
//	               known dry bias over peninsular Malaysia.
//	GPM IMERG      NASA/GPM_L3/IMERG_V06 raster, band "precipitationCal",
//	               reduced at 10 km scale. About one day of processing lag.
//	Open-Meteo     Point forecast API, daily precipitation_sum. Covers roughly
//	               92 days of archive plus a ~15-day forecast horizon. When a
//	               location carries an influence radius the adapter averages
//	               the center with four diagonal offset points.
//	Tomorrow.io    Timeline API, daily precipitationAmount. Forecast-oriented
//	               with only a short lookback; requires an API key.
//
// # The Ambiguous Zero
//
// The satellite products report 0.0 both for "no rain" and for "no usable
// coverage here" — the upstream rasters have genuine gaps that surface as
// zeros rather than nulls. A zero from CHIRPS or IMERG is therefore
// normalized to ErrorNoData so the resolver falls through to the next
// provider instead of trusting it. Model-backed providers (Open-Meteo,
// Tomorrow.io) always have a value for covered dates, so their zeros are
// trusted and returned as real observations.
//
// Negative or missing upstream values never survive normalization: they
// become no-data, so an Observation's precipitation total is always ≥ 0.
//
// # Unresolved vs Zero
//
// When every provider in the chain has failed or reported no data, the
// outcome is an UnresolvedError carrying one Failure record per attempted
// provider. Callers must treat that as "insufficient information", which is
// deliberately distinct from a resolved observation of 0 mm.
package domain
