// Command mockgee serves a local stand-in for the Earth Engine reduce proxy,
// answering /v1/reduce with deterministic synthetic precipitation so the
// resolver and rainfallcheck can run without real satellite credentials.
// Values are derived from the request parameters, so repeated queries for the
// same location and window agree.
//
// Usage:
//
//	go run ./cmd/mockgee -addr :9000 -dry-rate 0.2
//
// Then point the resolver at it:
//
//	EARTH_ENGINE_BASE_URL=http://localhost:9000 go run ./cmd/resolver
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/floodcast/rainfall-resolver/internal/domain"
)

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	dryRate := flag.Float64("dry-rate", 0.2, "fraction of location-days reported as zero (exercises fallback)")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/reduce", handleReduce(*dryRate))

	log.Printf("mock reduce proxy listening on %s (dry-rate %.2f)", *addr, *dryRate)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

func handleReduce(dryRate float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		start, err := time.Parse(domain.DateLayout, q.Get("start"))
		if err != nil {
			http.Error(w, "invalid start", http.StatusBadRequest)
			return
		}
		end, err := time.Parse(domain.DateLayout, q.Get("end"))
		if err != nil || end.Before(start) {
			http.Error(w, "invalid end", http.StatusBadRequest)
			return
		}

		seedBase := fmt.Sprintf("%s|%s|%s", q.Get("dataset"), q.Get("lat"), q.Get("lon"))

		// One synthetic daily value per day in the window, summed like the
		// real reducer would.
		var total float64
		images := 0
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			total += syntheticDaily(seedBase+d.Format(domain.DateLayout), dryRate)
			images++
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"value":       math.Round(total*100) / 100,
			"image_count": images,
		})
	}
}

// syntheticDaily maps a seed string to a stable daily total in [0, 40) mm,
// with roughly dryRate of seeds producing zero.
func syntheticDaily(seed string, dryRate float64) float64 {
	h := fnv.New64a()
	h.Write([]byte(seed))
	u := float64(h.Sum64()%10000) / 10000.0

	if u < dryRate {
		return 0
	}
	// Rescale the remaining mass so values stay spread across the range.
	return (u - dryRate) / (1 - dryRate) * 40
}
