// Command rainfallcheck resolves rainfall for one location and date from the
// command line, printing the daily figure, the trailing accumulated figure,
// and any diagnostics from the provider chain. It exercises the same chain
// the service uses, which makes it handy for verifying credentials and
// provider coverage before deploying.
//
// Usage:
//
//	go run ./cmd/rainfallcheck -lat 5.79 -lon 102.56 -date 2024-01-10 -radius 10000
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"

	"github.com/floodcast/rainfall-resolver/internal/config"
	"github.com/floodcast/rainfall-resolver/internal/domain"
	"github.com/floodcast/rainfall-resolver/internal/observability"
	"github.com/floodcast/rainfall-resolver/internal/rainfall"
	"github.com/floodcast/rainfall-resolver/internal/resolver"
)

func main() {
	lat := flag.Float64("lat", 0, "latitude of the location")
	lon := flag.Float64("lon", 0, "longitude of the location")
	radius := flag.Float64("radius", 0, "influence radius in meters (0 for a point query)")
	dateStr := flag.String("date", "", "target date as YYYY-MM-DD (default today)")
	timeout := flag.Duration("timeout", time.Minute, "overall resolution timeout")
	flag.Parse()

	if *lat == 0 && *lon == 0 {
		fmt.Fprintln(os.Stderr, "both -lat and -lon are required")
		flag.Usage()
		os.Exit(1)
	}

	date := domain.Today()
	if *dateStr != "" {
		var err error
		date, err = time.Parse(domain.DateLayout, *dateStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -date: %v\n", err)
			os.Exit(1)
		}
	}

	if code := run(domain.Location{Lat: *lat, Lon: *lon, RadiusMeters: *radius}, date, *timeout); code != 0 {
		os.Exit(code)
	}
}

func run(loc domain.Location, date time.Time, timeout time.Duration) int {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}

	logger := observability.NewLogger("warn", "text")
	metrics := observability.NewMetrics()

	providers := rainfall.BuildProviders(cfg, logger)
	if len(providers) == 0 {
		fmt.Fprintln(os.Stderr, "FATAL: no providers configured; set EARTH_ENGINE_BASE_URL or TOMORROW_API_KEY")
		return 1
	}

	cache := resolver.NewCache(cfg.CacheTTL, cfg.CacheTTLHistorical, clockwork.NewRealClock(), metrics)
	chain := resolver.New(providers, cache, cfg.ProviderTimeout, logger, metrics)
	accum := rainfall.NewAccumulator(chain, cfg.AccumWindowDays, cfg.AccumConcurrency, logger, metrics)
	service := rainfall.NewService(chain, accum, nil, logger, metrics)

	fmt.Printf("=== Rainfall Check: %s on %s ===\n", loc.Fingerprint(), date.Format(domain.DateLayout))
	fmt.Printf("Chain: %v\n\n", chain.Providers())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	result, err := service.Resolve(ctx, loc, date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: resolve: %v\n", err)
		return 1
	}

	printFigure("Daily", result.Daily)
	printFigure(fmt.Sprintf("Accumulated (%dd)", cfg.AccumWindowDays), result.Accumulated)

	if len(result.Diagnostics) > 0 {
		fmt.Println("\nDiagnostics:")
		for i, d := range result.Diagnostics {
			fmt.Printf("  [%d] %s: %s (%s)\n", i+1, d.Provider, d.Kind, d.Detail)
		}
	}

	if result.Unresolved() {
		fmt.Println("\nUNRESOLVED: no provider could supply a figure.")
		return 2
	}
	return 0
}

func printFigure(label string, fig *domain.Figure) {
	if fig == nil {
		fmt.Printf("  %-18s unresolved\n", label)
		return
	}
	suffix := ""
	if fig.Partial {
		suffix = " (partial)"
	}
	fmt.Printf("  %-18s %.2f mm via %s over %s%s\n", label, fig.PrecipMM, fig.Provider, fig.Window, suffix)
}
