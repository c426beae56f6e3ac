// Command diag prints the Sun altitude track around an observer's night and
// the twilight events found in it, next to go-sunrise's sunset and sunrise.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/star/skytonight/internal/ephemeris"
	"github.com/star/skytonight/internal/logging"
	"github.com/star/skytonight/internal/visibility"
)

func main() {
	lat := flag.Float64("lat", 41, "observer latitude, degrees")
	lon := flag.Float64("lon", -73, "observer longitude, degrees")
	offset := flag.Float64("offset", -4, "UTC offset, hours")
	date := flag.String("date", time.Now().Format("2006-01-02"), "evening of the session, YYYY-MM-DD")
	every := flag.Int("every", 40, "print every n-th coarse sample")
	flag.Parse()

	logger := logging.New(os.Stderr, "warn", "console")
	obs := visibility.Observer{LatitudeDeg: *lat, LongitudeDeg: *lon, Date: *date, UTCOffsetHours: *offset}
	cfg := visibility.DefaultConfig()

	anchor, err := visibility.Anchor(obs, cfg.AdvanceDate)
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}
	zone := obs.Zone()

	window := visibility.SamplingWindow{Anchor: anchor, SpanHours: cfg.CoarseSpanHours, Samples: cfg.CoarseSamples}
	sampler := visibility.NewSampler(ephemeris.NewService(nil, logger), obs.Position(), anchor)
	sun, err := sampler.Sample(context.Background(), visibility.ParseTarget("sun"), window.Times())
	if err != nil {
		fmt.Println("ERROR sampling sun:", err)
		os.Exit(1)
	}

	fmt.Printf("Observer %.4f, %.4f  %s  anchor %s\n", *lat, *lon, zone, anchor.In(zone).Format(time.RFC3339))
	fmt.Printf("Sun track (%d samples, every %d-th shown)\n", len(sun), *every)
	for i, o := range sun {
		if *every > 0 && i%*every != 0 {
			continue
		}
		fmt.Printf("  %s  alt=%7.2f°  az=%6.2f° %s\n",
			o.Time.In(zone).Format("2006-01-02 15:04"), o.AltitudeDeg, o.AzimuthDeg, visibility.Direction(o.AzimuthDeg))
	}

	tw := visibility.LocateTwilight(sun, anchor, zone)
	fmt.Println("Twilight")
	fmt.Printf("  sunset   %s\n", format(tw.Sunset, zone))
	fmt.Printf("  dusk     %s\n", format(tw.Dusk, zone))
	fmt.Printf("  dawn     %s\n", format(tw.Dawn, zone))
	fmt.Printf("  sunrise  %s\n", format(tw.Sunrise, zone))
	fmt.Printf("  half-dark %dh\n", tw.HalfDarkHours)

	evening, _ := time.Parse("2006-01-02", *date)
	morning := evening.AddDate(0, 0, 1)
	_, refSet := sunrise.SunriseSunset(*lat, *lon, evening.Year(), evening.Month(), evening.Day())
	refRise, _ := sunrise.SunriseSunset(*lat, *lon, morning.Year(), morning.Month(), morning.Day())

	fmt.Println("go-sunrise reference (Sun's upper limb with refraction)")
	fmt.Printf("  sunset   %s  delta %s\n", format(nonZero(refSet), zone), delta(tw.Sunset, refSet))
	fmt.Printf("  sunrise  %s  delta %s\n", format(nonZero(refRise), zone), delta(tw.Sunrise, refRise))
}

func format(t *time.Time, zone *time.Location) string {
	if t == nil {
		return "not found"
	}
	return t.In(zone).Format("2006-01-02 15:04:05")
}

func nonZero(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func delta(got *time.Time, ref time.Time) string {
	if got == nil || ref.IsZero() {
		return "n/a"
	}
	return got.Sub(ref).Round(time.Second).String()
}
