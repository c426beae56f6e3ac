package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"strconv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/star/skytonight/internal/catalog"
	"github.com/star/skytonight/internal/logging"
	"github.com/star/skytonight/internal/metrics"
	"github.com/star/skytonight/internal/visibility"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skytonight.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const testConfig = `
observer:
  latitude: 41
  longitude: -73
  elevation_m: 40
  utc_offset: -4
targets: [m31, m7, m404]
logging:
  level: error
`

func TestRunReportJSON(t *testing.T) {
	path := writeConfig(t, testConfig)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"run", "-config", path, "-date", "2020-10-11", "-json"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}

	var report visibility.Report
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("decoding report: %v\n%s", err, stdout.String())
	}
	if report.Observer.Date != "2020-10-11" || report.Observer.ElevationM != 40 {
		t.Errorf("observer = %+v", report.Observer)
	}
	if len(report.Summaries) != 1 || report.Summaries[0].Object != "m31" {
		t.Errorf("summaries = %+v, want only m31", report.Summaries)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Object != "m404" {
		t.Errorf("skipped = %+v, want m404", report.Skipped)
	}
	t.Logf("rows: %d, half dark: %dh", len(report.Rows), report.Twilight.HalfDarkHours)
}

func TestRunReportText(t *testing.T) {
	path := writeConfig(t, testConfig)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-config", path, "-date", "2020-10-11", "-targets", "m31, m13"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"Sunset", "OBJECT", "m31", "m13", "galaxy", "DIR"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "m404") {
		t.Error("-targets did not override the configured targets")
	}
}

func TestRunErrors(t *testing.T) {
	path := writeConfig(t, testConfig)

	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{"unknown command", []string{"launch"}, 2},
		{"bad flag", []string{"run", "-bogus"}, 2},
		{"missing config", []string{"run", "-config", filepath.Join(t.TempDir(), "absent.yaml")}, 1},
		{"invalid date", []string{"run", "-config", path, "-date", "2021-02-30"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), tt.args, &stdout, &stderr); code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr %s)", code, tt.wantCode, stderr.String())
			}
		})
	}
}

func TestCatalogCommand(t *testing.T) {
	path := writeConfig(t, testConfig)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"catalog", "-config", path, "-type", "Planetary_Nebula", "-json"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code %d, stderr: %s", code, stderr.String())
	}
	var objects []catalog.Object
	if err := json.Unmarshal(stdout.Bytes(), &objects); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(objects) == 0 {
		t.Fatal("no planetary nebulae listed")
	}
	for _, o := range objects {
		if o.Type != catalog.TypePlanetaryNebula {
			t.Errorf("%s: type %s", o.ID, o.Type)
		}
	}
}

func TestRenderReport(t *testing.T) {
	zone := time.FixedZone("", -4*3600)
	dusk := time.Date(2020, 10, 11, 19, 48, 0, 0, zone)
	report := &visibility.Report{
		Observer: visibility.Observer{LatitudeDeg: 41, LongitudeDeg: -73, Date: "2020-10-11", UTCOffsetHours: -4},
		Window:   visibility.SamplingWindow{SpanHours: 4, Samples: 500},
		Twilight: visibility.TwilightTimes{Dusk: &dusk, HalfDarkHours: 4},
		Summaries: []visibility.Record{{
			Object:            "m31",
			Type:              catalog.TypeGalaxy,
			Rise:              &visibility.LocalHour{Date: "2020-10-11", Hour: 20},
			Set:               &visibility.LocalHour{Date: "2020-10-12", Hour: 3},
			Culmination:       &visibility.LocalHour{Date: "2020-10-11", Hour: 23},
			CulminationAltDeg: 82.6,
		}},
		Rows: []visibility.Row{{
			Object: "m31", Type: "galaxy", LocalDate: "2020-10-11", LocalHour: 20,
			AltitudeDeg: 41.2, AzimuthDeg: 61.5, Direction: "NE", FilterHint: "none",
		}},
		Skipped: []visibility.Skipped{{Object: "m404", Reason: "unknown object"}},
	}

	var buf bytes.Buffer
	if err := renderReport(&buf, report); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Dusk 19:48", "Sunset --:--", "2020-10-11 20h", "82.6°", "41.2°", "NE", "skipped m404"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSplitTargets(t *testing.T) {
	got := splitTargets(" m31,,M42 , ")
	if strings.Join(got, "|") != "m31|M42" {
		t.Errorf("splitTargets = %q", got)
	}
}

var catalogAgeLine = regexp.MustCompile(`(?m)^skytonight_catalog_age_seconds (\S+)$`)

func scrapeCatalogAge(t *testing.T) float64 {
	t.Helper()
	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	m := catalogAgeLine.FindStringSubmatch(rec.Body.String())
	if m == nil {
		t.Fatal("skytonight_catalog_age_seconds not exported")
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		t.Fatalf("parsing gauge %q: %v", m[1], err)
	}
	return v
}

func TestCatalogReloaderReportsAge(t *testing.T) {
	logger := logging.New(&bytes.Buffer{}, "error", "json")
	r := &catalogReloader{app: &app{store: catalog.NewStore(), logger: logger}}

	r.reportAge()
	if got := scrapeCatalogAge(t); got != -1 {
		t.Errorf("age before load = %v, want -1", got)
	}

	if err := r.app.store.Load("", logger); err != nil {
		t.Fatal(err)
	}
	r.reportAge()
	if got := scrapeCatalogAge(t); got < 0 || got > 60 {
		t.Errorf("age after load = %v, want a few seconds", got)
	}
}
