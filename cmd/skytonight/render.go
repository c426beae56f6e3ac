package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"

	"github.com/star/skytonight/internal/catalog"
	"github.com/star/skytonight/internal/visibility"
)

// renderReport prints twilight, per-object summaries and the hourly rows as
// aligned text tables.
func renderReport(w io.Writer, r *visibility.Report) error {
	zone := r.Observer.Zone()
	tw := r.Twilight

	fmt.Fprintf(w, "Observer  %.4f, %.4f  %.0f m  %s (%s)\n",
		r.Observer.LatitudeDeg, r.Observer.LongitudeDeg, r.Observer.ElevationM, r.Observer.Date, zone)
	fmt.Fprintf(w, "Sunset %s  Dusk %s  Dawn %s  Sunrise %s  (scan ±%gh around midnight)\n\n",
		clock(tw.Sunset, zone), clock(tw.Dusk, zone), clock(tw.Dawn, zone), clock(tw.Sunrise, zone), r.Window.SpanHours)

	tab := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tab, "OBJECT\tTYPE\tRISE\tSET\tCULMINATION\tALT\tDIFFICULTY")
	for _, s := range r.Summaries {
		fmt.Fprintf(tab, "%s\t%s\t%s\t%s\t%s\t%.1f°\t%s\n",
			s.Object, s.Type, hour(s.Rise), hour(s.Set), hour(s.Culmination), s.CulminationAltDeg, s.Metadata.Difficulty)
	}
	if err := tab.Flush(); err != nil {
		return err
	}

	if len(r.Rows) > 0 {
		fmt.Fprintln(w)
		tab = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tab, "DATE\tHOUR\tOBJECT\tTYPE\tALT\tAZ\tDIR\tFILTER\tFINDER")
		for _, row := range r.Rows {
			fmt.Fprintf(tab, "%s\t%02d\t%s\t%s\t%.1f°\t%.1f°\t%s\t%s\t%s\n",
				row.LocalDate, row.LocalHour, row.Object, row.Type, row.AltitudeDeg, row.AzimuthDeg,
				row.Direction, row.FilterHint, row.FinderLink)
		}
		if err := tab.Flush(); err != nil {
			return err
		}
	}

	for _, s := range r.Skipped {
		fmt.Fprintf(w, "skipped %s: %s\n", s.Object, s.Reason)
	}
	if len(r.Summaries) == 0 {
		fmt.Fprintln(w, "nothing above the altitude floor tonight")
	}
	return nil
}

func clock(t *time.Time, zone *time.Location) string {
	if t == nil {
		return "--:--"
	}
	return t.In(zone).Format("15:04")
}

func hour(h *visibility.LocalHour) string {
	if h == nil {
		return "-"
	}
	return fmt.Sprintf("%s %02dh", h.Date, h.Hour)
}

// listCatalog prints the loaded catalog, optionally filtered by type.
func listCatalog(w io.Writer, c *catalog.Catalog, typ catalog.ObjectType, asJSON bool) error {
	if c == nil {
		return errors.New("catalog not loaded")
	}
	objects := make([]catalog.Object, 0, len(c.Objects))
	for _, o := range c.Objects {
		if typ == "" || o.Type == typ {
			objects = append(objects, o)
		}
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(objects)
	}

	tab := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tab, "ID\tNAME\tTYPE\tCONST\tRA\tDEC\tMAG")
	for _, o := range objects {
		mag := "-"
		if o.Magnitude != nil {
			mag = fmt.Sprintf("%.1f", *o.Magnitude)
		}
		fmt.Fprintf(tab, "%s\t%s\t%s\t%s\t%.3f\t%+.3f\t%s\n",
			o.ID, o.Name, o.Type, o.Constellation, o.RADeg, o.DecDeg, mag)
	}
	return tab.Flush()
}
