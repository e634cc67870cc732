package logbook

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"obslog/internal/model"
	"obslog/internal/oal"
)

// resolveLocations maps every document site to a Location row or, for
// unnamed sites, an ad-hoc position string.
func (r *run) resolveLocations(ctx context.Context) error {
	for _, site := range r.st.doc.Sites {
		r.st.sites[site.ID] = site

		name := strings.TrimSpace(site.Name)
		if name == "" {
			r.st.positions[site.ID] = model.FormatPosition(site.Latitude, site.Longitude)
			continue
		}

		loc, err := r.tx().FindLocationByName(ctx, r.st.ownerID, name)
		if err != nil {
			return fmt.Errorf("finding location %q: %w", name, err)
		}
		if loc == nil {
			loc = r.newLocation(site, name)
			if err := r.tx().CreateLocation(ctx, loc); err != nil {
				return fmt.Errorf("creating location %q: %w", name, err)
			}
			r.st.stats.LocationsCreated++
			r.logger.Debug("location created", "name", name, "id", loc.ID)
		}
		r.st.locations[site.ID] = loc
	}
	return nil
}

func (r *run) newLocation(site oal.Site, name string) *model.Location {
	loc := &model.Location{
		ID:        r.idgen.New(),
		Name:      name,
		Longitude: site.Longitude,
		Latitude:  site.Latitude,
		Elevation: nullFloat(site.Elevation),
		IAUCode:   nullString(site.Code),
		Audit:     r.st.newAudit(),
	}
	if site.Timezone != nil {
		loc.TimeZone = nullString(formatUTCOffset(*site.Timezone))
	}
	return loc
}

// formatUTCOffset renders an offset in minutes as "UTC+hh:mm".
func formatUTCOffset(minutes int) string {
	sign := "+"
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return "UTC" + sign + pad2(minutes/60) + ":" + pad2(minutes%60)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// observationLocation resolves the location columns for a document site
// reference, reporting a dangling reference once.
func (r *run) observationLocation(siteRef, what string) (locationID, position string) {
	if siteRef == "" {
		return "", ""
	}
	if _, ok := r.st.sites[siteRef]; !ok {
		r.st.reportOnce("site:"+siteRef, "%s references unknown site %q", what, siteRef)
		return "", ""
	}
	id, pos, _ := r.st.siteLocation(siteRef)
	return id, pos
}
