package testutil

import (
	"context"
	"testing"

	"obslog/internal/catalog"
	"obslog/internal/logbook"
	"obslog/internal/model"
)

// Catalogue ids created by SeedCatalog.
const (
	M31ID     = "dso-m31"
	M32ID     = "dso-m32"
	M42ID     = "dso-m42"
	M45ID     = "dso-m45"
	M57ID     = "dso-m57"
	NGC7000ID = "dso-ngc7000"
	NGC5194ID = "dso-ngc5194"
	AlbireoID = "ds-albireo"
	MizarID   = "ds-mizar"
)

// SeedCatalog fills db with a small catalogue of well-known objects.
func SeedCatalog(t *testing.T, db logbook.Queries) {
	t.Helper()
	ctx := context.Background()

	dsos := []struct {
		id, name, typ string
		aliases       []string
	}{
		{M31ID, "M 31", "GX", []string{"NGC 224", "Andromeda Galaxy"}},
		{M32ID, "M 32", "GX", []string{"NGC 221"}},
		{M42ID, "M 42", "BN", []string{"NGC 1976", "Orion Nebula"}},
		{M45ID, "M 45", "OC", []string{"Pleiades"}},
		{M57ID, "M 57", "PN", []string{"NGC 6720", "Ring Nebula"}},
		{NGC7000ID, "NGC 7000", "BN", []string{"North America Nebula"}},
		{NGC5194ID, "NGC 5194", "GX", []string{"M 51"}},
	}
	for _, d := range dsos {
		dso := &model.DeepSkyObject{ID: d.id, Name: d.name, SearchKey: catalog.Normalize(d.name), Type: d.typ}
		var keys []string
		for _, a := range d.aliases {
			keys = append(keys, catalog.Normalize(a))
		}
		if err := db.CreateDeepSkyObject(ctx, dso, keys); err != nil {
			t.Fatalf("seeding %s: %v", d.name, err)
		}
	}

	stars := []*model.DoubleStar{
		{ID: AlbireoID, CommonName: "Albireo", SearchKey: catalog.FuzzyKey("Albireo")},
		{ID: MizarID, CommonName: "Mizar", SearchKey: catalog.FuzzyKey("Mizar")},
	}
	stars[0].WDSName.String, stars[0].WDSName.Valid = "STFA 43", true
	stars[1].WDSName.String, stars[1].WDSName.Valid = "STF 1744", true
	for _, ds := range stars {
		if err := db.CreateDoubleStar(ctx, ds); err != nil {
			t.Fatalf("seeding %s: %v", ds.CommonName, err)
		}
	}
}
