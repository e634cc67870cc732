package logbook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"obslog/internal/catalog"
	"obslog/internal/model"
)

// AddDeepSkyObject adds an object and its aliases to the catalogue.
func (s *LogbookService) AddDeepSkyObject(ctx context.Context, name, objType, constellation string, aliases []string) (*model.DeepSkyObject, error) {
	key := catalog.Normalize(name)
	if key == "" {
		return nil, errors.New("object name is required")
	}
	dso := &model.DeepSkyObject{
		ID:            s.idgen.New(),
		Name:          strings.TrimSpace(name),
		SearchKey:     key,
		Type:          objType,
		Constellation: nullString(constellation),
	}
	var keys []string
	for _, a := range aliases {
		if k := catalog.Normalize(a); k != "" && k != key {
			keys = append(keys, k)
		}
	}
	if err := s.database.CreateDeepSkyObject(ctx, dso, keys); err != nil {
		return nil, fmt.Errorf("creating deep-sky object: %w", err)
	}
	return dso, nil
}

// AddDoubleStar adds a double star to the catalogue.
func (s *LogbookService) AddDoubleStar(ctx context.Context, commonName, wdsName, constellation string) (*model.DoubleStar, error) {
	commonName = strings.TrimSpace(commonName)
	if commonName == "" {
		return nil, errors.New("star name is required")
	}
	ds := &model.DoubleStar{
		ID:            s.idgen.New(),
		CommonName:    commonName,
		WDSName:       nullString(wdsName),
		SearchKey:     catalog.FuzzyKey(commonName),
		Constellation: nullString(constellation),
	}
	if err := s.database.CreateDoubleStar(ctx, ds); err != nil {
		return nil, fmt.Errorf("creating double star: %w", err)
	}
	return ds, nil
}
