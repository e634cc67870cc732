package database

import (
	"context"
	"fmt"

	"obslog/internal/model"
)

const dsoColumns = `d.id, d.name, d.search_key, d.type, d.constellation, d.ra, d.dec`

func (q queries) FindDeepSkyObjectsByKey(ctx context.Context, key string) ([]*model.DeepSkyObject, error) {
	var objs []*model.DeepSkyObject
	err := q.selectAll(ctx, &objs, `SELECT DISTINCT `+dsoColumns+` FROM deep_sky_objects d
		LEFT JOIN deep_sky_object_aliases a ON a.deep_sky_object_id = d.id
		WHERE d.search_key = ? OR a.search_key = ?
		ORDER BY d.name, d.id`, key, key)
	if err != nil {
		return nil, fmt.Errorf("finding deep-sky objects: %w", err)
	}
	return objs, nil
}

func (q queries) CreateDeepSkyObject(ctx context.Context, dso *model.DeepSkyObject, aliasKeys []string) error {
	_, err := q.namedExec(ctx, `INSERT INTO deep_sky_objects (id, name, search_key, type, constellation, ra, dec)
		VALUES (:id, :name, :search_key, :type, :constellation, :ra, :dec)`, dso)
	if err != nil {
		return fmt.Errorf("inserting deep-sky object: %w", err)
	}
	for _, key := range aliasKeys {
		if _, err := q.exec(ctx, `INSERT OR IGNORE INTO deep_sky_object_aliases (deep_sky_object_id, search_key)
			VALUES (?, ?)`, dso.ID, key); err != nil {
			return fmt.Errorf("inserting alias %q: %w", key, err)
		}
	}
	return nil
}

const doubleStarColumns = `id, common_name, wds_name, search_key, constellation, separation`

func (q queries) FindDoubleStarsByName(ctx context.Context, name string) ([]*model.DoubleStar, error) {
	var stars []*model.DoubleStar
	err := q.selectAll(ctx, &stars, `SELECT `+doubleStarColumns+` FROM double_stars
		WHERE common_name = ? COLLATE NOCASE OR wds_name = ? COLLATE NOCASE
		ORDER BY common_name, id`, name, name)
	if err != nil {
		return nil, fmt.Errorf("finding double stars: %w", err)
	}
	return stars, nil
}

func (q queries) FindDoubleStarsByKey(ctx context.Context, key string) ([]*model.DoubleStar, error) {
	var stars []*model.DoubleStar
	err := q.selectAll(ctx, &stars, `SELECT `+doubleStarColumns+` FROM double_stars
		WHERE search_key = ? ORDER BY common_name, id`, key)
	if err != nil {
		return nil, fmt.Errorf("finding double stars: %w", err)
	}
	return stars, nil
}

func (q queries) CreateDoubleStar(ctx context.Context, ds *model.DoubleStar) error {
	_, err := q.namedExec(ctx, `INSERT INTO double_stars (`+doubleStarColumns+`)
		VALUES (:id, :common_name, :wds_name, :search_key, :constellation, :separation)`, ds)
	if err != nil {
		return fmt.Errorf("inserting double star: %w", err)
	}
	return nil
}
