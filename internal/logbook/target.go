package logbook

import (
	"context"
	"fmt"

	"obslog/internal/catalog"
	"obslog/internal/model"
	"obslog/internal/oal"
)

// resolveTargets binds every document target to catalogue entities.
// Targets that cannot be resolved are reported once and remembered, so
// observations of them are skipped without further diagnostics.
func (r *run) resolveTargets(ctx context.Context) error {
	for _, t := range r.st.doc.Targets {
		var (
			target model.Target
			found  bool
			err    error
		)
		if t.IsDoubleStar() {
			target, found, err = r.findDoubleStar(ctx, t)
		} else {
			target, found, err = r.findDeepSkyObject(ctx, t)
		}
		if err != nil {
			return fmt.Errorf("resolving target %q: %w", t.Name, err)
		}
		if !found {
			r.st.targetsNotFound[t.ID] = true
			r.st.diag.Errorf("target %q not found in catalogue", displayName(t))
			continue
		}
		r.st.targets[t.ID] = target
	}
	return nil
}

func displayName(t oal.Target) string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

func (r *run) findDoubleStar(ctx context.Context, t oal.Target) (model.Target, bool, error) {
	names := t.Names()
	for _, name := range names {
		stars, err := r.tx().FindDoubleStarsByName(ctx, name)
		if err != nil {
			return model.Target{}, false, err
		}
		if len(stars) > 0 {
			return doubleStarTarget(stars[0]), true, nil
		}
	}
	for _, name := range names {
		key := catalog.FuzzyKey(name)
		if key == "" {
			continue
		}
		stars, err := r.tx().FindDoubleStarsByKey(ctx, key)
		if err != nil {
			return model.Target{}, false, err
		}
		if len(stars) > 0 {
			return doubleStarTarget(stars[0]), true, nil
		}
	}
	return model.Target{}, false, nil
}

func doubleStarTarget(ds *model.DoubleStar) model.Target {
	return model.Target{Type: model.TargetTypeDoubleStar, DoubleStarID: ds.ID}
}

// findDeepSkyObject looks up the target's name and aliases by normalized
// designation, falling back to the parent of NGC/IC component designations.
func (r *run) findDeepSkyObject(ctx context.Context, t oal.Target) (model.Target, bool, error) {
	var keys []string
	for _, name := range t.Names() {
		if key := catalog.Normalize(name); key != "" {
			keys = append(keys, key)
		}
	}
	var parents []string
	for _, key := range keys {
		if parent, ok := catalog.ParentDesignation(key); ok {
			parents = append(parents, parent)
		}
	}

	for _, key := range append(keys, parents...) {
		objs, err := r.tx().FindDeepSkyObjectsByKey(ctx, key)
		if err != nil {
			return model.Target{}, false, err
		}
		if len(objs) > 0 {
			ids := make([]string, len(objs))
			for i, o := range objs {
				ids[i] = o.ID
			}
			return model.Target{Type: model.TargetTypeDSO, DeepSkyObjectIDs: ids}, true, nil
		}
	}
	return model.Target{}, false, nil
}
