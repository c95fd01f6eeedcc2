package narrate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Bundled effects are lavfi recipes rather than shipped audio assets; each
// is synthesized once by the encoder and cached. Durations are fixed by
// the recipe.
type effectRecipe struct {
	source string
	durMs  int64
}

var effectRecipes = map[string]effectRecipe{
	"click":  {source: "sine=frequency=1200:duration=0.06", durMs: 60},
	"pop":    {source: "sine=frequency=520:duration=0.09", durMs: 90},
	"whoosh": {source: "anoisesrc=color=pink:duration=0.25:amplitude=0.4", durMs: 250},
	"chime":  {source: "sine=frequency=880:duration=0.35", durMs: 350},
	"error":  {source: "sine=frequency=220:duration=0.3", durMs: 300},
}

// EffectNames lists the bundled effect names, sorted.
func EffectNames() []string {
	names := make([]string, 0, len(effectRecipes))
	for name := range effectRecipes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveEffect maps a bundled name to a cached clip file, synthesizing it
// on first use.
func (d *director) resolveEffect(ctx context.Context, name string) (string, int64, error) {
	recipe, ok := effectRecipes[name]
	if !ok {
		return "", 0, fmt.Errorf("unknown effect %q (bundled: %s)", name, strings.Join(EffectNames(), ", "))
	}

	key := effectCacheKey(recipe.source)
	if path, ok := d.cache.Lookup(key, "wav"); ok {
		return path, recipe.durMs, nil
	}
	path, err := d.cache.StoreVia(key, "wav", func(tmp string) error {
		return d.enc.Synth(ctx, recipe.source, tmp)
	})
	if err != nil {
		return "", 0, fmt.Errorf("synthesize effect %q: %w", name, err)
	}
	return path, recipe.durMs, nil
}

func effectCacheKey(source string) string {
	sum := sha256.Sum256([]byte("effect|" + source))
	return hex.EncodeToString(sum[:])
}
