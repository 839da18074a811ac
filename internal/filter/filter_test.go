package filter

import (
	"testing"

	"github.com/kevp/kptv-sync/internal/models"
)

func streamSet(names ...string) map[string]models.CanonicalStream {
	set := make(map[string]models.CanonicalStream, len(names))
	for _, n := range names {
		set[n] = models.CanonicalStream{ID: n, Name: n, URL: "http://x/" + n + ".ts"}
	}
	return set
}

func rule(kind models.RuleKind, pattern string) models.FilterRule {
	return models.FilterRule{Kind: kind, Pattern: pattern, Active: true}
}

func TestFilter_identityLaws(t *testing.T) {
	empty := Filter(map[string]models.CanonicalStream{}, []models.FilterRule{rule(models.ExcludeNameContains, "x")})
	if len(empty) != 0 {
		t.Errorf("Filter({}, rules) = %v; want empty", empty)
	}
	streams := streamSet("a", "b")
	same := Filter(streams, nil)
	if len(same) != 2 {
		t.Errorf("Filter(streams, nil) dropped entries: %v", same)
	}
}

func TestFilter_includeWinsOverExclude(t *testing.T) {
	streams := streamSet("News", "Newsflash")
	rules := []models.FilterRule{
		rule(models.IncludeNameRegex, "^News$"),
		rule(models.ExcludeNameContains, "news"),
	}
	kept := Filter(streams, rules)
	if _, ok := kept["News"]; !ok {
		t.Error("News should be kept: include wins over exclude")
	}
	if _, ok := kept["Newsflash"]; ok {
		t.Error("Newsflash should be excluded by the contains rule")
	}
}

func TestFilter_excludeKinds(t *testing.T) {
	streams := streamSet("Sports One", "Kino Total", "Other")
	streams["bad-url"] = models.CanonicalStream{ID: "bad-url", Name: "Clean Name", URL: "http://x/adult/9.ts"}
	rules := []models.FilterRule{
		rule(models.ExcludeNameContains, "sports"),
		rule(models.ExcludeNameRegex, "^kino"),
		rule(models.ExcludeURLRegex, "/adult/"),
	}
	kept := Filter(streams, rules)
	if len(kept) != 1 {
		t.Fatalf("kept = %v; want only Other", kept)
	}
	if _, ok := kept["Other"]; !ok {
		t.Errorf("kept = %v; want Other", kept)
	}
}

func TestFilter_caseInsensitive(t *testing.T) {
	streams := streamSet("SPORTS HD")
	kept := Filter(streams, []models.FilterRule{rule(models.ExcludeNameContains, "sports")})
	if len(kept) != 0 {
		t.Error("substring exclude should fold case")
	}
	kept = Filter(streamSet("sports hd"), []models.FilterRule{rule(models.ExcludeNameRegex, "SPORTS")})
	if len(kept) != 0 {
		t.Error("regex exclude should fold case")
	}
}

func TestFilter_badPatternFailsOpen(t *testing.T) {
	streams := streamSet("Anything")
	rules := []models.FilterRule{
		rule(models.IncludeNameRegex, "([unbalanced"),
		rule(models.ExcludeNameRegex, "([also bad"),
	}
	kept := Filter(streams, rules)
	if len(kept) != 1 {
		t.Errorf("kept = %v; malformed patterns must behave as absent rules", kept)
	}
}

func TestFilter_inactiveRulesIgnored(t *testing.T) {
	streams := streamSet("Sports HD")
	inactive := models.FilterRule{Kind: models.ExcludeNameContains, Pattern: "sports", Active: false}
	kept := Filter(streams, []models.FilterRule{inactive})
	if len(kept) != 1 {
		t.Error("an inactive exclude rule must never match")
	}
	// An inactive include grants no protection either.
	rules := []models.FilterRule{
		{Kind: models.IncludeNameRegex, Pattern: "^Sports HD$", Active: false},
		{Kind: models.ExcludeNameContains, Pattern: "sports", Active: true},
	}
	if kept := Filter(streams, rules); len(kept) != 0 {
		t.Errorf("kept = %v; inactive include must not win over an active exclude", kept)
	}
}

func TestFilter_noMatchKeeps(t *testing.T) {
	streams := streamSet("Documentary")
	kept := Filter(streams, []models.FilterRule{rule(models.ExcludeNameContains, "sports")})
	if len(kept) != 1 {
		t.Errorf("kept = %v; want untouched stream retained", kept)
	}
}
