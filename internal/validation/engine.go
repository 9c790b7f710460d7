// Package validation scans extracted people and edges for data-quality
// problems and reports them as import issues.
package validation

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/loyd0/LoydFam-sub000/internal/canonical"
	"github.com/loyd0/LoydFam-sub000/internal/models"
)

// DefaultMaxLifespan is the longest plausible lifespan in years.
const DefaultMaxLifespan = 120

const entityPerson = "person"

// Options configures an Engine.
type Options struct {
	MaxLifespan int
	// Now fixes the current time; time.Now is used when nil.
	Now    func() time.Time
	Logger *zap.Logger
}

// Engine evaluates the rule set.
type Engine struct {
	maxLifespan int
	now         func() time.Time
	log         *zap.Logger
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.MaxLifespan <= 0 {
		opts.MaxLifespan = DefaultMaxLifespan
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{maxLifespan: opts.MaxLifespan, now: opts.Now, log: opts.Logger}
}

// Validate returns issues for the extracted model. ids attaches each issue
// to the stored entity; runID is stamped on every issue.
func (e *Engine) Validate(res *canonical.Result, ids map[string]int64, runID int64) []*models.ImportIssue {
	v := &validator{engine: e, res: res, ids: ids, runID: runID, year: e.now().Year()}

	for _, p := range res.People {
		if p.IsPlaceholder {
			continue
		}
		v.checkPerson(p)
	}
	for _, edge := range res.ParentChild {
		v.checkParentChild(edge)
	}
	v.checkDuplicates()
	for _, c := range res.TypeConflicts {
		v.typeConflict(c)
	}

	e.log.Info("validation finished", zap.Int("issues", len(v.issues)))
	return v.issues
}

type validator struct {
	engine *Engine
	res    *canonical.Result
	ids    map[string]int64
	runID  int64
	year   int
	issues []*models.ImportIssue
}

func (v *validator) add(sev models.Severity, code models.IssueCode, entity, key, msg string, meta models.JSONMap) {
	issue := &models.ImportIssue{
		ImportRunID: v.runID,
		Severity:    sev,
		Code:        code,
		Message:     msg,
		Metadata:    meta,
	}
	if entity != "" {
		et := entity
		issue.EntityType = &et
	}
	if id, ok := v.ids[key]; ok {
		issue.EntityID = &id
	}
	v.issues = append(v.issues, issue)
}

func (v *validator) checkPerson(p *canonical.Person) {
	key := p.ExternalKey
	meta := func(extra models.JSONMap) models.JSONMap {
		m := models.JSONMap{"external_key": key}
		for k, val := range extra {
			m[k] = val
		}
		return m
	}

	birth, hasBirth := v.res.Event(key, models.EventBirth)
	if !hasBirth || (birth.Date.Exact == nil && birth.Date.Year == nil) {
		v.add(models.SeverityWarning, models.IssueMissingDOB, entityPerson, key,
			fmt.Sprintf("%s has no birth date", p.DisplayName), meta(nil))
	}

	if death, ok := v.res.Event(key, models.EventDeath); ok && death.Date.Exact == nil && death.Date.Year != nil {
		v.add(models.SeverityInfo, models.IssueDeathYearOnly, entityPerson, key,
			fmt.Sprintf("%s has a death year but no exact date", p.DisplayName), meta(nil))
	}

	if p.Gender != models.GenderMale && p.Gender != models.GenderFemale {
		v.add(models.SeverityWarning, models.IssueMissingGender, entityPerson, key,
			fmt.Sprintf("%s has no recorded gender", p.DisplayName), meta(nil))
	}

	by, hasBY := v.res.BirthYear(key)
	dy, hasDY := v.res.DeathYear(key)

	if hasBY && by > v.year {
		v.add(models.SeverityError, models.IssueFutureBirth, entityPerson, key,
			fmt.Sprintf("%s is born in the future (%d)", p.DisplayName, by), meta(models.JSONMap{"birth_year": by}))
	}
	if hasDY && dy > v.year {
		v.add(models.SeverityError, models.IssueFutureDeath, entityPerson, key,
			fmt.Sprintf("%s dies in the future (%d)", p.DisplayName, dy), meta(models.JSONMap{"death_year": dy}))
	}
	if hasBY && hasDY {
		if dy < by {
			v.add(models.SeverityError, models.IssueDeathBeforeBirth, entityPerson, key,
				fmt.Sprintf("%s dies (%d) before being born (%d)", p.DisplayName, dy, by),
				meta(models.JSONMap{"birth_year": by, "death_year": dy}))
		} else if dy-by > v.engine.maxLifespan {
			v.add(models.SeverityError, models.IssueImplausibleLifespan, entityPerson, key,
				fmt.Sprintf("%s lived %d years", p.DisplayName, dy-by),
				meta(models.JSONMap{"birth_year": by, "death_year": dy, "max_lifespan": v.engine.maxLifespan}))
		}
	}
}

func (v *validator) isPlaceholder(key string) bool {
	p, ok := v.res.Person(key)
	return ok && p.IsPlaceholder
}

func (v *validator) checkParentChild(edge *canonical.ParentChild) {
	if v.isPlaceholder(edge.ParentKey) || v.isPlaceholder(edge.ChildKey) {
		return
	}
	parentYear, ok := v.res.BirthYear(edge.ParentKey)
	if !ok {
		return
	}
	childYear, ok := v.res.BirthYear(edge.ChildKey)
	if !ok {
		return
	}
	if parentYear < childYear {
		return
	}

	v.add(models.SeverityError, models.IssueParentAfterChild, entityPerson, edge.ChildKey,
		fmt.Sprintf("parent %s (born %d) is not older than child %s (born %d)",
			edge.ParentKey, parentYear, edge.ChildKey, childYear),
		models.JSONMap{
			"parent_key":        edge.ParentKey,
			"child_key":         edge.ChildKey,
			"parent_birth_year": parentYear,
			"child_birth_year":  childYear,
		})
}

// checkDuplicates flags people sharing a normalized display name and birth
// year. They are never merged.
func (v *validator) checkDuplicates() {
	type identity struct {
		name string
		year int
	}
	groups := make(map[identity][]string)
	var order []identity

	for _, p := range v.res.People {
		if p.IsPlaceholder {
			continue
		}
		year, ok := v.res.BirthYear(p.ExternalKey)
		if !ok {
			continue
		}
		id := identity{name: normalizeDisplayName(p.DisplayName), year: year}
		if id.name == "" {
			continue
		}
		if _, seen := groups[id]; !seen {
			order = append(order, id)
		}
		groups[id] = append(groups[id], p.ExternalKey)
	}

	for _, id := range order {
		keys := groups[id]
		if len(keys) < 2 {
			continue
		}
		for _, key := range keys[1:] {
			v.add(models.SeverityWarning, models.IssuePossibleDuplicate, entityPerson, key,
				fmt.Sprintf("%s may duplicate %s (same name, born %d)", key, keys[0], id.year),
				models.JSONMap{"external_key": key, "duplicate_of": keys[0], "birth_year": id.year})
		}
	}
}

func (v *validator) typeConflict(c canonical.TypeConflict) {
	v.add(models.SeverityInfo, models.IssueParentTypeConflict, entityPerson, c.ChildKey,
		fmt.Sprintf("%s lists %s as %s parent of %s; kept %s",
			c.Sheet, c.ParentKey, strings.ToLower(string(c.Rejected)), c.ChildKey, strings.ToLower(string(c.Kept))),
		models.JSONMap{
			"parent_key": c.ParentKey,
			"child_key":  c.ChildKey,
			"kept":       string(c.Kept),
			"rejected":   string(c.Rejected),
			"sheet":      c.Sheet,
		})
}

func normalizeDisplayName(name string) string {
	// Synthesized names end with "(id) birth-death"; compare the name part only.
	if i := strings.Index(name, " ("); i > 0 {
		name = name[:i]
	}
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Count tallies issues by severity.
func Count(issues []*models.ImportIssue) map[models.Severity]int {
	out := make(map[models.Severity]int, 3)
	for _, i := range issues {
		out[i.Severity]++
	}
	return out
}
