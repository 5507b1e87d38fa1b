package storage

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
)

type Migration struct {
	Version string
	Up      string
}

// PendingMigrations returns the migrations newer than current, oldest first.
// An empty current means nothing has been applied.
func PendingMigrations(current string, all []Migration) ([]Migration, error) {
	if current == "" {
		current = "0.0.0"
	}
	cur, err := semver.NewVersion(current)
	if err != nil {
		return nil, fmt.Errorf("invalid current schema version %s: %w", current, err)
	}

	type versioned struct {
		v *semver.Version
		m Migration
	}
	var pending []versioned
	for _, m := range all {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return nil, fmt.Errorf("invalid migration version %s: %w", m.Version, err)
		}
		if cur.LessThan(v) {
			pending = append(pending, versioned{v: v, m: m})
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].v.LessThan(pending[j].v) })

	out := make([]Migration, len(pending))
	for i, p := range pending {
		out[i] = p.m
	}
	return out, nil
}

// LatestVersion picks the highest version out of applied ones.
func LatestVersion(applied []string) (string, error) {
	var latest *semver.Version
	for _, s := range applied {
		v, err := semver.NewVersion(s)
		if err != nil {
			return "", fmt.Errorf("invalid applied schema version %s: %w", s, err)
		}
		if latest == nil || latest.LessThan(v) {
			latest = v
		}
	}
	if latest == nil {
		return "", nil
	}
	return latest.Original(), nil
}
