package syncer

import (
	"github.com/MoovFleet/MoovFleet/internal/fleet"
	"github.com/MoovFleet/MoovFleet/internal/platform"
)

// MatchMethod tags which tier produced a match, for the run summary's
// method histogram.
type MatchMethod string

const (
	MethodExternalID   MatchMethod = "external_id"   // tier 1: stored link
	MethodPhone        MatchMethod = "phone"         // tier 2: normalized phone
	MethodNameExact    MatchMethod = "name_exact"    // tier 3: given_family
	MethodNameSwapped  MatchMethod = "name_swapped"  // tier 4: family_given
	MethodFullName     MatchMethod = "full_name"     // tier 5: full string, both orders
	MethodNameCrossed  MatchMethod = "name_crossed"  // tier 6: both fields crossed
	MethodFamilyUnique MatchMethod = "family_unique" // tier 7: unique surname candidate
)

// Match pairs one external profile with exactly one internal driver.
type Match struct {
	External platform.DriverProfile
	Driver   fleet.Driver
	Method   MatchMethod
	Tier     int
}

// externalKeys carries an external profile's precomputed normal forms.
type externalKeys struct {
	given  string
	family string
	phone  string
}

// driverIndex holds the lookup maps built once over the internal roster.
// Map collisions keep the first driver inserted; claimed tracks records
// already paired so no internal driver is ever matched twice.
type driverIndex struct {
	byExternalID  map[string]*fleet.Driver
	byPhone       map[string]*fleet.Driver
	byGivenFamily map[string]*fleet.Driver
	byFamilyGiven map[string]*fleet.Driver
	byFullName    map[string]*fleet.Driver
	all           []*fleet.Driver
	given         map[string]string // driver id -> normalized given name
	family        map[string]string // driver id -> normalized family name
	claimed       map[string]bool
}

func buildDriverIndex(internals []fleet.Driver) *driverIndex {
	ix := &driverIndex{
		byExternalID:  make(map[string]*fleet.Driver),
		byPhone:       make(map[string]*fleet.Driver),
		byGivenFamily: make(map[string]*fleet.Driver),
		byFamilyGiven: make(map[string]*fleet.Driver),
		byFullName:    make(map[string]*fleet.Driver),
		given:         make(map[string]string),
		family:        make(map[string]string),
		claimed:       make(map[string]bool),
	}

	for i := range internals {
		d := &internals[i]
		ix.all = append(ix.all, d)

		given := NormalizeName(d.FirstName)
		family := NormalizeName(d.LastName)
		ix.given[d.ID] = given
		ix.family[d.ID] = family

		if d.ExternalDriverID != "" {
			insert(ix.byExternalID, d.ExternalDriverID, d)
		}
		if phone := NormalizePhone(d.Phone); len(phone) >= MinUsablePhoneDigits {
			insert(ix.byPhone, phone, d)
		}
		if given != "" && family != "" {
			insert(ix.byGivenFamily, given+"_"+family, d)
			insert(ix.byFamilyGiven, family+"_"+given, d)
			insert(ix.byFullName, given+" "+family, d)
			insert(ix.byFullName, family+" "+given, d)
		}
	}
	return ix
}

func insert(m map[string]*fleet.Driver, key string, d *fleet.Driver) {
	if _, exists := m[key]; !exists {
		m[key] = d
	}
}

// matchStrategy is one tier: it either proposes a candidate or nil.
// Strategies are evaluated in order and the first unclaimed candidate wins;
// there is no backtracking to a "better" tier afterwards.
type matchStrategy struct {
	tier   int
	method MatchMethod
	find   func(ix *driverIndex, ext platform.DriverProfile, keys externalKeys) *fleet.Driver
}

var matchStrategies = []matchStrategy{
	{1, MethodExternalID, func(ix *driverIndex, ext platform.DriverProfile, _ externalKeys) *fleet.Driver {
		return ix.byExternalID[ext.ID]
	}},
	{2, MethodPhone, func(ix *driverIndex, _ platform.DriverProfile, keys externalKeys) *fleet.Driver {
		if len(keys.phone) < MinUsablePhoneDigits {
			return nil
		}
		return ix.byPhone[keys.phone]
	}},
	{3, MethodNameExact, func(ix *driverIndex, _ platform.DriverProfile, keys externalKeys) *fleet.Driver {
		if keys.given == "" || keys.family == "" {
			return nil
		}
		return ix.byGivenFamily[keys.given+"_"+keys.family]
	}},
	{4, MethodNameSwapped, func(ix *driverIndex, _ platform.DriverProfile, keys externalKeys) *fleet.Driver {
		if keys.given == "" || keys.family == "" {
			return nil
		}
		// the platform swapped given/family order relative to our records
		return ix.byFamilyGiven[keys.given+"_"+keys.family]
	}},
	{5, MethodFullName, func(ix *driverIndex, _ platform.DriverProfile, keys externalKeys) *fleet.Driver {
		if keys.given == "" || keys.family == "" {
			return nil
		}
		if d := ix.byFullName[keys.given+" "+keys.family]; d != nil {
			return d
		}
		return ix.byFullName[keys.family+" "+keys.given]
	}},
	{6, MethodNameCrossed, func(ix *driverIndex, _ platform.DriverProfile, keys externalKeys) *fleet.Driver {
		if keys.given == "" || keys.family == "" {
			return nil
		}
		for _, d := range ix.all {
			if ix.claimed[d.ID] {
				continue
			}
			if keys.given == ix.family[d.ID] && keys.family == ix.given[d.ID] {
				return d
			}
		}
		return nil
	}},
	{7, MethodFamilyUnique, func(ix *driverIndex, _ platform.DriverProfile, keys externalKeys) *fleet.Driver {
		if keys.family == "" {
			return nil
		}
		var candidate *fleet.Driver
		for _, d := range ix.all {
			if ix.claimed[d.ID] {
				continue
			}
			if ix.family[d.ID] != keys.family && ix.given[d.ID] != keys.family {
				continue
			}
			if candidate != nil {
				// ambiguous: better unmatched than guessed
				return nil
			}
			candidate = d
		}
		return candidate
	}},
}

// MatchDrivers pairs external profiles with internal drivers. External
// profiles are processed in input order; each internal driver appears in at
// most one match.
func MatchDrivers(externals []platform.DriverProfile, internals []fleet.Driver) (matches []Match, unmatched []platform.DriverProfile) {
	ix := buildDriverIndex(internals)

	for _, ext := range externals {
		keys := externalKeys{
			given:  NormalizeName(ext.FirstName),
			family: NormalizeName(ext.LastName),
			phone:  NormalizePhone(ext.Phone),
		}

		var matchedDriver *fleet.Driver
		var matchedBy matchStrategy
		for _, s := range matchStrategies {
			d := s.find(ix, ext, keys)
			if d == nil || ix.claimed[d.ID] {
				continue
			}
			matchedDriver = d
			matchedBy = s
			break
		}

		if matchedDriver == nil {
			unmatched = append(unmatched, ext)
			continue
		}

		ix.claimed[matchedDriver.ID] = true
		matches = append(matches, Match{
			External: ext,
			Driver:   *matchedDriver,
			Method:   matchedBy.method,
			Tier:     matchedBy.tier,
		})
	}
	return matches, unmatched
}
