package options

import (
	"sort"
	"time"

	"marketfeatures/internal/model"
)

// SnapshotExpirations is how many of the soonest expirations a snapshot covers.
const SnapshotExpirations = 2

// NearestExpirations returns up to n distinct expirations present in chain,
// soonest first.
func NearestExpirations(chain []model.OptionContract, n int) []time.Time {
	seen := make(map[int64]bool)
	var exps []time.Time
	for i := range chain {
		key := chain[i].Expiration.UnixNano()
		if seen[key] {
			continue
		}
		seen[key] = true
		exps = append(exps, chain[i].Expiration)
	}
	sort.Slice(exps, func(i, j int) bool { return exps[i].Before(exps[j]) })
	if n >= 0 && len(exps) > n {
		exps = exps[:n]
	}
	return exps
}

// BuildSnapshot keeps the calls and puts of the two soonest expirations in
// chain. Contracts are ordered by expiration; within one expiration they
// keep the order they were supplied in. chain is not modified.
func BuildSnapshot(underlying string, chain []model.OptionContract) model.OptionsSnapshot {
	exps := NearestExpirations(chain, SnapshotExpirations)
	keep := make(map[int64]bool, len(exps))
	for _, e := range exps {
		keep[e.UnixNano()] = true
	}

	var contracts []model.OptionContract
	for i := range chain {
		if keep[chain[i].Expiration.UnixNano()] {
			contracts = append(contracts, chain[i])
		}
	}
	sortByExpiration(contracts)

	return model.OptionsSnapshot{
		Underlying:  underlying,
		Expirations: exps,
		Contracts:   contracts,
	}
}

func sortByExpiration(cs []model.OptionContract) {
	sort.SliceStable(cs, func(i, j int) bool {
		return cs[i].Expiration.Before(cs[j].Expiration)
	})
}
