package domain

import (
	"sort"
	"time"
)

// TicketLoad is one open ticket counted against a resolver's workload.
type TicketLoad struct {
	TicketID int64
	OpenedAt time.Time
	Deadline time.Time
}

// Minutes is the estimated span of the ticket in whole minutes.
func (l TicketLoad) Minutes() int64 {
	return int64(l.Deadline.Sub(l.OpenedAt) / time.Minute)
}

// RankingCandidate is a resolver with their open workload for one activity.
type RankingCandidate struct {
	Resolver     User
	TotalMinutes int64
	OpenTickets  int
}

// RankCandidates orders eligible resolvers by total minutes, then by open
// ticket count. Remaining ties keep the eligible list order.
func RankCandidates(eligible []User, openTicketsByResolver map[int64][]TicketLoad) []RankingCandidate {
	candidates := make([]RankingCandidate, 0, len(eligible))
	for _, resolver := range eligible {
		c := RankingCandidate{Resolver: resolver}
		for _, load := range openTicketsByResolver[resolver.ID] {
			c.TotalMinutes += load.Minutes()
			c.OpenTickets++
		}
		candidates = append(candidates, c)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].TotalMinutes != candidates[j].TotalMinutes {
			return candidates[i].TotalMinutes < candidates[j].TotalMinutes
		}
		return candidates[i].OpenTickets < candidates[j].OpenTickets
	})
	return candidates
}

// Rank picks the least busy eligible resolver for a ticket of activity.
// It returns false under manual distribution or with no eligible resolvers.
func Rank(activity *Activity, eligible []User, openTicketsByResolver map[int64][]TicketLoad) (*User, bool) {
	if activity == nil || activity.Distribution != DistributionAutomatic {
		return nil, false
	}
	ranked := RankCandidates(eligible, openTicketsByResolver)
	if len(ranked) == 0 {
		return nil, false
	}
	winner := ranked[0].Resolver
	return &winner, true
}
