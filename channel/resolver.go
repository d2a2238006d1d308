// Package channel derives stable channel identifiers from participant
// pairs.
package channel

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"chatwire/domain"
)

// Separator joins the two canonical participant ids into a channel key.
const Separator = "-"

type pair struct {
	low  domain.ParticipantID
	high domain.ParticipantID
}

// Resolver computes the canonical channel key for a participant pair.
// The key is a pure function of the two ids under lexicographic order,
// so independently resolving connections always agree and the value
// survives process restarts. The LRU cache is a memoization only:
// absence from the cache never means the channel does not exist.
type Resolver struct {
	cache *lru.Cache[pair, domain.ChannelID]
}

func NewResolver(cacheSize int) (*Resolver, error) {
	cache, err := lru.New[pair, domain.ChannelID](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Resolver{cache: cache}, nil
}

// Resolve returns the channel key for the pair (a, b).
// Resolve(a, b) == Resolve(b, a) for all a != b.
func (r *Resolver) Resolve(a, b domain.ParticipantID) domain.ChannelID {
	low, high := a, b
	if high < low {
		low, high = high, low
	}
	key := pair{low: low, high: high}
	if id, ok := r.cache.Get(key); ok {
		return id
	}
	id := domain.ChannelID(string(low) + Separator + string(high))
	r.cache.Add(key, id)
	return id
}
