package history

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultProfileCacheSize = 64

// Profile summarises how a soup is usually made.
type Profile struct {
	Soup        string
	Occurrences int
	// Typical lists ingredients used in more than half of the soup's records,
	// in dataset column order.
	Typical []string
}

// Profiles answers typical-ingredient lookups for a dataset snapshot and
// caches them per soup.
type Profiles struct {
	dataset *Dataset
	cache   *lru.Cache[string, Profile]
}

func NewProfiles(ds *Dataset, size int) (*Profiles, error) {
	if size <= 0 {
		size = defaultProfileCacheSize
	}
	cache, err := lru.New[string, Profile](size)
	if err != nil {
		return nil, err
	}
	return &Profiles{dataset: ds, cache: cache}, nil
}

func (p *Profiles) Lookup(soup string) Profile {
	if profile, ok := p.cache.Get(soup); ok {
		return profile
	}
	records := p.dataset.BySoup(soup)
	profile := Profile{
		Soup:        soup,
		Occurrences: len(records),
		Typical:     TypicalIngredients(records, p.dataset.Ingredients),
	}
	p.cache.Add(soup, profile)
	return profile
}

func TypicalIngredients(records []Record, ingredients []string) []string {
	typical := make([]string, 0)
	if len(records) == 0 {
		return typical
	}
	for _, ingredient := range ingredients {
		present := 0
		for _, rec := range records {
			if rec.Ingredients[ingredient] {
				present++
			}
		}
		if present*2 > len(records) {
			typical = append(typical, ingredient)
		}
	}
	return typical
}
