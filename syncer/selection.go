package syncer

import (
	"github.com/Polytraders/polytraders/models"
	"github.com/Polytraders/polytraders/utils"
)

// Selection is the ordered set of trader addresses the live feed is filtered
// on. An empty selection means no filter.
type Selection struct {
	addresses []string
}

// NewSelection creates a selection from addresses, normalized and deduplicated.
func NewSelection(addresses ...string) Selection {
	return Selection{addresses: utils.NormalizeAddresses(addresses)}
}

// Addresses returns a copy of the selected addresses in selection order.
func (s Selection) Addresses() []string {
	out := make([]string, len(s.addresses))
	copy(out, s.addresses)
	return out
}

// Len returns the number of selected addresses.
func (s Selection) Len() int {
	return len(s.addresses)
}

// Contains reports whether address is selected.
func (s Selection) Contains(address string) bool {
	address = utils.NormalizeAddress(address)
	for _, a := range s.addresses {
		if a == address {
			return true
		}
	}
	return false
}

// Toggle removes address if selected and appends it otherwise.
func (s Selection) Toggle(address string) Selection {
	address = utils.NormalizeAddress(address)
	if address == "" {
		return s
	}
	next := make([]string, 0, len(s.addresses)+1)
	removed := false
	for _, a := range s.addresses {
		if a == address {
			removed = true
			continue
		}
		next = append(next, a)
	}
	if !removed {
		next = append(next, address)
	}
	return Selection{addresses: next}
}

// SelectAll replaces the selection with every candidate address.
func SelectAll(candidates []models.Candidate) Selection {
	addrs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		addrs = append(addrs, c.Address)
	}
	return NewSelection(addrs...)
}

// ClearAll returns the empty selection.
func ClearAll() Selection {
	return Selection{}
}

// EffectiveTargets returns the addresses a poll should fetch: the selection,
// or every candidate when the selection is empty.
func EffectiveTargets(sel Selection, candidates []models.Candidate) []string {
	if sel.Len() > 0 {
		return sel.Addresses()
	}
	return SelectAll(candidates).Addresses()
}
