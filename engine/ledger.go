package engine

import (
	"github.com/blockberries/kudos/store"
	"github.com/blockberries/kudos/types"
)

// Contributor records live under prefixContributor, one per registered
// contributor. The contributor set is exactly the set of record keys.

func (s *state) record(a types.AccountID) (types.ContributorRecord, bool, error) {
	return store.GetValue[types.ContributorRecord](s.kv, contributorKey(a))
}

func (s *state) putRecord(a types.AccountID, rec types.ContributorRecord) error {
	return store.SetValue(s.kv, contributorKey(a), rec)
}

func (s *state) deleteRecord(a types.AccountID) {
	s.kv.Delete(contributorKey(a))
}

// contributor returns a's record refreshed to round id. ok is false if
// a is not a contributor.
func (s *state) contributor(a types.AccountID, id types.RoundID) (types.ContributorRecord, bool, error) {
	rec, ok, err := s.record(a)
	if err != nil || !ok {
		return types.ContributorRecord{}, false, err
	}
	return rec.Refreshed(id), true, nil
}

// contributors returns every contributor, refreshed to round id, in
// account order.
func (s *state) contributors(id types.RoundID) ([]types.Contributor, error) {
	var (
		out  []types.Contributor
		ierr error
	)
	prefix := []byte{prefixContributor}
	s.kv.Iterate(prefix, func(key, value []byte) bool {
		acc, err := types.AccountFromBytes(key[len(prefix):])
		if err != nil {
			ierr = &store.CorruptError{Key: key, Err: err}
			return false
		}
		rec, err := store.Decode[types.ContributorRecord](key, value)
		if err != nil {
			ierr = err
			return false
		}
		out = append(out, types.Contributor{Account: acc, Record: rec.Refreshed(id)})
		return true
	})
	return out, ierr
}
