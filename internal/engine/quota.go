package engine

// DefaultMaxUrgentSteps bounds how many transitions a single Next may take
// through urgent states.
const DefaultMaxUrgentSteps = 1000

// urgentQuota counts transitions taken within one Next call.
//
// Urgent states are left in the tick they are entered in, so a cycle of
// urgent states whose guards keep holding would never return. The quota
// turns that into an ErrCodeUrgentCycle error for the offending cursor.
type urgentQuota struct {
	max     int
	current int
}

func newUrgentQuota(max int) urgentQuota {
	return urgentQuota{max: max}
}

// check counts one transition and reports whether the bound still holds.
func (q *urgentQuota) check() bool {
	q.current++
	return q.current <= q.max
}
