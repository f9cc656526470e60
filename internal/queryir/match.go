package queryir

// Match reports whether e satisfies p. A nil predicate matches every
// event; fields e does not have never match.
func Match(p Predicate, e Event) bool {
	switch pred := p.(type) {
	case nil:
		return true
	case Equals:
		got, ok := e.Field(pred.Field)
		return ok && got == pred.Value
	case *Equals:
		return Match(*pred, e)
	case Range:
		got, ok := e.Field(pred.Field)
		n, isInt := got.(int64)
		return ok && isInt && n >= pred.Min && (pred.Max < 0 || n <= pred.Max)
	case *Range:
		return Match(*pred, e)
	case And:
		for _, q := range pred.Predicates {
			if !Match(q, e) {
				return false
			}
		}
		return true
	case Or:
		for _, q := range pred.Predicates {
			if Match(q, e) {
				return true
			}
		}
		return false
	case Not:
		return !Match(pred.Predicate, e)
	default:
		return false
	}
}
