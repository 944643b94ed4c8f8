package narrow

// Target is the message a view should focus on: either none, or a specific
// message ID (typically the message the user navigated from).
type Target struct {
	id  int64
	set bool
}

// NoTarget returns the empty target.
func NoTarget() Target { return Target{} }

// TargetMessage returns a target at the given message ID.
func TargetMessage(id int64) Target { return Target{id: id, set: true} }

// ID returns the target message ID and whether one is set.
func (t Target) ID() (int64, bool) { return t.id, t.set }

// Focus returns the position in ids that should receive focus: the target's
// position when it is present, otherwise the last (most recent) message.
//
// An absent target and no target at all both fall back to the newest
// message; a caller that needs to tell "no such message" from "show newest"
// must check membership itself.
//
// The result is -1 for an empty list; callers gate on InRange.
func Focus(ids []int64, target Target) int {
	if id, ok := target.ID(); ok {
		for i, v := range ids {
			if v == id {
				return i
			}
		}
	}
	return len(ids) - 1
}

// InRange reports whether pos is a valid focus position in a list of n
// items. Out-of-range positions are not applied.
func InRange(pos, n int) bool {
	return pos >= 0 && pos < n
}
