package interval

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/kevinxiao27/mergetree-intervals/mergetree"
)

// RebaseLocalInterval repositions a pending local interval's endpoints
// after reconnect, per spec §4.6 steps 1-4: find where each endpoint's
// segment now lives (FindReconnectionPosition), fall back to the nearest
// live segment in its sliding direction if that segment itself has since
// been removed (GetSlideToSegment), and collapse to a detached reference —
// rather than erroring — if no live segment remains at all.
func RebaseLocalInterval(doc *mergetree.Document, iv *Interval, localSeq int) (*Interval, error) {
	if iv.kind != KindSequence {
		return iv, nil
	}

	rebaseEnd := func(e Endpoint) *mergetree.Reference {
		seg, off, ok := doc.GetSlideToSegment(e.ref.Segment(), e.ref.Offset(), e.ref.SlidingPreference())
		if !ok {
			return doc.CreateDetachedLocalReferencePosition(e.ref.RefType())
		}
		pos, err := doc.FindReconnectionPosition(seg, localSeq)
		if err != nil {
			return doc.CreateDetachedLocalReferencePosition(e.ref.RefType())
		}
		newSeg, newOff, err2 := doc.GetContainingSegment(pos + off)
		if err2 != nil {
			return doc.CreateDetachedLocalReferencePosition(e.ref.RefType())
		}
		return doc.CreateLocalReferencePosition(newSeg, newOff, e.ref.RefType(), e.ref.SlidingPreference())
	}

	out := &Interval{
		kind:         iv.kind,
		id:           iv.id,
		idSet:        iv.idSet,
		intervalType: iv.intervalType,
		stickiness:   iv.stickiness,
		start:        Endpoint{kind: KindSequence, ref: rebaseEnd(iv.start), doc: doc},
		end:          Endpoint{kind: KindSequence, ref: rebaseEnd(iv.end), doc: doc},
		properties:   cloneProps(iv.properties),
		propMgr:      iv.propMgr.Clone(),
	}
	return out, nil
}

// Commit is one node of a linear changeset chain: a revision identity, the
// single parent it was authored against, and an optional RevisionTag (spec
// §8 Scenario 6's "same revision tags"). Two commits with equal RevisionTag
// carry the same logical change even though rebase may have since given
// them different ids; RevisionTag defaults to ID for callers that never
// rebase a commit across branches.
type Commit struct {
	ID          string
	RevisionTag string
	Parent      string // "" marks a root commit
	Payload     any
}

func (c Commit) tag() string {
	if c.RevisionTag != "" {
		return c.RevisionTag
	}
	return c.ID
}

// BranchRebaseResult is spec §4.6's full branch-rebase result: the new
// head of the rebased branch, the composite change folding every surviving
// local commit's payload into one (in order), and the bookkeeping a caller
// needs to reconcile its view of both branches.
type BranchRebaseResult struct {
	NewHead              string
	CompositeChange      []any
	DeletedSourceCommits []string
	NewSourceCommits     []string
	NewBase              []string
}

func idAncestorSet(commitByID func(id string) (Commit, bool), id string) mapset.Set[string] {
	set := mapset.NewSet[string]()
	cur := id
	for cur != "" {
		if set.Contains(cur) {
			break
		}
		set.Add(cur)
		c, ok := commitByID(cur)
		if !ok {
			break
		}
		cur = c.Parent
	}
	return set
}

// BuildTargetChain walks the target branch backward from newBase's tip via
// Parent links, stopping once it reaches a commit oldBase already knows
// about, and returns the walked chain oldest-first. This is the piece of
// spec §4.6 that asserts its two preconditions: every newBase id must
// actually resolve in the target branch's own history ("target commit is
// not in target branch"), and oldBase's ancestry must intersect newBase's
// ("branches must be related") — an empty oldBase (a fresh root branch) is
// trivially related to anything.
//
// Grounded on eg.diff's ancestor-set-expansion shape (see eg/checkout.go):
// expand a frontier to its full ancestor set via a worklist, the same
// shape expandLVToSet walks an op log's Parents().
func BuildTargetChain(commitByID func(id string) (Commit, bool), oldBase, newBase []string) []Commit {
	for _, id := range newBase {
		_, ok := commitByID(id)
		assert(ok, "target commit %q is not in target branch", id)
	}

	oldBaseAncestors := mapset.NewSet[string]()
	for _, id := range oldBase {
		oldBaseAncestors = oldBaseAncestors.Union(idAncestorSet(commitByID, id))
	}

	var chain []Commit
	related := len(oldBase) == 0
	cur := ""
	if len(newBase) > 0 {
		cur = newBase[len(newBase)-1]
	}
	for cur != "" {
		if oldBaseAncestors.Contains(cur) {
			related = true
			break
		}
		c, ok := commitByID(cur)
		if !ok {
			break
		}
		chain = append(chain, c)
		cur = c.Parent
	}
	assert(related, "branches are not related: no common ancestor between source and target")

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// RebaseBranch re-parents localCommits — source's own chain, oldest first —
// onto targetChain (built by BuildTargetChain, oldest first, ending at
// newBase's tip). Per spec §8 Scenario 6: a local commit whose tag already
// appears in targetChain has been "advanced over" — the target branch
// already carries an identical change, so its old identity is simply
// deleted rather than reapplied, since the matching target commit already
// occupies that slot in the rebased chain. Every other local commit
// survives, re-minted with a fresh identity (its old id suffixed with ')
// since its parent — and therefore its identity — changed.
//
// If localCommits already contains newBase's tip, the source branch is
// already a descendant of the target: nothing to rebase.
func RebaseBranch(targetChain []Commit, newBase []string, localCommits []Commit) BranchRebaseResult {
	result := BranchRebaseResult{NewBase: append([]string{}, newBase...)}
	tip := ""
	if len(newBase) > 0 {
		tip = newBase[len(newBase)-1]
	}
	result.NewHead = tip

	if len(localCommits) == 0 {
		return result
	}

	for _, c := range localCommits {
		if c.ID == tip {
			// Already a descendant of newBase: nothing to rebase.
			for _, lc := range localCommits {
				result.NewSourceCommits = append(result.NewSourceCommits, lc.ID)
				result.CompositeChange = append(result.CompositeChange, lc.Payload)
			}
			result.NewHead = localCommits[len(localCommits)-1].ID
			return result
		}
	}

	targetTags := map[string]bool{}
	for _, c := range targetChain {
		targetTags[c.tag()] = true
		result.NewSourceCommits = append(result.NewSourceCommits, c.ID)
	}

	for _, c := range localCommits {
		result.DeletedSourceCommits = append(result.DeletedSourceCommits, c.ID)
		if targetTags[c.tag()] {
			continue
		}
		reminted := c.ID + "'"
		result.NewSourceCommits = append(result.NewSourceCommits, reminted)
		result.CompositeChange = append(result.CompositeChange, c.Payload)
		result.NewHead = reminted
	}

	return result
}
