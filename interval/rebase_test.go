package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainByID(commits []Commit) func(id string) (Commit, bool) {
	byID := map[string]Commit{}
	for _, c := range commits {
		byID[c.ID] = c
	}
	return func(id string) (Commit, bool) { c, ok := byID[id]; return c, ok }
}

// TestRebaseBranch_IdentitySkip exercises spec §8 Scenario 6 verbatim:
// source commits 2',3',5 (2' and 3' tagged the same as target commits 2
// and 3) rebased onto target commit 4 yields deletedSourceCommits =
// [2',3',5] and newSourceCommits = [2,3,4,5'].
func TestRebaseBranch_IdentitySkip(t *testing.T) {
	target := []Commit{
		{ID: "2", Parent: "1"},
		{ID: "3", Parent: "2"},
		{ID: "4", Parent: "3"},
	}
	lookup := chainByID(target)

	source := []Commit{
		{ID: "2'", RevisionTag: "2", Parent: "1"},
		{ID: "3'", RevisionTag: "3", Parent: "2'"},
		{ID: "5", Parent: "3'"},
	}

	targetChain := BuildTargetChain(lookup, nil, []string{"4"})
	require.Equal(t, []string{"2", "3", "4"}, idsOf(targetChain))

	result := RebaseBranch(targetChain, []string{"4"}, source)

	assert.Equal(t, []string{"2'", "3'", "5"}, result.DeletedSourceCommits)
	assert.Equal(t, []string{"2", "3", "4", "5'"}, result.NewSourceCommits)
	assert.Equal(t, "5'", result.NewHead)
}

func TestRebaseBranch_AlreadyDescendant(t *testing.T) {
	target := []Commit{{ID: "1"}, {ID: "2", Parent: "1"}}
	lookup := chainByID(target)
	targetChain := BuildTargetChain(lookup, nil, []string{"2"})

	local := []Commit{{ID: "2", Parent: "1"}, {ID: "3", Parent: "2"}}
	result := RebaseBranch(targetChain, []string{"2"}, local)

	assert.Empty(t, result.DeletedSourceCommits)
	assert.Equal(t, []string{"2", "3"}, result.NewSourceCommits)
	assert.Equal(t, "3", result.NewHead)
}

func TestBuildTargetChain_TargetCommitNotInBranch(t *testing.T) {
	lookup := chainByID([]Commit{{ID: "1"}})
	assert.Panics(t, func() {
		BuildTargetChain(lookup, nil, []string{"missing"})
	})
}

func TestBuildTargetChain_UnrelatedBranches(t *testing.T) {
	target := []Commit{{ID: "root-b"}, {ID: "2", Parent: "root-b"}}
	lookup := chainByID(target)
	assert.Panics(t, func() {
		BuildTargetChain(lookup, []string{"root-a"}, []string{"2"})
	})
}

func idsOf(commits []Commit) []string {
	out := make([]string, len(commits))
	for i, c := range commits {
		out[i] = c.ID
	}
	return out
}
