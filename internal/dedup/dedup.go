// package dedup decides what to do with a planned playlist write when the
// target may already contain some of the source's videos.
//
// The decision is made entirely from the two video-ID lists. Classification
// is cheap and local; the expensive part is fetching the lists, which is the
// caller's job.
package dedup

import "fmt"

// UpdateThreshold is the overlap ratio above which an existing target is
// amended in place instead of replaced wholesale.
const UpdateThreshold = 0.75

// Verdict is the dedup engine's decision for one source/target pair.
type Verdict string

const (
	// VerdictSkip means the target holds exactly the source's videos.
	VerdictSkip Verdict = "skip"
	// VerdictUpdate means the target overlaps enough that only the
	// missing videos should be inserted.
	VerdictUpdate Verdict = "update"
	// VerdictCreate means the target is absent or too different, so a
	// fresh playlist should be written.
	VerdictCreate Verdict = "create"
)

// Decision is the classification result for one planned write.
type Decision struct {
	Verdict Verdict
	// MatchRatio is the fraction of distinct source videos present in the
	// target, in [0.0, 1.0].
	MatchRatio float64
	// Missing lists the source videos absent from the target, in source
	// order, duplicates preserved. Populated for update verdicts; empty
	// for skip, equal to the full source for create.
	Missing []string
}

// Classify compares a source video list against an existing target's list
// and decides whether the write can be skipped, amended, or must create a
// new playlist.
//
// A nil or empty target means the playlist does not exist yet and always
// yields a create verdict. An empty source is a contract violation; callers
// filter out empty playlists before planning.
func Classify(source, target []string) Decision {
	if len(source) == 0 {
		panic("dedup: classify called with empty source")
	}

	if len(target) == 0 {
		return Decision{
			Verdict:    VerdictCreate,
			MatchRatio: 0,
			Missing:    append([]string(nil), source...),
		}
	}

	targetSet := make(map[string]struct{}, len(target))
	for _, id := range target {
		targetSet[id] = struct{}{}
	}

	// Overlap counts distinct source IDs so repeated videos cannot inflate
	// the ratio past what the target actually covers.
	sourceSet := make(map[string]struct{}, len(source))
	matched := 0
	for _, id := range source {
		if _, seen := sourceSet[id]; seen {
			continue
		}
		sourceSet[id] = struct{}{}
		if _, ok := targetSet[id]; ok {
			matched++
		}
	}

	ratio := float64(matched) / float64(len(sourceSet))

	var missing []string
	for _, id := range source {
		if _, ok := targetSet[id]; !ok {
			missing = append(missing, id)
		}
	}

	switch {
	case matched == len(sourceSet) && len(targetSet) == len(sourceSet):
		// Identical membership. Ordering differences do not matter; the
		// two lists carry the same videos.
		return Decision{Verdict: VerdictSkip, MatchRatio: ratio}
	case ratio > UpdateThreshold:
		return Decision{Verdict: VerdictUpdate, MatchRatio: ratio, Missing: missing}
	default:
		// Below the threshold partial matches are treated as unrelated
		// rather than guessed at.
		return Decision{Verdict: VerdictCreate, MatchRatio: ratio, Missing: missing}
	}
}

// String returns the verdict name for logging and journal rows.
func (v Verdict) String() string {
	return string(v)
}

// ParseVerdict converts a journal row value back into a Verdict.
func ParseVerdict(s string) (Verdict, error) {
	switch Verdict(s) {
	case VerdictSkip, VerdictUpdate, VerdictCreate:
		return Verdict(s), nil
	default:
		return "", fmt.Errorf("unknown dedup verdict %q", s)
	}
}
