package compliance

import "strings"

// ContentIssue names a word-list category hit during ScanContent.
type ContentIssue string

const (
	// IssueHealthClaim flags language that reads as an unverified medical claim.
	IssueHealthClaim ContentIssue = "health-claim"
	// IssueMinorAppealing flags language that could appeal to minors.
	IssueMinorAppealing ContentIssue = "minor-appealing"
)

var defaultHealthClaimWords = []string{
	"cures", "cure cancer", "treats anxiety", "treats depression",
	"heals", "fda approved", "medical grade", "prescription strength",
}

var defaultMinorAppealingWords = []string{
	"cartoon", "candy", "gummy bear", "kid-friendly", "for kids",
	"back to school", "recess",
}

// ContentScanResult is the advisory outcome of ScanContent.
type ContentScanResult struct {
	Approved bool
	Issues   []ContentIssue
}

// ContentScanner performs case-insensitive substring detection against the
// health-claim and minor-appealing word lists. It is advisory only: callers
// log the issues but never block a send on them.
type ContentScanner struct {
	healthClaimWords    []string
	minorAppealingWords []string
}

// NewContentScanner returns a scanner using the built-in word lists.
func NewContentScanner() *ContentScanner {
	return &ContentScanner{
		healthClaimWords:    defaultHealthClaimWords,
		minorAppealingWords: defaultMinorAppealingWords,
	}
}

// Scan checks text against both word lists. state is accepted for parity
// with the per-state hook on the compliance gate, though the default word
// lists do not currently vary by state.
func (s *ContentScanner) Scan(text string, state string) ContentScanResult {
	if s == nil {
		return ContentScanResult{Approved: true}
	}
	lower := strings.ToLower(text)
	var issues []ContentIssue
	if containsAny(lower, s.healthClaimWords) {
		issues = append(issues, IssueHealthClaim)
	}
	if containsAny(lower, s.minorAppealingWords) {
		issues = append(issues, IssueMinorAppealing)
	}
	return ContentScanResult{
		Approved: len(issues) == 0,
		Issues:   issues,
	}
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
