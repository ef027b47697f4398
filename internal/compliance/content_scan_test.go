package compliance

import "testing"

func TestContentScannerHealthClaim(t *testing.T) {
	s := NewContentScanner()
	result := s.Scan("This tincture CURES chronic pain overnight.", "CA")
	if result.Approved {
		t.Fatalf("expected health-claim issue")
	}
	if len(result.Issues) != 1 || result.Issues[0] != IssueHealthClaim {
		t.Fatalf("got issues %v", result.Issues)
	}
}

func TestContentScannerMinorAppealing(t *testing.T) {
	s := NewContentScanner()
	result := s.Scan("New gummy bear edibles just dropped!", "")
	if result.Approved {
		t.Fatalf("expected minor-appealing issue")
	}
	if len(result.Issues) != 1 || result.Issues[0] != IssueMinorAppealing {
		t.Fatalf("got issues %v", result.Issues)
	}
}

func TestContentScannerClean(t *testing.T) {
	s := NewContentScanner()
	result := s.Scan("Stop by our dispensary this weekend for 20% off.", "")
	if !result.Approved || len(result.Issues) != 0 {
		t.Fatalf("expected clean scan, got %+v", result)
	}
}

func TestContentScannerNilSafety(t *testing.T) {
	var s *ContentScanner
	result := s.Scan("cures everything", "")
	if !result.Approved {
		t.Fatalf("nil scanner should approve everything")
	}
}
