package model

import (
	"regexp"
	"testing"
	"time"
)

func TestAttemptDeadline(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	a := &AssessmentAttempt{StartedAt: start}

	if d := a.Deadline(0); !d.IsZero() {
		t.Fatalf("untimed deadline = %v", d)
	}
	if d := a.Deadline(45); !d.Equal(start.Add(45 * time.Minute)) {
		t.Fatalf("deadline = %v", d)
	}
}

func TestNewCertificateNumber(t *testing.T) {
	at := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^CERT-2025-[0-9a-f]{12}$`)

	a, b := NewCertificateNumber(at), NewCertificateNumber(at)
	if !pattern.MatchString(a) {
		t.Fatalf("number = %q", a)
	}
	if a == b {
		t.Fatalf("numbers collide: %q", a)
	}
}
