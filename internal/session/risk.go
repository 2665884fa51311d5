// Package session tracks learner sessions, their activity logs, and the
// risk signals that gate the reward path.
package session

import (
	"fmt"
	"time"

	"github.com/constitutionhub/platform/internal/domain"
)

const (
	rapidFireWindow    = 5 * time.Minute
	rapidFireThreshold = 100
	failureThreshold   = 5
	maxSessionDuration = 4 * time.Hour
)

// RiskDelta returns the risk-score adjustment for an activity outcome.
// Scores never go below zero; the caller applies the floor.
func RiskDelta(outcome domain.ActivityOutcome) int {
	switch outcome {
	case domain.OutcomeDuplicateBlocked:
		return 5
	case domain.OutcomeExploitDetected:
		return 15
	case domain.OutcomeFailed:
		return 2
	case domain.OutcomeSuccess:
		return -1
	default:
		return 0
	}
}

// Evaluate recomputes a session's validation state from its activity log.
func Evaluate(s *domain.UserSession, now time.Time) domain.ValidationState {
	var issues []domain.SessionIssue

	recent := 0
	cutoff := now.Add(-rapidFireWindow)
	failures := 0
	exploits := 0
	for _, a := range s.Activities {
		if a.At.After(cutoff) {
			recent++
		}
		switch a.Outcome {
		case domain.OutcomeFailed, domain.OutcomeDuplicateBlocked:
			failures++
		case domain.OutcomeExploitDetected:
			exploits++
		}
	}

	if recent > rapidFireThreshold {
		issues = append(issues, domain.SessionIssue{
			Code:     "rapid_fire",
			Severity: domain.SeverityHigh,
			Detail:   fmt.Sprintf("%d activities in the last %s", recent, rapidFireWindow),
		})
	}
	if failures > failureThreshold {
		issues = append(issues, domain.SessionIssue{
			Code:     "suspicious_pattern",
			Severity: domain.SeverityMedium,
			Detail:   fmt.Sprintf("%d failed or duplicate-blocked activities", failures),
		})
	}
	if exploits > 0 {
		issues = append(issues, domain.SessionIssue{
			Code:     "suspicious_pattern",
			Severity: domain.SeverityCritical,
			Detail:   fmt.Sprintf("%d exploit attempts detected", exploits),
		})
	}
	if now.Sub(s.StartTime) > maxSessionDuration {
		issues = append(issues, domain.SessionIssue{
			Code:     "time_anomaly",
			Severity: domain.SeverityMedium,
			Detail:   fmt.Sprintf("session open longer than %s", maxSessionDuration),
		})
	}

	return domain.ValidationState{IsValid: len(issues) == 0, Issues: issues}
}
