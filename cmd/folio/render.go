package main

import (
	"fmt"
	"sort"

	"folio-go/internal/folio"

	"github.com/fatih/color"
)

var (
	skipColor    = color.New(color.FgHiBlack)
	projectColor = color.New(color.FgGreen)
	versionColor = color.New(color.FgCyan)
	askColor     = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed)
)

func dispositionColor(d folio.Disposition) *color.Color {
	switch d {
	case folio.DispositionSkip:
		return skipColor
	case folio.DispositionNewProject:
		return projectColor
	case folio.DispositionNewVersion:
		return versionColor
	default:
		return askColor
	}
}

func statusColor(s folio.SessionStatus) *color.Color {
	switch s {
	case folio.StatusDone:
		return projectColor
	case folio.StatusFailed:
		return errorColor
	case folio.StatusNeedsDedup:
		return askColor
	default:
		return color.New(color.Reset)
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// printSession renders a session for the terminal.
func printSession(sess *folio.Session) {
	fmt.Printf("Session %s  %s\n", sess.ID, statusColor(sess.Status).Sprint(sess.Status))
	if next := sess.NextStep(); next != "" {
		fmt.Printf("Next:    %s\n", next)
	}
	if sess.State.RootArchiveName != "" {
		fmt.Printf("Archive: %s\n", sess.State.RootArchiveName)
	}

	if len(sess.State.ResolvedDispositions) > 0 {
		fmt.Println("\nDispositions:")
		for _, name := range sortedKeys(sess.State.ResolvedDispositions) {
			rec := sess.State.ResolvedDispositions[name]
			fmt.Printf("  %-12s %-24s project=%s", dispositionColor(rec.Disposition).Sprint(rec.Disposition), name, rec.ProjectID)
			if rec.MatchedVersionID != "" {
				fmt.Printf(" match=%s sim=%.2f", rec.MatchedVersionID, rec.Similarity)
			}
			fmt.Println()
		}
	}

	if len(sess.State.PendingAsks) > 0 {
		fmt.Println("\nPending decisions:")
		for _, ask := range sess.State.PendingAsks {
			fmt.Printf("  %s %-24s", askColor.Sprint("ask"), ask.CandidateName)
			if ask.BestMatchProjectID != "" {
				fmt.Printf(" best=%q sim=%.2f overlap=%d", ask.BestMatchProjectName, ask.Similarity, ask.Overlap)
			}
			if ask.Reason != "" {
				fmt.Printf(" (%s)", ask.Reason)
			}
			fmt.Println()
		}
	}

	if len(sess.State.CandidateErrors) > 0 {
		fmt.Println("\nCandidate errors:")
		for _, name := range sortedKeys(sess.State.CandidateErrors) {
			fmt.Printf("  %s %s\n", errorColor.Sprint(name), sess.State.CandidateErrors[name])
		}
	}

	if f := sess.State.Failure; f != nil {
		fmt.Printf("\n%s from %s: %s\n", errorColor.Sprint("Failed"), f.From, f.Cause)
	}
}

// describeError prefixes err with its stable code and status.
func describeError(verb string, err error) error {
	return fmt.Errorf("%s: %s (%d): %w", verb, folio.ErrorCode(err), folio.StatusCode(err), err)
}
