package folio

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrSessionNotFound is returned when a session does not exist or is
	// owned by a different user.
	ErrSessionNotFound = errors.New("upload session not found")

	// ErrProjectNotFound is returned when a project does not exist or is
	// owned by a different user.
	ErrProjectNotFound = errors.New("project not found")
)

// ArchiveError reports an archive that could not be read at all.
// It is fatal to the session that received it.
type ArchiveError struct {
	Archive string
	Err     error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive %q is unreadable: %v", e.Archive, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// StateConflictError reports an operation attempted against a session whose
// status is not the one the operation requires. Callers should re-poll the
// session and retry against its current state.
type StateConflictError struct {
	SessionID string
	Expected  SessionStatus
	Actual    SessionStatus
	Reason    string
}

func (e *StateConflictError) Error() string {
	msg := fmt.Sprintf("session %s is %s", e.SessionID, e.Actual)
	if e.Expected != "" {
		msg += fmt.Sprintf(", expected %s", e.Expected)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// UnknownCandidateError reports resolution decisions naming candidates that
// are not currently pending.
type UnknownCandidateError struct {
	Names []string
}

func (e *UnknownCandidateError) Error() string {
	names := append([]string(nil), e.Names...)
	sort.Strings(names)
	return fmt.Sprintf("not a pending candidate: %s", strings.Join(names, ", "))
}

// InvalidDecisionError reports malformed resolution input.
type InvalidDecisionError struct {
	Candidate string
	Reason    string
}

func (e *InvalidDecisionError) Error() string {
	if e.Candidate == "" {
		return "invalid decision: " + e.Reason
	}
	return fmt.Sprintf("invalid decision for %q: %s", e.Candidate, e.Reason)
}

// DuplicateVersionError is raised by the identity store when a version with
// the same strict fingerprint already exists under the project.
type DuplicateVersionError struct {
	ProjectID         string
	StrictFingerprint string
}

func (e *DuplicateVersionError) Error() string {
	return fmt.Sprintf("project %s already has a version with fingerprint %s", e.ProjectID, e.StrictFingerprint)
}

// Error codes returned by ErrorCode.
const (
	CodeInvalid  = "invalid"
	CodeConflict = "conflict"
	CodeNotFound = "not_found"
	CodeInternal = "internal"
)

// ErrorCode maps an error to a stable code for programmatic handling.
func ErrorCode(err error) string {
	var (
		archiveErr  *ArchiveError
		conflictErr *StateConflictError
		unknownErr  *UnknownCandidateError
		decisionErr *InvalidDecisionError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &conflictErr):
		return CodeConflict
	case errors.As(err, &unknownErr), errors.As(err, &decisionErr), errors.As(err, &archiveErr):
		return CodeInvalid
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrProjectNotFound):
		return CodeNotFound
	default:
		return CodeInternal
	}
}

// StatusCode maps an error to the HTTP status a transport layer should use.
func StatusCode(err error) int {
	var archiveErr *ArchiveError
	switch ErrorCode(err) {
	case "":
		return http.StatusOK
	case CodeConflict:
		return http.StatusConflict
	case CodeInvalid:
		if errors.As(err, &archiveErr) {
			return http.StatusBadRequest
		}
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
