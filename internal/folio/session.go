package folio

import (
	"encoding/json"
	"fmt"
	"time"
)

// SessionStatus is the wizard step an upload session is at.
type SessionStatus string

const (
	StatusStarted             SessionStatus = "started"
	StatusNeedsDedup          SessionStatus = "needs_dedup"
	StatusNeedsClassification SessionStatus = "needs_classification"
	StatusNeedsProjectTypes   SessionStatus = "needs_project_types"
	StatusNeedsFileRoles      SessionStatus = "needs_file_roles"
	StatusNeedsSummaries      SessionStatus = "needs_summaries"
	StatusAnalyzing           SessionStatus = "analyzing"
	StatusDone                SessionStatus = "done"
	StatusFailed              SessionStatus = "failed"
)

// sessionFlow lists the forward successors of each status. Failure is allowed
// from every non-terminal status and is not listed.
var sessionFlow = map[SessionStatus][]SessionStatus{
	StatusStarted:             {StatusNeedsDedup, StatusNeedsClassification},
	StatusNeedsDedup:          {StatusNeedsClassification},
	StatusNeedsClassification: {StatusNeedsProjectTypes},
	StatusNeedsProjectTypes:   {StatusNeedsFileRoles},
	StatusNeedsFileRoles:      {StatusNeedsSummaries},
	StatusNeedsSummaries:      {StatusAnalyzing},
	StatusAnalyzing:           {StatusDone},
	StatusDone:                nil,
	StatusFailed:              nil,
}

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	_, ok := sessionFlow[s]
	return ok
}

// IsTerminal reports whether no further transition is possible.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// downstream reports whether s is one of the wizard steps after deduplication.
func (s SessionStatus) downstream() bool {
	switch s {
	case StatusNeedsClassification, StatusNeedsProjectTypes, StatusNeedsFileRoles,
		StatusNeedsSummaries, StatusAnalyzing:
		return true
	}
	return false
}

// ParseSessionStatus converts a string into a known SessionStatus.
func ParseSessionStatus(s string) (SessionStatus, error) {
	status := SessionStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown session status %q", s)
	}
	return status, nil
}

// CanTransition reports whether a session may move from one status to another.
func CanTransition(from, to SessionStatus) bool {
	if from.IsTerminal() || !from.Valid() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	for _, next := range sessionFlow[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PendingAsk is a candidate whose disposition needs a user decision.
type PendingAsk struct {
	CandidateName        string     `json:"candidate_name"`
	BestMatchProjectID   string     `json:"best_match_project_id,omitempty"`
	BestMatchProjectName string     `json:"best_match_project_name,omitempty"`
	BestMatchVersionID   string     `json:"best_match_version_id,omitempty"`
	Similarity           float64    `json:"similarity"`
	Overlap              int        `json:"overlap"`
	Reason               string     `json:"reason"`
	StrictFingerprint    string     `json:"strict_fingerprint"`
	Files                []FileHash `json:"files"`
}

// DispositionRecord is the final outcome for one candidate.
type DispositionRecord struct {
	Disposition      Disposition `json:"disposition"`
	ProjectID        string      `json:"project_id,omitempty"`
	VersionID        string      `json:"version_id,omitempty"`
	MatchedProjectID string      `json:"matched_project_id,omitempty"`
	MatchedVersionID string      `json:"matched_version_id,omitempty"`
	Similarity       float64     `json:"similarity"`
	FileCount        int         `json:"file_count"`
	Reason           string      `json:"reason,omitempty"`
	DecidedByUser    bool        `json:"decided_by_user,omitempty"`
}

// SessionFailure records why a session was moved to failed.
type SessionFailure struct {
	From  SessionStatus `json:"from"`
	Cause string        `json:"cause"`
	Code  string        `json:"code"`
	At    time.Time     `json:"at"`
}

// SessionState is the JSON document carried by an upload session.
type SessionState struct {
	RootArchiveName      string                       `json:"root_archive_name"`
	Layout               Layout                       `json:"layout"`
	PendingAsks          []PendingAsk                 `json:"pending_asks"`
	ResolvedDispositions map[string]DispositionRecord `json:"resolved_dispositions"`
	CandidateErrors      map[string]string            `json:"candidate_errors,omitempty"`
	Selections           map[string]json.RawMessage   `json:"selections,omitempty"`
	Failure              *SessionFailure              `json:"failure,omitempty"`
}

func newSessionState(archiveName string) *SessionState {
	return &SessionState{
		RootArchiveName:      archiveName,
		Layout:               Layout{AutoAssignments: map[string]string{}},
		PendingAsks:          []PendingAsk{},
		ResolvedDispositions: map[string]DispositionRecord{},
	}
}

// DecodeSessionState parses a stored state document.
func DecodeSessionState(data string) (*SessionState, error) {
	state := &SessionState{}
	if err := json.Unmarshal([]byte(data), state); err != nil {
		return nil, fmt.Errorf("decoding session state: %w", err)
	}
	if state.Layout.AutoAssignments == nil {
		state.Layout.AutoAssignments = map[string]string{}
	}
	if state.PendingAsks == nil {
		state.PendingAsks = []PendingAsk{}
	}
	if state.ResolvedDispositions == nil {
		state.ResolvedDispositions = map[string]DispositionRecord{}
	}
	return state, nil
}

// Encode serializes the state document.
func (s *SessionState) Encode() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encoding session state: %w", err)
	}
	return string(data), nil
}

// Session is an upload session as seen by callers.
type Session struct {
	ID        string
	UserID    string
	Status    SessionStatus
	State     *SessionState
	Revision  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NextStep is the status the session moves to on its next forward step. It is
// empty for terminal sessions.
func (s *Session) NextStep() SessionStatus {
	switch s.Status {
	case StatusStarted:
		if len(s.State.PendingAsks) > 0 {
			return StatusNeedsDedup
		}
		return StatusNeedsClassification
	case StatusDone, StatusFailed:
		return ""
	}
	next := sessionFlow[s.Status]
	if len(next) == 0 {
		return ""
	}
	return next[0]
}

// transition moves the session to status to, or returns a conflict if the
// move is not allowed from the current status.
func (s *Session) transition(to SessionStatus) error {
	if !CanTransition(s.Status, to) {
		return &StateConflictError{
			SessionID: s.ID,
			Actual:    s.Status,
			Reason:    fmt.Sprintf("cannot move to %s", to),
		}
	}
	if s.Status == StatusStarted && to == StatusNeedsClassification && len(s.State.PendingAsks) > 0 {
		return &StateConflictError{
			SessionID: s.ID,
			Actual:    s.Status,
			Reason:    "pending dedup decisions must be resolved first",
		}
	}
	s.Status = to
	return nil
}

// expect returns a conflict unless the session is at the given status.
func (s *Session) expect(status SessionStatus) error {
	if s.Status != status {
		return &StateConflictError{SessionID: s.ID, Expected: status, Actual: s.Status}
	}
	return nil
}
