package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/claimflow/internal/claim"
	"github.com/claimflow/internal/fnol"
	"github.com/claimflow/internal/payout"
	"github.com/claimflow/internal/policy"
)

type createSessionRequest struct {
	UserID   string `json:"user_id,omitempty"`
	PolicyID string `json:"policy_id,omitempty"`
}

type advanceRequest struct {
	Value  string   `json:"value,omitempty"`
	Values []string `json:"values,omitempty"`
}

type attachEvidenceRequest struct {
	EvidenceID string `json:"evidence_id"`
	Type       string `json:"type"`
}

// turnResponse is the session view returned from every mutating endpoint.
type turnResponse struct {
	ThreadID         string            `json:"thread_id"`
	Status           fnol.Status       `json:"status"`
	State            claim.State       `json:"current_state"`
	ProgressPercent  int               `json:"progress_percent"`
	PendingInput     fnol.PendingInput `json:"pending_input"`
	ValidationErrors []string          `json:"validation_errors,omitempty"`
	Messages         []fnol.Message    `json:"messages,omitempty"`
	Payout           *payout.Breakdown `json:"payout,omitempty"`
	EscalationReason string            `json:"escalation_reason,omitempty"`
	IsComplete       bool              `json:"is_complete"`
}

func toTurnResponse(s *fnol.Session) turnResponse {
	// Only the tail of the transcript travels on the wire; resume returns the
	// full history.
	msgs := s.Messages
	if len(msgs) > 4 {
		msgs = msgs[len(msgs)-4:]
	}
	return turnResponse{
		ThreadID:         s.ThreadID,
		Status:           s.Status,
		State:            s.Current,
		ProgressPercent:  s.ProgressPercent,
		PendingInput:     s.Pending,
		ValidationErrors: s.ValidationErrors,
		Messages:         msgs,
		Payout:           s.Payout,
		EscalationReason: s.EscalationReason,
		IsComplete:       s.IsComplete(),
	}
}

func (s *Server) createSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	sess, err := s.machine.CreateSession(c.Request().Context(), req.UserID, req.PolicyID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toTurnResponse(sess))
}

func (s *Server) advanceSession(c echo.Context) error {
	var req advanceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}

	sess, err := s.machine.Advance(c.Request().Context(), c.Param("thread_id"),
		fnol.Input{Value: req.Value, Values: req.Values})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toTurnResponse(sess))
}

func (s *Server) attachEvidence(c echo.Context) error {
	var req attachEvidenceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
	}
	if req.EvidenceID == "" {
		return c.JSON(http.StatusBadRequest, errorBody("evidence_id is required"))
	}

	sess, err := s.machine.AttachEvidence(c.Request().Context(), c.Param("thread_id"),
		req.EvidenceID, req.Type)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toTurnResponse(sess))
}

func (s *Server) resumeSession(c echo.Context) error {
	sess, err := s.machine.Resume(c.Request().Context(), c.Param("thread_id"))
	if err != nil {
		return writeError(c, err)
	}
	resp := toTurnResponse(sess)
	resp.Messages = sess.Messages
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) sessionSummary(c echo.Context) error {
	summary, err := s.machine.Summarize(c.Request().Context(), c.Param("thread_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) abandonSession(c echo.Context) error {
	sess, err := s.machine.Abandon(c.Request().Context(), c.Param("thread_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toTurnResponse(sess))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// writeError maps the core error taxonomy onto HTTP statuses.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, fnol.ErrSessionNotFound), errors.Is(err, policy.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, fnol.ErrSessionBusy), errors.Is(err, fnol.ErrVersionConflict):
		return c.JSON(http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, fnol.ErrSessionTerminated):
		return c.JSON(http.StatusGone, errorBody(err.Error()))
	case errors.Is(err, fnol.ErrSystemUnavailable):
		return c.JSON(http.StatusServiceUnavailable, errorBody(err.Error()))
	default:
		return c.JSON(http.StatusInternalServerError, errorBody("internal error"))
	}
}
