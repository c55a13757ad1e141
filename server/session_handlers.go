package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-link-server/internal/errors"
	"github.com/jrsteele09/go-link-server/internal/utils"
	"github.com/jrsteele09/go-link-server/linksession"
)

// QRSessionResponse is the start-endpoint envelope for QR linking.
type QRSessionResponse struct {
	SessionID string `json:"sessionId"`
	QR        string `json:"qr"` // PNG data URL of the payload
	Status    string `json:"status"`
}

// PairSessionResponse is the start-endpoint envelope for pairing-code linking.
type PairSessionResponse struct {
	SessionID string `json:"sessionId"`
	Phone     string `json:"phone"`
	Code      string `json:"code"`
	Status    string `json:"status"`
}

// SessionResultResponse is the polling envelope. Session and Code stay null
// until the attempt is ready; Error is set for terminal failures.
type SessionResultResponse struct {
	SessionID string  `json:"sessionId"`
	Ready     bool    `json:"ready"`
	Status    string  `json:"status,omitempty"`
	Session   *string `json:"session"`
	Code      *string `json:"code"`
	Error     *string `json:"error,omitempty"`
}

// QRSessionHandler starts a QR link attempt and answers once the first QR
// payload is available (or the attempt fails/times out first).
func (s *Server) QRSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.linker.Timeout())
		defer cancel()

		session, err := s.linker.StartQR(ctx)
		if err != nil {
			respondErrorDetails(w, http.StatusInternalServerError, "failed to start link session", err.Error(), nil)
			return
		}

		select {
		case <-session.Issued():
		case <-ctx.Done():
			respondError(w, http.StatusGatewayTimeout, "QR timeout", nil)
			return
		}

		snap := session.Snapshot()
		if snap.State == linksession.StateTimedOut {
			respondError(w, http.StatusGatewayTimeout, "QR timeout", nil)
			return
		}
		if snap.State == linksession.StateClosedError {
			respondErrorDetails(w, http.StatusInternalServerError, "upstream connection closed", snap.Error, retryHint(snap.Error))
			return
		}

		dataURL, err := qrDataURL(snap.QRPayload)
		if err != nil {
			respondErrorDetails(w, http.StatusInternalServerError, "failed to render QR", err.Error(), nil)
			return
		}

		respondJSON(w, http.StatusOK, QRSessionResponse{
			SessionID: snap.ID,
			QR:        dataURL,
			Status:    "scan_pending",
		})
	}
}

// PairSessionHandler starts a pairing-code link attempt for
// ?phone=<digits> and answers once the code has been issued.
func (s *Server) PairSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		phone := r.URL.Query().Get("phone")

		ctx, cancel := context.WithTimeout(r.Context(), s.linker.Timeout())
		defer cancel()

		session, err := s.linker.StartPair(ctx, phone)
		if errors.Is(err, errors.ErrInvalidPhone) {
			respondError(w, http.StatusBadRequest, "invalid_phone", nil)
			return
		}
		if err != nil {
			respondErrorDetails(w, http.StatusInternalServerError, "failed to start link session", err.Error(), nil)
			return
		}

		select {
		case <-session.Issued():
		case <-ctx.Done():
			respondError(w, http.StatusGatewayTimeout, "pairing code timeout", nil)
			return
		}

		snap := session.Snapshot()
		if snap.State == linksession.StateTimedOut {
			respondError(w, http.StatusGatewayTimeout, "pairing code timeout", nil)
			return
		}
		if snap.State == linksession.StateClosedError {
			respondErrorDetails(w, http.StatusInternalServerError, "upstream connection closed", snap.Error, retryHint(snap.Error))
			return
		}

		respondJSON(w, http.StatusOK, PairSessionResponse{
			SessionID: snap.ID,
			Phone:     snap.Phone,
			Code:      snap.PairCode,
			Status:    "pair_code_generated",
		})
	}
}

// SessionResultHandler is the polling endpoint. Safe to call repeatedly;
// never errors on an unknown id.
func (s *Server) SessionResultHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		session, err := s.sessions.Get(id)
		if err != nil {
			respondJSON(w, http.StatusOK, SessionResultResponse{SessionID: id, Ready: false})
			return
		}

		snap := session.Snapshot()
		resp := SessionResultResponse{
			SessionID: snap.ID,
			Ready:     snap.State == linksession.StateReady,
			Status:    string(snap.State),
		}
		if resp.Ready {
			resp.Session = utils.Ptr(snap.Token)
			if snap.ShortCode != "" {
				resp.Code = utils.Ptr(snap.ShortCode)
			}
		}
		if snap.Error != "" {
			resp.Error = utils.Ptr(snap.Error)
		}
		respondJSON(w, http.StatusOK, resp)
	}
}

// retryHint derives whether starting a new session is likely to help after
// an upstream close. A logged-out close means the device was unlinked on the
// platform side, which a plain retry will hit again.
func retryHint(errMsg string) *bool {
	return utils.Ptr(!strings.Contains(errMsg, "logged out"))
}
