package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/teemow/todoagent/internal/apperrors"
	"github.com/teemow/todoagent/internal/auth"
	"github.com/teemow/todoagent/internal/calendar"
	"github.com/teemow/todoagent/internal/google"
	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
	"github.com/teemow/todoagent/internal/server"
)

// Redirect targets of the consent callback
const (
	redirectConnected     = "/profile?google_calendar_connected=true"
	redirectCanceled      = "/?error=oauth_canceled"
	redirectNotConfigured = "/?error=oauth_config"
	redirectUnknownUser   = "/?error=user_not_found"
	redirectTokenSave     = "/?error=token_save"
	redirectOAuthError    = "/?error=oauth_error"
)

type calendarURLRequest struct {
	Title    string `json:"title"`
	StartISO string `json:"startISO"`
	Details  string `json:"details"`
	TimeZone string `json:"timeZone"`
}

// handleCalendarURL builds a manual "add to Google Calendar" link for a
// 30-minute event. It needs no authentication.
func (h *Handler) handleCalendarURL(w http.ResponseWriter, r *http.Request) {
	var req calendarURLRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.StartISO) == "" {
		h.writeError(w, apperrors.Validation("", "Faltan parámetros"))
		return
	}
	// Offset-less start times are wall clock in the requested zone.
	var loc *time.Location
	if req.TimeZone != "" {
		var err error
		if loc, err = time.LoadLocation(req.TimeZone); err != nil {
			h.writeError(w, apperrors.Validationf("timeZone", "Zona horaria inválida: %s", req.TimeZone))
			return
		}
	}
	start, err := h.sc.Tasks().ParseDueDateIn(req.StartISO, loc)
	if err != nil {
		h.writeError(w, err)
		return
	}

	url := calendar.BuildManualURL(calendar.Event{
		Title:       req.Title,
		Description: req.Details,
		Start:       start,
		End:         start.Add(calendar.DefaultEventDuration),
		TimeZone:    req.TimeZone,
	})
	server.WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}

type addEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Location    string `json:"location"`
}

// handleAddEvent inserts an event into the caller's primary calendar. The
// response is the calendar result, which carries a manual link on failure.
func (h *Handler) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	owner, err := auth.OwnerFromContext(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req addEventRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Title == "" || req.StartDate == "" || req.EndDate == "" {
		h.writeError(w, apperrors.Validation("", "title, startDate y endDate son requeridos"))
		return
	}

	store := h.sc.Tasks()
	start, err := store.ParseDueDate(req.StartDate)
	if err != nil {
		h.writeError(w, err)
		return
	}
	end, err := store.ParseDueDate(req.EndDate)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !end.After(start) {
		h.writeError(w, apperrors.Validation("endDate", "endDate debe ser posterior a startDate"))
		return
	}
	if h.cfg.Calendar == nil {
		h.writeError(w, errors.New("calendar bridge is not configured"))
		return
	}

	result := h.cfg.Calendar.AddEvent(r.Context(), owner, calendar.Event{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Start:       start,
		End:         end,
		TimeZone:    calendar.ZoneName(store.Location()),
	})
	server.WriteJSON(w, http.StatusOK, result)
}

// handleGoogleAuth returns the consent URL. The state parameter is a signed
// token naming the caller so the callback needs no session.
func (h *Handler) handleGoogleAuth(w http.ResponseWriter, r *http.Request) {
	owner, err := auth.OwnerFromContext(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !h.cfg.Google.Configured() || h.cfg.States == nil {
		server.WriteErrorMessage(w, http.StatusInternalServerError, "GOOGLE_CLIENT_ID y GOOGLE_CLIENT_SECRET no configurados")
		return
	}

	state, err := h.cfg.States.Sign(owner)
	if err != nil {
		h.writeError(w, err)
		return
	}
	authURL, err := h.cfg.Google.AuthURL(state)
	if err != nil {
		h.writeError(w, err)
		return
	}
	server.WriteJSON(w, http.StatusOK, map[string]string{"authUrl": authURL})
}

// handleGoogleCallback completes the consent flow and redirects back to the
// web app with a status flag.
func (h *Handler) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	metrics := h.sc.Metrics()
	logger := h.sc.Logger()
	redirect := func(target string) {
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
	}

	q := r.URL.Query()
	code, state := q.Get("code"), q.Get("state")
	if q.Get("error") != "" || code == "" || state == "" {
		metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultCanceled)
		redirect(redirectCanceled)
		return
	}
	if !h.cfg.Google.Configured() || h.cfg.States == nil || h.cfg.Tokens == nil {
		metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		redirect(redirectNotConfigured)
		return
	}

	owner, err := h.cfg.States.Verify(state)
	if err != nil {
		logger.Warn("rejected oauth state", logging.Err(err))
		metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		redirect(redirectUnknownUser)
		return
	}

	token, err := h.cfg.Google.Exchange(ctx, code)
	if err != nil {
		logger.Error("google code exchange failed", logging.Owner(owner), logging.Err(err))
		metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		redirect(redirectOAuthError)
		return
	}

	// Google omits the refresh token when the user had already consented.
	if token.RefreshToken == "" {
		if prev, err := h.cfg.Tokens.Load(ctx, owner); err == nil && prev.RefreshToken != "" {
			token.RefreshToken = prev.RefreshToken
		} else if err != nil && !errors.Is(err, google.ErrNoToken) {
			logger.Warn("failed to load previous google token", logging.Owner(owner), logging.Err(err))
		}
	}

	if err := h.cfg.Tokens.Save(ctx, owner, token); err != nil {
		logger.Error("failed to save google token", logging.Owner(owner), logging.Err(err))
		metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		redirect(redirectTokenSave)
		return
	}

	logger.Info("google calendar connected", logging.Owner(owner))
	metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	redirect(redirectConnected)
}
