package api

import (
	"net/http"
	"time"

	domainerrors "github.com/loopi-signage/loopi-server/internal/errors"
	"github.com/loopi-signage/loopi-server/internal/http/response"
)

// claimNeededCode tells the display client to start the claim flow.
const claimNeededCode = "CLAIM_NEEDED"

// handleDisplay authorizes a display and returns what it should show
// today. Credentials come from the query string or the cookies set by
// the claim flow. Every failure is the same 401 hint: the client
// cannot learn whether the device exists, only that it must re-claim.
// GET /api/v1/display
func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		if c, err := r.Cookie(DeviceIDCookie); err == nil {
			deviceID = c.Value
		}
	}

	token := r.URL.Query().Get("auth_token")
	if token == "" {
		if c, err := r.Cookie(DeviceTokenCookie); err == nil {
			token = c.Value
		}
	}

	if deviceID == "" || token == "" {
		s.claimNeeded(w)
		return
	}

	device, err := s.devices.AuthorizeDisplay(r.Context(), deviceID, token)
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrUnauthorized) {
			s.claimNeeded(w)
			return
		}
		response.HandleError(w, err, s.logger)
		return
	}

	images, err := s.media.ActiveImagesForDevice(r.Context(), device, time.Now())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]any{
		"device_id":       device.ID,
		"name":            device.Name,
		"active_playlist": device.ActivePlaylist,
		"images":          images,
	}, s.logger)
}

// claimNeeded writes the 401 that sends a display into the claim flow.
func (s *Server) claimNeeded(w http.ResponseWriter) {
	response.ErrorWithCode(w, http.StatusUnauthorized,
		"This device isn't registered or authorized. Scan a claim QR code or visit the devices page.",
		claimNeededCode, s.logger)
}
