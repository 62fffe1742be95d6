package api

import (
	"encoding/json/v2"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/loopi-signage/loopi-server/internal/http/response"
	"github.com/loopi-signage/loopi-server/internal/service"
)

// handleListDevices returns all devices for the management page,
// active devices first.
// GET /api/v1/devices
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.devices.List(r.Context())
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, summaries, s.logger)
}

// handleRegisterDevice creates a device or updates its name and
// playlist assignment.
// POST /api/v1/devices
func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterDeviceRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	device, err := s.devices.RegisterOrUpdate(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, device, s.logger)
}

// handleDeleteDevice removes a device.
// DELETE /api/v1/devices/{id}
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	if err := s.devices.Delete(r.Context(), deviceID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.NoContent(w)
}

// handleRotateToken replaces the device's auth token.
// POST /api/v1/devices/{id}/rotate-token
func (s *Server) handleRotateToken(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	newToken, err := s.devices.RotateToken(r.Context(), deviceID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, map[string]string{"new_token": newToken}, s.logger)
}

// handleMarkActive claims a seat for the device from the management page.
// POST /api/v1/devices/{id}/mark-active
func (s *Server) handleMarkActive(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	if err := s.devices.MarkActive(r.Context(), deviceID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, map[string]string{"device_id": deviceID, "status": "active"}, s.logger)
}

// renewLicenseRequest is the body of a license renewal call.
type renewLicenseRequest struct {
	LicenseType string `json:"license_type"`
}

// handleRenewLicense stamps the device with a fresh license term.
// POST /api/v1/devices/{id}/renew-license
func (s *Server) handleRenewLicense(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	var req renewLicenseRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	device, err := s.devices.RenewLicense(r.Context(), deviceID, req.LicenseType)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	response.Success(w, device, s.logger)
}

// heartbeatRequest carries device credentials for a liveness ping.
type heartbeatRequest struct {
	DeviceID  string `json:"device_id"`
	AuthToken string `json:"auth_token"`
}

// handleHeartbeat records device liveness. Devices send JSON; a form
// body is accepted for older firmware.
// POST /api/v1/devices/heartbeat
func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.UnmarshalRead(r.Body, &req); err != nil {
			response.BadRequest(w, "Invalid request body", s.logger)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			response.BadRequest(w, "Invalid form body", s.logger)
			return
		}
		req.DeviceID = r.PostFormValue("device_id")
		req.AuthToken = r.PostFormValue("auth_token")
	}

	if req.DeviceID == "" || req.AuthToken == "" {
		response.BadRequest(w, "device_id and auth_token are required", s.logger)
		return
	}

	if !s.allowDevice(w, r, req.DeviceID) {
		return
	}

	result, err := s.devices.Heartbeat(r.Context(), req.DeviceID, req.AuthToken)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	body := map[string]any{
		"status":  "ok",
		"expired": result.Expired,
		"rotated": result.Rotated,
	}
	if result.Rotated {
		// The device must pick up its new token from the response
		body["new_token"] = result.Device.AuthToken
	}
	response.Success(w, body, s.logger)
}

// handleClaim authorizes a device via its QR claim link and plants the
// identity cookies the display endpoint reads back.
// GET /api/v1/claim?device_id=...&auth_token=...
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	authToken := r.URL.Query().Get("auth_token")

	if deviceID == "" || authToken == "" {
		response.BadRequest(w, "device_id and auth_token are required", s.logger)
		return
	}

	if !s.allowDevice(w, r, deviceID) {
		return
	}

	device, err := s.devices.Claim(r.Context(), deviceID, authToken)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	setDeviceCookies(w, device.ID, device.AuthToken)

	response.Success(w, map[string]string{
		"device_id":       device.ID,
		"name":            device.Name,
		"active_playlist": device.ActivePlaylist,
	}, s.logger)
}

// setDeviceCookies plants the long-lived device identity cookies.
func setDeviceCookies(w http.ResponseWriter, deviceID, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     DeviceIDCookie,
		Value:    deviceID,
		MaxAge:   deviceCookieMaxAge,
		Path:     "/",
		HttpOnly: true,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     DeviceTokenCookie,
		Value:    token,
		MaxAge:   deviceCookieMaxAge,
		Path:     "/",
		HttpOnly: true,
	})
}
