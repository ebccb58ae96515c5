package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-dispatch/internal/audit"
	"github.com/nerrad567/gray-logic-dispatch/internal/device"
	"github.com/nerrad567/gray-logic-dispatch/internal/dispatch"
)

// maxDeviceLatency caps the simulated latency accepted over the API.
const maxDeviceLatency = time.Minute

type createDeviceRequest struct {
	Type      device.Type `json:"type"`
	Name      string      `json:"name,omitempty"`
	LatencyMS int         `json:"latency_ms,omitempty"`
}

type commandRequest struct {
	Kind    device.Kind    `json:"kind"`
	Payload device.Payload `json:"payload,omitempty"`
}

type commandResponse struct {
	DeviceID string       `json:"device_id"`
	Kind     device.Kind  `json:"kind"`
	State    device.State `json:"state"`
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	reg := s.dispatcher.Registry()
	devices := reg.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
		"stats":   reg.Stats(),
	})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	dev, err := s.dispatcher.Registry().Resolve(id)
	if err != nil {
		writeNotFound(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, device.Entry{
		ID:           id,
		Type:         dev.Type(),
		Capabilities: device.Kinds(dev.Capabilities()),
	})
}

func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	latency := time.Duration(req.LatencyMS) * time.Millisecond
	if latency < 0 || latency > maxDeviceLatency {
		writeBadRequest(w, "latency_ms must be between 0 and 60000")
		return
	}

	opts := []device.Option{device.WithLatency(latency)}
	if req.Name != "" {
		opts = append(opts, device.WithName(req.Name))
	}
	dev, err := device.New(req.Type, opts...)
	if err != nil {
		writeBadRequest(w, fmt.Sprintf("%v (valid types: %s)", err, validTypeList()))
		return
	}

	id, err := s.dispatcher.RegisterDevice(dev)
	switch {
	case errors.Is(err, device.ErrIdentitiesExhausted):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
		return
	case errors.Is(err, device.ErrIdentityCollision):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
		return
	case err != nil:
		writeInternalError(w, err.Error())
		return
	}

	s.recordAudit(r, audit.ActionRegister, audit.EntityDevice, id, dispatch.OutcomeOK, map[string]any{
		"type": dev.Type(),
		"name": req.Name,
	})
	writeJSON(w, http.StatusCreated, device.Entry{
		ID:           id,
		Type:         dev.Type(),
		Capabilities: device.Kinds(dev.Capabilities()),
	})
}

func (s *Server) handleSendCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	state, err := s.dispatcher.Send(r.Context(), dispatch.NewMessage(id, req.Kind, req.Payload))
	s.recordAudit(r, audit.ActionCommand, audit.EntityDevice, id, dispatch.Classify(err), map[string]any{
		"kind": req.Kind,
	})
	if err != nil {
		writeDispatchError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{DeviceID: id, Kind: req.Kind, State: state})
}

func validTypeList() string {
	types := device.ValidTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
