// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ojin-app/keyguard/internal/logger"
	"github.com/ojin-app/keyguard/internal/service"
	"github.com/ojin-app/keyguard/internal/utils"
	"github.com/ojin-app/keyguard/models"
)

// call is the single RPC-style endpoint. The request body carries an action
// tag plus the fields that action needs; dispatch happens here and shape
// validation happens in the services, so every response travels in the same
// uniform wrapper.
func (h *Handler) call(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var req models.CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Err(err).Msg("Invalid JSON was passed")
		writeCallError(w, service.ErrMoreDataNeeded)
		return
	}

	answer, err := h.dispatch(ctx, req)
	if err != nil {
		log.Err(err).Str("action", string(req.Action)).Msg("call action failed")
		writeCallError(w, err)
		return
	}

	utils.WriteJSON(w, models.CallResponse{Code: http.StatusOK, Answer: answer}, http.StatusOK)
}

// dispatch routes one decoded call to its action handler. Actions that carry
// their own proof of identity (a recovery code, a verifier checked against
// the claimed account's escrow) run without a session; everything else
// requires the authenticated user ID placed in ctx by the auth middleware.
func (h *Handler) dispatch(ctx context.Context, req models.CallRequest) (any, error) {
	switch req.Action {
	case models.ActionCheckVersion:
		return models.VersionResponse{Version: h.version}, nil

	case models.ActionCheckUserExistence:
		return h.services.EscrowService.CheckUserExistence(ctx, req.Email)

	case models.ActionCheckRecoveryCode:
		return h.services.EscrowService.CheckRecoveryCode(ctx, req.Email, req.RecoveryCode)

	case models.ActionChangePassword:
		return h.services.EscrowService.ChangePassword(ctx, req.EncryptionKey, req.Email, req.Verifier, req.VerifierType, req.NewPassword)
	}

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrAuthorizationRequired
	}

	switch req.Action {
	case models.ActionInitUser:
		return h.services.EscrowService.InitUser(ctx, userID, req.HashedPassword)

	case models.ActionGenerateRecoveryCode:
		return h.services.EscrowService.GenerateRecoveryCode(ctx, userID, req.EncryptionKey)

	case models.ActionCreateContact:
		if req.Contact == nil {
			return nil, service.ErrMoreDataNeeded
		}
		contact := *req.Contact
		contact.UserID = userID
		enc := h.services.EscrowService.NewDataEncrypter(req.EncryptionKey)
		return h.services.ContactService.CreateContact(ctx, enc, contact)

	case models.ActionGetContact:
		enc := h.services.EscrowService.NewDataEncrypter(req.EncryptionKey)
		return h.services.ContactService.GetContact(ctx, enc, userID, req.ContactID)

	case models.ActionGetContacts:
		enc := h.services.EscrowService.NewDataEncrypter(req.EncryptionKey)
		return h.services.ContactService.GetContacts(ctx, enc, userID)

	case models.ActionUpdateContact:
		if req.Contact == nil {
			return nil, service.ErrMoreDataNeeded
		}
		update := models.ContactUpdate{
			ContactID: req.ContactID,
			UserID:    userID,
		}
		if req.Contact.Name != "" {
			update.Name = &req.Contact.Name
		}
		if req.Contact.Description != "" {
			update.Description = &req.Contact.Description
		}
		enc := h.services.EscrowService.NewDataEncrypter(req.EncryptionKey)
		if err := h.services.ContactService.UpdateContact(ctx, enc, update); err != nil {
			return nil, err
		}
		return nil, nil

	case models.ActionDeleteContact:
		if err := h.services.ContactService.DeleteContact(ctx, userID, req.ContactID); err != nil {
			return nil, err
		}
		return nil, nil

	default:
		return nil, ErrUnknownAction
	}
}

func writeCallError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	utils.WriteJSON(w, models.CallResponse{Code: status, Error: callError(err, status)}, status)
}
