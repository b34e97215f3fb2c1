package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/redskie/bamaco/internal/api/response"
	"github.com/redskie/bamaco/internal/model"
)

func pathFriendCode(r *http.Request) model.FriendCode {
	return model.NormalizeFriendCode(mux.Vars(r)["friendCode"])
}

// GetIdentity handles GET /api/v1/identities/{friendCode}
func (h *Handler) GetIdentity(w http.ResponseWriter, r *http.Request) {
	identity, err := h.store.GetIdentity(r.Context(), pathFriendCode(r))
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, identity)
}

// HeadIdentity handles HEAD /api/v1/identities/{friendCode}
func (h *Handler) HeadIdentity(w http.ResponseWriter, r *http.Request) {
	ok, err := h.store.IdentityExists(r.Context(), pathFriendCode(r))
	switch {
	case err != nil:
		WriteError(w, err)
	case !ok:
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// CreateIdentity handles POST /api/v1/identities. It never overwrites: an
// existing friend code answers 409.
func (h *Handler) CreateIdentity(w http.ResponseWriter, r *http.Request) {
	var identity model.Identity
	if err := decode(w, r, &identity); err != nil {
		WriteError(w, err)
		return
	}
	identity.FriendCode = model.NormalizeFriendCode(string(identity.FriendCode))
	if err := identity.FriendCode.Validate(); err != nil {
		WriteError(w, err)
		return
	}

	if err := h.store.CreateIdentity(r.Context(), &identity); err != nil {
		WriteError(w, err)
		return
	}
	h.publish(model.CollectionIdentities, string(identity.FriendCode), model.OpCreated)
	response.JSON(w, http.StatusCreated, &identity)
}

// PatchIdentity handles PATCH /api/v1/identities/{friendCode}. Only the
// fields present in the body are written; there is no full-record PUT so the
// edit key and creation time can never be replaced.
func (h *Handler) PatchIdentity(w http.ResponseWriter, r *http.Request) {
	var patch model.IdentityPatch
	if err := decode(w, r, &patch); err != nil {
		WriteError(w, err)
		return
	}

	fc := pathFriendCode(r)
	identity, err := h.store.UpdateIdentity(r.Context(), fc, patch)
	if err != nil {
		WriteError(w, err)
		return
	}
	h.publish(model.CollectionIdentities, string(fc), model.OpUpdated)
	response.JSON(w, http.StatusOK, identity)
}

// DeleteIdentity handles DELETE /api/v1/identities/{friendCode}
func (h *Handler) DeleteIdentity(w http.ResponseWriter, r *http.Request) {
	fc := pathFriendCode(r)
	if err := h.store.DeleteIdentity(r.Context(), fc); err != nil {
		WriteError(w, err)
		return
	}
	h.publish(model.CollectionIdentities, string(fc), model.OpDeleted)
	response.NoContent(w)
}

// ListIdentities handles GET /api/v1/identities
func (h *Handler) ListIdentities(w http.ResponseWriter, r *http.Request) {
	listAll(w, r, h.store.ListIdentities)
}
