package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
)

type roleRequest struct {
	Principal string `json:"principal"`
	Role      string `json:"role"`
}

type roleResponse struct {
	Principal string       `json:"principal"`
	Mask      custody.Role `json:"mask"`
	Roles     []string     `json:"roles"`
}

// grantRole handles POST /api/roles/grant.
func (h *handlers) grantRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, true)
}

// revokeRole handles POST /api/roles/revoke.
func (h *handlers) revokeRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, false)
}

func (h *handlers) changeRole(w http.ResponseWriter, r *http.Request, grant bool) {
	var req roleRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	// Input problems are reported only to the administrator.
	target, targetErr := custody.NormalizePrincipal(req.Principal)
	role, roleErr := custody.ParseRole(req.Role)
	if inputErr := errors.Join(targetErr, roleErr); inputErr != nil {
		if err := h.roles.RequireAdmin(caller(r)); err != nil {
			writeError(w, h.log, err)
			return
		}
		writeError(w, h.log, inputErr)
		return
	}

	var err error
	if grant {
		err = h.roles.Grant(r.Context(), caller(r), target, role)
	} else {
		err = h.roles.Revoke(r.Context(), caller(r), target, role)
	}
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.writeRoles(w, r, target)
}

// getRoles handles GET /api/roles/{principal}.
func (h *handlers) getRoles(w http.ResponseWriter, r *http.Request) {
	target, err := custody.NormalizePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	h.writeRoles(w, r, target)
}

func (h *handlers) writeRoles(w http.ResponseWriter, r *http.Request, target string) {
	mask, err := h.roles.Roles(r.Context(), target)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, roleResponse{Principal: target, Mask: mask, Roles: mask.Names()})
}

// listRoles handles GET /api/roles.
func (h *handlers) listRoles(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.roles.List(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, assignments)
}
