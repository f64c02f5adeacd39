package httpapi

import (
	"net/http"
	"time"

	"verisyntra.org/internal/auth"
	"verisyntra.org/internal/obs"
)

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	TenantID     string    `json:"tenant_id"`
	Role         string    `json:"role"`
}

// IssueToken exchanges credentials for an access/refresh token pair.
func (a *API) IssueToken(w http.ResponseWriter, r *http.Request) {
	if a.users == nil || a.tokens == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable",
			"authentication is not configured", "Xác thực chưa được cấu hình")
		return
	}
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	user, err := a.users.Authenticate(req.Username, req.Password)
	if err != nil {
		obs.Warn("login failed", map[string]any{"username": req.Username})
		writeError(w, http.StatusUnauthorized, "unauthorized",
			"invalid credentials", "Tên đăng nhập hoặc mật khẩu không đúng")
		return
	}
	access, expires, err := a.tokens.Issue(user.ID, user.TenantID, user.Role, auth.TokenAccess)
	if err != nil {
		fail(w, err)
		return
	}
	refresh, _, err := a.tokens.Issue(user.ID, user.TenantID, user.Role, auth.TokenRefresh)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresAt:    expires,
		TenantID:     user.TenantID,
		Role:         user.Role,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken exchanges a valid refresh token for a new access token.
func (a *API) RefreshToken(w http.ResponseWriter, r *http.Request) {
	if a.tokens == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable",
			"authentication is not configured", "Xác thực chưa được cấu hình")
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	claims, err := a.tokens.Verify(req.RefreshToken, auth.TokenRefresh)
	if err != nil {
		fail(w, err)
		return
	}
	if a.blacklist != nil && a.blacklist.IsBlacklisted(r.Context(), req.RefreshToken) {
		unauthorized(w, "token revoked")
		return
	}
	access, expires, err := a.tokens.Issue(claims.Subject, claims.TenantID, claims.Role, auth.TokenAccess)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresAt:   expires,
		TenantID:    claims.TenantID,
		Role:        claims.Role,
	})
}

type revokeRequest struct {
	Token string `json:"token,omitempty"`
}

// RevokeToken blacklists a token until its natural expiry. With an empty
// body the caller's own bearer token is revoked.
func (a *API) RevokeToken(w http.ResponseWriter, r *http.Request) {
	if a.tokens == nil || a.blacklist == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable",
			"revocation is not configured", "Thu hồi token chưa được cấu hình")
		return
	}
	var req revokeRequest
	if err := decodeJSON(w, r, &req); err != nil && req.Token == "" {
		if p, ok := principalFrom(r.Context()); ok {
			req.Token = p.Token
		}
	}
	if req.Token == "" {
		badRequest(w, "no token to revoke")
		return
	}

	// Accept either token type; a revoked refresh token must also die.
	claims, err := a.tokens.Verify(req.Token, auth.TokenAccess)
	if err != nil {
		claims, err = a.tokens.Verify(req.Token, auth.TokenRefresh)
	}
	if err != nil {
		fail(w, err)
		return
	}
	if err := a.blacklist.Revoke(r.Context(), req.Token, a.tokens.Remaining(claims)); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable",
			"revocation store unavailable", "Kho thu hồi token không khả dụng")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revoked": true})
}
