// controllers/passkey_controller.go
package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"Gin_postgres_redis_inventory/app"
	"Gin_postgres_redis_inventory/logger"
	"Gin_postgres_redis_inventory/models"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// waUser 适配 webauthn.User；userHandle 就是邮箱
type waUser struct {
	user  models.User
	creds []webauthn.Credential
}

func (u *waUser) WebAuthnID() []byte                         { return []byte(u.user.Email) }
func (u *waUser) WebAuthnName() string                       { return u.user.Email }
func (u *waUser) WebAuthnDisplayName() string                { return u.user.Name }
func (u *waUser) WebAuthnCredentials() []webauthn.Credential { return u.creds }

func toWaCred(c models.Credential) webauthn.Credential {
	return webauthn.Credential{
		ID:              c.CredentialID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Authenticator: webauthn.Authenticator{
			AAGUID:       c.AAGUID,
			SignCount:    c.SignCount,
			CloneWarning: c.CloneWarning,
		},
		Flags: webauthn.CredentialFlags{
			BackupEligible: c.BackupEligible,
			BackupState:    c.BackupState,
		},
	}
}

// remoteOnly 凭据不进本地镜像，数据库出错即不可用
func remoteOnly(err error) error {
	if err == nil || errors.Is(err, models.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrUnavailable, err)
}

func (s *Srv) loadWAUser(ctx context.Context, email string) (*waUser, error) {
	u, err := s.Store.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, models.ErrNotFound
	}
	cs, err := s.Repo.LoadUserCredentials(ctx, u.Email)
	if err != nil {
		return nil, remoteOnly(err)
	}
	return &waUser{user: *u, creds: lo.Map(cs, func(c models.Credential, _ int) webauthn.Credential { return toWaCred(c) })}, nil
}

// ===== 添加 Passkey（已登录） =====

// POST /api/passkeys/register/begin
func (s *Srv) BeginAddCredential(c *gin.Context) {
	ctx, cancel := s.reqCtx(c)
	defer cancel()

	wUser, err := s.loadWAUser(ctx, app.CurrentEmail(c))
	if err != nil {
		fail(c, err)
		return
	}
	exclude := lo.Map(wUser.creds, func(cr webauthn.Credential, _ int) protocol.CredentialDescriptor { return cr.Descriptor() })

	opts, sd, err := s.WA.BeginRegistration(
		wUser,
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			UserVerification: protocol.VerificationRequired,
		}),
		webauthn.WithExclusions(exclude),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": err.Error()})
		return
	}
	if err := s.Ceremonies.SaveReg(ctx, wUser.user.Email, sd); err != nil {
		c.JSON(http.StatusServiceUnavailable, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, app.H{"opts": opts})
}

// POST /api/passkeys/register/finish
func (s *Srv) FinishAddCredential(c *gin.Context) {
	ctx, cancel := s.reqCtx(c)
	defer cancel()

	wUser, err := s.loadWAUser(ctx, app.CurrentEmail(c))
	if err != nil {
		fail(c, err)
		return
	}
	sd, err := s.Ceremonies.LoadReg(ctx, wUser.user.Email)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "session expired or invalid"})
		return
	}

	cred, err := s.WA.FinishRegistration(wUser, *sd, c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}
	if err := s.Repo.AddCredential(ctx, &models.Credential{
		UserEmail:       wUser.user.Email,
		CredentialID:    cred.ID,
		PublicKey:       cred.PublicKey,
		AttestationType: cred.AttestationType,
		AAGUID:          cred.Authenticator.AAGUID,
		SignCount:       cred.Authenticator.SignCount,
		CloneWarning:    cred.Authenticator.CloneWarning,
		BackupEligible:  cred.Flags.BackupEligible,
		BackupState:     cred.Flags.BackupState,
	}); err != nil {
		fail(c, remoteOnly(err))
		return
	}
	s.Ceremonies.DelReg(ctx, wUser.user.Email)
	logger.Info(ctx, "passkey registered", logger.String("user", wUser.user.Email))
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// ===== Passkey 登录 =====

type loginBeginReq struct {
	Email        string `json:"email"`
	Discoverable bool   `json:"discoverable"`
}

const errNoPasskey = "no passkey registered for this account"

type loginBeginResp struct {
	Options   *protocol.CredentialAssertion `json:"options"`
	SessionID string                        `json:"sessionId"`
}

// POST /api/auth/passkey/login/begin
func (s *Srv) BeginLogin(c *gin.Context) {
	var req loginBeginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "bad request"})
		return
	}
	if !req.Discoverable && req.Email == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "email is required"})
		return
	}
	ctx, cancel := s.reqCtx(c)
	defer cancel()

	var (
		opts *protocol.CredentialAssertion
		sd   *webauthn.SessionData
		err  error
	)
	if req.Discoverable {
		opts, sd, err = s.WA.BeginDiscoverableLogin(webauthn.WithUserVerification(protocol.VerificationRequired))
	} else {
		// 未知邮箱和没有凭据的账号回同样的 400，不暴露邮箱是否注册
		wUser, err2 := s.loadWAUser(ctx, req.Email)
		if errors.Is(err2, models.ErrNotFound) || (err2 == nil && len(wUser.creds) == 0) {
			c.JSON(http.StatusBadRequest, app.H{"error": errNoPasskey})
			return
		}
		if err2 != nil {
			fail(c, err2)
			return
		}
		opts, sd, err = s.WA.BeginLogin(wUser, webauthn.WithUserVerification(protocol.VerificationRequired))
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error()})
		return
	}

	sid := uuid.NewString()
	if err := s.Ceremonies.SaveAuth(ctx, sid, sd); err != nil {
		c.JSON(http.StatusServiceUnavailable, app.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, loginBeginResp{Options: opts, SessionID: sid})
}

// POST /api/auth/passkey/login/finish?sessionId=...[&email=...]
func (s *Srv) FinishLogin(c *gin.Context) {
	sid := c.Query("sessionId")
	if sid == "" {
		c.JSON(http.StatusBadRequest, app.H{"error": "missing sessionId"})
		return
	}
	ctx, cancel := s.reqCtx(c)
	defer cancel()

	sd, err := s.Ceremonies.LoadAuth(ctx, sid)
	if err != nil {
		c.JSON(http.StatusBadRequest, app.H{"error": "session expired or invalid"})
		return
	}

	var (
		wUser *waUser
		cred  *webauthn.Credential
	)
	if email := c.Query("email"); email != "" {
		if wUser, err = s.loadWAUser(ctx, email); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				c.JSON(http.StatusUnauthorized, app.H{"error": "passkey login failed"})
				return
			}
			fail(c, err)
			return
		}
		cred, err = s.WA.FinishLogin(wUser, *sd, c.Request)
	} else {
		handler := func(rawID, _ []byte) (webauthn.User, error) {
			stored, err := s.Repo.FindCredential(ctx, rawID)
			if err != nil {
				return nil, protocol.ErrBadRequest.WithDetails("credential not found")
			}
			w, err := s.loadWAUser(ctx, stored.UserEmail)
			if err != nil {
				return nil, err
			}
			return w, nil
		}
		var user webauthn.User
		user, cred, err = s.WA.FinishPasskeyLogin(handler, *sd, c.Request)
		if err == nil {
			wUser = user.(*waUser)
		}
	}
	if err != nil {
		c.JSON(http.StatusUnauthorized, app.H{"error": err.Error()})
		return
	}
	s.Ceremonies.DelAuth(ctx, sid)

	if err := s.Repo.TouchCredential(ctx, cred.ID, cred.Authenticator.SignCount, cred.Authenticator.CloneWarning); err != nil {
		logger.Warn(ctx, "touch credential failed", logger.ErrorF(err))
	}
	if err := s.issueSession(ctx, c.Writer, wUser.user.Email); err != nil {
		c.JSON(http.StatusInternalServerError, app.H{"error": "create app session failed"})
		return
	}
	c.JSON(http.StatusOK, s.userView(&wUser.user))
}
