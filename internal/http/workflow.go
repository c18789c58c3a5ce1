package http

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"petition/internal/service"
)

func (h *Handler) home(c *gin.Context) {
	h.render(c, http.StatusOK, "home.html", gin.H{"title": "Sign"})
}

func (h *Handler) showRegister(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", gin.H{
		"title": "Register",
		"form":  registerForm{},
	})
}

func (h *Handler) register(c *gin.Context) {
	res := bindForm(c, checkRegister)
	in := res.Fields.input()
	res.Fields.Password = ""
	data := gin.H{"title": "Register", "form": res.Fields}
	if !res.Valid() {
		msg := msgForm
		if slices.Contains(res.Invalid, "password") && in.Password != "" {
			msg = msgPassword
		}
		h.renderFormError(c, http.StatusBadRequest, "register.html", msg, data)
		return
	}

	ctx, cancel := h.queryContext(c)
	defer cancel()
	user, err := h.petition.Register(ctx, in)
	switch {
	case errors.Is(err, service.ErrPasswordTooLong):
		h.renderFormError(c, http.StatusBadRequest, "register.html", msgPassword, data)
		return
	case errors.Is(err, service.ErrEmailTaken):
		h.renderFormError(c, http.StatusConflict, "register.html", "That email is already registered.", data)
		return
	case err != nil:
		h.collaboratorFailure(c, err)
		h.renderFormError(c, http.StatusInternalServerError, "register.html", msgGeneric, data)
		return
	}

	if !h.commit(c, sessionFrom(c).WithUser(user.ID, user.FirstName, false)) {
		return
	}
	c.Redirect(http.StatusFound, "/profile")
}

func (h *Handler) showLogin(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", gin.H{
		"title": "Log in",
		"form":  loginForm{},
	})
}

func (h *Handler) login(c *gin.Context) {
	res := bindForm[loginForm](c, nil)
	password := res.Fields.Password
	res.Fields.Password = ""
	data := gin.H{"title": "Log in", "form": res.Fields}
	if !res.Valid() {
		h.renderFormError(c, http.StatusBadRequest, "login.html", msgCredentials, data)
		return
	}

	ctx, cancel := h.queryContext(c)
	defer cancel()
	user, err := h.petition.Authenticate(ctx, res.Fields.Email, password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		h.renderFormError(c, http.StatusUnauthorized, "login.html", msgCredentials, data)
		return
	case err != nil:
		h.collaboratorFailure(c, err)
		h.renderFormError(c, http.StatusInternalServerError, "login.html", msgGeneric, data)
		return
	}

	signed, err := h.petition.HasSigned(ctx, user.ID)
	if err != nil {
		h.collaboratorFailure(c, err)
		h.renderFormError(c, http.StatusInternalServerError, "login.html", msgGeneric, data)
		return
	}

	if !h.commit(c, sessionFrom(c).WithUser(user.ID, user.FirstName, signed)) {
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) showProfile(c *gin.Context) {
	ctx, cancel := h.queryContext(c)
	defer cancel()

	profile, err := h.petition.ProfileFor(ctx, sessionFrom(c).UserID)
	if err != nil {
		h.collaboratorFailure(c, err)
		h.renderError(c, http.StatusInternalServerError, msgGeneric)
		return
	}
	h.render(c, http.StatusOK, "profile.html", gin.H{
		"title": "Profile",
		"form":  profileFormFrom(profile),
	})
}

func (h *Handler) saveProfile(c *gin.Context) {
	res := bindForm(c, checkProfile)
	data := gin.H{"title": "Profile", "form": res.Fields}
	if !res.Valid() {
		msg := msgForm
		for _, f := range res.Invalid {
			if f == "homepage" {
				msg = "Your homepage must be an http or https address."
			}
		}
		h.renderFormError(c, http.StatusBadRequest, "profile.html", msg, data)
		return
	}

	ctx, cancel := h.queryContext(c)
	defer cancel()
	if err := h.petition.SaveProfile(ctx, sessionFrom(c).UserID, res.Fields.input()); err != nil {
		h.collaboratorFailure(c, err)
		h.renderFormError(c, http.StatusInternalServerError, "profile.html", msgGeneric, data)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// signDenied answers a signature attempt from a visitor who is not logged in.
func (h *Handler) signDenied(c *gin.Context) {
	h.renderFormError(c, http.StatusUnauthorized, "home.html", "Please register or log in before signing.", gin.H{"title": "Sign"})
}

func (h *Handler) sign(c *gin.Context) {
	res := bindForm[signForm](c, nil)
	data := gin.H{"title": "Sign"}
	if !res.Valid() {
		h.renderFormError(c, http.StatusBadRequest, "home.html", "Please enter your signature.", data)
		return
	}

	tok := sessionFrom(c)
	ctx, cancel := h.queryContext(c)
	defer cancel()
	_, err := h.petition.Sign(ctx, tok.UserID, res.Fields.Signature)
	if err != nil && !errors.Is(err, service.ErrAlreadySigned) {
		h.collaboratorFailure(c, err)
		h.renderFormError(c, http.StatusInternalServerError, "home.html", msgGeneric, data)
		return
	}

	if !h.commit(c, tok.WithSigned()) {
		return
	}
	c.Redirect(http.StatusFound, "/thank-you")
}

func (h *Handler) thanks(c *gin.Context) {
	tok := sessionFrom(c)
	ctx, cancel := h.queryContext(c)
	defer cancel()

	sig, err := h.petition.SignatureFor(ctx, tok.UserID)
	if err != nil {
		if errors.Is(err, service.ErrNotSigned) {
			// The cookie claims a signature the directory does not have.
			if h.commit(c, tok.WithoutSigned()) {
				c.Redirect(http.StatusFound, "/")
			}
			return
		}
		h.collaboratorFailure(c, err)
		h.renderError(c, http.StatusInternalServerError, msgGeneric)
		return
	}

	count, err := h.petition.CountSignatures(ctx)
	if err != nil {
		h.collaboratorFailure(c, err)
		h.renderError(c, http.StatusInternalServerError, msgGeneric)
		return
	}

	h.render(c, http.StatusOK, "thank.html", gin.H{
		"title":     "Thank you",
		"signature": sig.Text,
		"count":     count,
	})
}

func (h *Handler) signers(c *gin.Context) {
	city := strings.TrimSpace(c.Param("city"))
	ctx, cancel := h.queryContext(c)
	defer cancel()

	signers, err := h.petition.ListSigners(ctx, city)
	if err != nil {
		h.collaboratorFailure(c, err)
		h.renderError(c, http.StatusInternalServerError, msgGeneric)
		return
	}
	h.render(c, http.StatusOK, "signers.html", gin.H{
		"title":   "Signers",
		"city":    city,
		"signers": signers,
	})
}

func (h *Handler) logout(c *gin.Context) {
	if !h.commit(c, sessionFrom(c).Cleared()) {
		return
	}
	c.Redirect(http.StatusFound, "/login")
}
