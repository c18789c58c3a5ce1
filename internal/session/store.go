package session

import (
	"errors"
	"net/http"
)

// CookieOptions configures the session cookie attributes.
type CookieOptions struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

// Store moves tokens between requests, responses, and the Codec.
type Store struct {
	codec *Codec
	opts  CookieOptions
}

func NewStore(codec *Codec, opts CookieOptions) *Store {
	if opts.Name == "" {
		opts.Name = "petition_session"
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.SameSite == 0 {
		opts.SameSite = http.SameSiteLaxMode
	}
	return &Store{codec: codec, opts: opts}
}

// CookieName is the name of the session cookie.
func (s *Store) CookieName() string {
	return s.opts.Name
}

// Load decodes the session carried by the request. When the cookie is absent
// or fails verification a fresh anonymous token is returned with fresh=true,
// along with the decode error (nil when the cookie was simply missing).
func (s *Store) Load(r *http.Request) (tok Token, fresh bool, err error) {
	cookie, err := r.Cookie(s.opts.Name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return New(), true, nil
		}
		return New(), true, err
	}

	tok, err = s.codec.Decode(cookie.Value)
	if err != nil {
		return New(), true, err
	}
	return tok, false, nil
}

// Save encodes tok and sets it on the response. It must run before the body is written.
func (s *Store) Save(w http.ResponseWriter, tok Token) error {
	value, err := s.codec.Encode(tok)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.Name,
		Value:    value,
		Path:     s.opts.Path,
		Domain:   s.opts.Domain,
		MaxAge:   int(s.codec.Lifetime().Seconds()),
		Secure:   s.opts.Secure,
		HttpOnly: true,
		SameSite: s.opts.SameSite,
	})
	return nil
}
