package http

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"petition/internal/domain"
	"petition/internal/service"
)

const maxAge = 150

var (
	registerValidatorsOnce sync.Once
	registerValidatorsErr  error
)

// registerValidators teaches gin's validator the notblank rule and makes
// validation errors report form field names. Forms tagged notblank cannot
// be bound when it fails.
func registerValidators() error {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerValidatorsErr = fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
			return
		}
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			registerValidatorsErr = fmt.Errorf("register notblank: %w", err)
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if name, _, _ := strings.Cut(fld.Tag.Get("form"), ","); name != "" && name != "-" {
				return name
			}
			return fld.Name
		})
	})
	return registerValidatorsErr
}

// formResult is the outcome of validating a submitted form: either valid
// fields or the names of the fields that failed.
type formResult[T any] struct {
	Fields  T
	Invalid []string
}

func (r formResult[T]) Valid() bool {
	return len(r.Invalid) == 0
}

// bindForm binds the request body into T and runs the struct tags, then the
// optional check for rules tags cannot express.
func bindForm[T any](c *gin.Context, check func(*T) []string) formResult[T] {
	var res formResult[T]
	if err := c.ShouldBindWith(&res.Fields, binding.Form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				res.Invalid = append(res.Invalid, fe.Field())
			}
		} else {
			res.Invalid = append(res.Invalid, "form")
		}
		return res
	}
	if check != nil {
		res.Invalid = check(&res.Fields)
	}
	return res
}

type registerForm struct {
	FirstName string `form:"firstname" binding:"notblank,max=100"`
	LastName  string `form:"lastname" binding:"notblank,max=100"`
	Email     string `form:"email" binding:"notblank,email,max=254"`
	Password  string `form:"password" binding:"required"`
}

// checkRegister enforces bcrypt's limit, which counts bytes rather than characters.
func checkRegister(f *registerForm) []string {
	if len(f.Password) > service.MaxPasswordBytes {
		return []string{"password"}
	}
	return nil
}

func (f registerForm) input() service.RegisterInput {
	return service.RegisterInput{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Email:     f.Email,
		Password:  f.Password,
	}
}

type loginForm struct {
	Email    string `form:"email" binding:"notblank"`
	Password string `form:"password"`
}

type profileForm struct {
	Age      string `form:"age" binding:"omitempty,number"`
	City     string `form:"city" binding:"max=100"`
	Homepage string `form:"homepage" binding:"max=2048"`
}

func checkProfile(f *profileForm) []string {
	var invalid []string
	f.Age = strings.TrimSpace(f.Age)
	if f.Age != "" {
		if n, err := strconv.Atoi(f.Age); err != nil || n > maxAge {
			invalid = append(invalid, "age")
		}
	}
	f.Homepage = strings.TrimSpace(f.Homepage)
	if f.Homepage != "" && !isHTTPURL(f.Homepage) {
		invalid = append(invalid, "homepage")
	}
	return invalid
}

// input assumes checkProfile passed.
func (f profileForm) input() service.ProfileInput {
	in := service.ProfileInput{City: f.City, Homepage: f.Homepage}
	if n, err := strconv.Atoi(f.Age); err == nil {
		in.Age = &n
	}
	return in
}

func profileFormFrom(p *domain.Profile) profileForm {
	f := profileForm{City: p.City, Homepage: p.Homepage}
	if p.Age != nil {
		f.Age = strconv.Itoa(*p.Age)
	}
	return f
}

type signForm struct {
	Signature string `form:"signature" binding:"notblank"`
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}
