package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/conduitapi/conduit/internal/core"
	"github.com/mdobak/go-xerrors"
)

// authenticate resolves the caller's identity for downstream handlers. An
// absent, invalid, or expired token degrades to anonymous; protected routes
// then answer 401 through requireAuthenticatedUser. Only a malformed
// Authorization header is rejected outright.
func (app *application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Authorization")

		authorization := r.Header.Get("Authorization")
		if authorization == "" {
			next.ServeHTTP(w, r)
			return
		}

		authorizationParts := strings.Split(authorization, " ")
		if len(authorizationParts) != 2 || authorizationParts[0] != "Bearer" {
			app.invalidAuthenticationTokenResponse(w, r, xerrors.New("authorization header must be in the format 'Bearer <token>'"))
			return
		}

		token := authorizationParts[1]
		claim, err := app.auth.Authenticate(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		user, err := app.core.GetUserByEmail(r.Context(), claim.Email)
		if err != nil {
			if errors.Is(err, core.NoRecordFound) {
				next.ServeHTTP(w, r)
				return
			}
			app.internalErrorResponse(w, r, err)
			return
		}

		user.Token = token
		r = app.auth.SetAuthenticatedUser(r, user)

		next.ServeHTTP(w, r)
	})
}

func (app *application) requireAuthenticatedUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !app.auth.IsUserAuthenticated(r) {
			app.authenticationRequiredResponse(w, r, xerrors.New("authentication required"))
			return
		}
		next(w, r)
	}
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.internalErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
