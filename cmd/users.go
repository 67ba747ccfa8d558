package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/conduitapi/conduit/internal/auth"
	"github.com/conduitapi/conduit/internal/core"
	"github.com/conduitapi/conduit/internal/validator"
)

const minUsernameLength = 5
const minPasswordLength = 8

func checkEmail(v *validator.Validator, email string) {
	v.CheckNotBlank(email, "email", "must be provided")
	v.CheckEmail(email, "must be a valid email address")
}

func userResponse(user *auth.User, token string) envelope {
	user.Token = token
	return envelope{"user": user}
}

func (app *application) registerUser(w http.ResponseWriter, r *http.Request) {
	type registerUserPayload struct {
		Username string  `json:"username"`
		Email    string  `json:"email"`
		Password string  `json:"password"`
		Bio      *string `json:"bio"`
		Image    *string `json:"image"`
	}

	type RegisterUserRequest struct {
		registerUserPayload `json:"user"`
	}

	var registerUserRequest RegisterUserRequest

	if err := app.readJSON(w, r, &registerUserRequest); err != nil {
		app.badRequestResponse(w, r, &AppError{
			ErrorMessage: err.Error(),
			ErrorStack:   err,
		})
		return
	}

	user := &auth.User{
		Email:             strings.TrimSpace(registerUserRequest.Email),
		Username:          strings.TrimSpace(registerUserRequest.Username),
		Bio:               registerUserRequest.Bio,
		Image:             registerUserRequest.Image,
		PlaintextPassword: registerUserRequest.Password,
	}

	v := validator.New()
	checkEmail(v, user.Email)

	v.CheckNotBlank(user.Username, "username", "must be provided")
	v.Check(len(user.Username) >= minUsernameLength, "username", "must be at least 5 characters long")

	v.CheckNotBlank(user.PlaintextPassword, "password", "must be provided")
	v.Check(len(user.PlaintextPassword) >= minPasswordLength, "password", "must be at least 8 characters long")

	if !v.IsValid() {
		app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		return
	}

	if err := user.SetPassword(user.PlaintextPassword); err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.core.CreateUser(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, core.ErrDuplicateEmail):
			v.AddError("email", "Email address is already in use")
			app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		case errors.Is(err, core.ErrDuplicateUsername):
			v.AddError("username", "Username is already in use")
			app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		default:
			app.internalErrorResponse(w, r, err)
		}
		return
	}

	token, err := app.auth.GenerateToken(user)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusCreated, userResponse(user, token), nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) login(w http.ResponseWriter, r *http.Request) {
	type loginUserPayload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	type LoginUserRequest struct {
		loginUserPayload `json:"user"`
	}

	var loginUserRequest LoginUserRequest

	if err := app.readJSON(w, r, &loginUserRequest); err != nil {
		app.badRequestResponse(w, r, &AppError{
			ErrorMessage: err.Error(),
			ErrorStack:   err,
		})
		return
	}

	v := validator.New()
	checkEmail(v, loginUserRequest.Email)
	v.CheckNotBlank(loginUserRequest.Password, "password", "must be provided")

	if !v.IsValid() {
		app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		return
	}

	user, err := app.core.GetUserByEmail(r.Context(), loginUserRequest.Email)
	if err != nil {
		if errors.Is(err, core.NoRecordFound) {
			app.invalidCredentialsResponse(w, r, err)
			return
		}
		app.internalErrorResponse(w, r, err)
		return
	}

	match, err := user.IsPasswordMatch(loginUserRequest.Password)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}
	if !match {
		app.invalidCredentialsResponse(w, r, nil)
		return
	}

	token, err := app.auth.GenerateToken(user)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, userResponse(user, token), nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) getCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, userResponse(user, user.Token), nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) updateCurrentUser(w http.ResponseWriter, r *http.Request) {
	type updateUserPayload struct {
		Username *string `json:"username"`
		Email    *string `json:"email"`
		Password *string `json:"password"`
		Bio      *string `json:"bio"`
		Image    *string `json:"image"`
	}

	type UpdateUserRequest struct {
		updateUserPayload `json:"user"`
	}

	var updateUserRequest UpdateUserRequest

	if err := app.readJSON(w, r, &updateUserRequest); err != nil {
		app.badRequestResponse(w, r, &AppError{
			ErrorMessage: err.Error(),
			ErrorStack:   err,
		})
		return
	}

	user, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	v := validator.New()

	if updateUserRequest.Username != nil {
		user.Username = strings.TrimSpace(*updateUserRequest.Username)
		v.CheckNotBlank(user.Username, "username", "must be provided")
		v.Check(len(user.Username) >= minUsernameLength, "username", "must be at least 5 characters long")
	}
	if updateUserRequest.Email != nil {
		user.Email = strings.TrimSpace(*updateUserRequest.Email)
		checkEmail(v, user.Email)
	}
	if updateUserRequest.Bio != nil {
		user.Bio = updateUserRequest.Bio
	}
	if updateUserRequest.Image != nil {
		user.Image = updateUserRequest.Image
	}

	if updateUserRequest.Password != nil {
		v.CheckNotBlank(*updateUserRequest.Password, "password", "must be provided")
		v.Check(len(*updateUserRequest.Password) >= minPasswordLength, "password", "must be at least 8 characters long")
	}

	if !v.IsValid() {
		app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		return
	}

	if updateUserRequest.Password != nil {
		if err := user.SetPassword(*updateUserRequest.Password); err != nil {
			app.internalErrorResponse(w, r, err)
			return
		}
	}

	updatedUser, err := app.core.UpdateUser(r.Context(), user)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrDuplicateEmail):
			v.AddError("email", "Email address is already in use")
			app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		case errors.Is(err, core.ErrDuplicateUsername):
			v.AddError("username", "Username is already in use")
			app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		default:
			app.internalErrorResponse(w, r, err)
		}
		return
	}

	if err := app.writeJSON(w, http.StatusOK, userResponse(updatedUser, user.Token), nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}
