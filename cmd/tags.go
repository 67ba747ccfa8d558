package main

import "net/http"

func (app *application) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := app.core.ListTags(r.Context())
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if tags == nil {
		tags = []string{}
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"tags": tags}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}
