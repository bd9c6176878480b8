package httpx

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/mbolis/survey-relay/log"
	"github.com/mbolis/survey-relay/model"
)

// Will log an error, and send an HTTP response with status 500 and a failure
// body. The error text is only sent back when detail is true.
func LogInternalError(w http.ResponseWriter, r *http.Request, code string, err error, detail bool) {
	log.Errorf("%s: %s", code, err)

	result := model.Result{Success: false, Message: "processing error"}
	if detail {
		result.Error = err.Error()
	}
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, result)
}

// Will log an error code at the given level, and send
// an HTTP response with status and a failure body carrying msg
func LogStatus(w http.ResponseWriter, r *http.Request, status int, level log.Level, code string, msg string) {
	log.Log(level, code+":", msg)
	render.Status(r, status)
	render.JSON(w, r, model.Result{Success: false, Message: msg})
}

// Will send an HTTP response with status 200 and a success body
func OK(w http.ResponseWriter, r *http.Request, msg string) {
	render.JSON(w, r, model.Result{Success: true, Message: msg})
}
