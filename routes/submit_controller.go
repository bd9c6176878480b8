package routes

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/mbolis/survey-relay/app"
	"github.com/mbolis/survey-relay/httpx"
	"github.com/mbolis/survey-relay/log"
	"github.com/mbolis/survey-relay/model"
	"github.com/mbolis/survey-relay/relay"
)

const maxSubmissionBytes = 1 << 20

func SubmitSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info("survey.received:", time.Now().UTC().Format(relay.TimestampFormat))

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSubmissionBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httpx.LogStatus(w, r, http.StatusRequestEntityTooLarge, log.DebugLevel, "request.body_too_large", "survey data too large")
				return
			}
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.read_body", "malformed survey data")
			return
		}
		if len(bytes.TrimSpace(body)) == 0 {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.empty_body", relay.ErrEmptySubmission.Error())
			return
		}

		answers := model.Answers{}
		err = render.DecodeJSON(bytes.NewReader(body), &answers)
		if err != nil {
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.parse_body", "malformed survey data")
			return
		}

		_, err = app.Submit(r.Context(), answers)
		switch {
		case errors.Is(err, relay.ErrEmptySubmission):
			httpx.LogStatus(w, r, http.StatusBadRequest, log.DebugLevel, "request.empty_answers", relay.ErrEmptySubmission.Error())
			return
		case err != nil:
			httpx.LogInternalError(w, r, "relay.submit", err, !app.Production())
			return
		}

		httpx.OK(w, r, "saved")
	}
}
