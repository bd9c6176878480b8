package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/mbolis/survey-relay/app"
	"github.com/mbolis/survey-relay/config"
	"github.com/mbolis/survey-relay/fields"
	"github.com/mbolis/survey-relay/log"
	"github.com/mbolis/survey-relay/relay"
	"github.com/mbolis/survey-relay/routes"
	"github.com/mbolis/survey-relay/sheet"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if cfg.SurveySchema != "" {
		err = checkSchema(cfg.SurveySchema, fields.Current)
		if err != nil {
			log.Fatal("main.survey_schema:", err)
		}
	}

	app := app.App{
		Relay:  relay.New(connector(cfg), cfg.Target()),
		Config: cfg,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func connector(cfg config.Config) sheet.Connector {
	if cfg.Backend == config.BackendWorkbook {
		return sheet.WorkbookConnector{
			Path:      cfg.WorkbookPath,
			SheetName: cfg.SheetName,
		}
	}
	return sheet.GoogleConnector{
		Email:         cfg.ServiceAccountEmail,
		PrivateKey:    cfg.PrivateKey,
		SpreadsheetID: cfg.SpreadsheetID,
		SheetName:     cfg.SheetName,
	}
}

// checkSchema warns about questions the column order and the survey
// definition disagree on.
func checkSchema(path string, order fields.Order) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	labels, err := fields.SchemaLabels(f)
	if err != nil {
		return err
	}

	missing, unmapped := order.Reconcile(labels)
	for _, label := range missing {
		log.Warnf("fields(%s): %q has no question in %s, its column stays empty", order.Version, label, path)
	}
	for _, label := range unmapped {
		log.Warnf("fields(%s): question %q is not mapped to a column and will be dropped", order.Version, label)
	}
	return nil
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Infof("Listening on %s (%s mode, %s backend)", cfg.Url(), cfg.Mode, cfg.Backend)
	return srv.ListenAndServe()
}
