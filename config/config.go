package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendGoogle   = "google"
	BackendWorkbook = "workbook"

	ModeProduction = "production"
)

type Config struct {
	Addr  string
	Mode  string
	Debug bool

	Backend             string
	ServiceAccountEmail string
	PrivateKey          string
	SpreadsheetID       string
	SheetName           string
	WorkbookPath        string

	PublicDir    string
	SurveySchema string
}

// ParseFlags loads an optional .env file, then reads the environment and the
// command line. Flags win over environment variables.
func ParseFlags() (Config, error) {
	err := LoadEnv()
	if err != nil {
		return Config{}, err
	}
	return Parse(flag.CommandLine, os.Args[1:], os.Getenv)
}

// LoadEnv copies .env files (default ./.env) into the environment without
// overriding variables already set. Missing files are fine, malformed ones
// are not.
func LoadEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func Parse(fs *flag.FlagSet, args []string, getenv func(string) string) (cfg Config, err error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	defaultPort, err := strconv.ParseUint(env("PORT", "3000"), 10, 16)
	if err != nil {
		return cfg, errors.New("invalid PORT: " + getenv("PORT"))
	}

	var host string
	fs.StringVar(&host, "host", env("HOST", "0.0.0.0"), "listen host name")
	var port uint
	fs.UintVar(&port, "port", uint(defaultPort), "listen port number")
	// NODE_ENV is what deployments of the previous relay set
	fs.StringVar(&cfg.Mode, "mode", env("APP_ENV", env("NODE_ENV", "development")), "runtime mode; 'production' hides error details")
	fs.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	fs.StringVar(&cfg.Backend, "backend", env("SHEET_BACKEND", BackendGoogle), "spreadsheet backend: google or workbook")
	fs.StringVar(&cfg.SpreadsheetID, "spreadsheet-id", env("SPREADSHEET_ID", ""), "target Google spreadsheet id")
	fs.StringVar(&cfg.SheetName, "sheet", env("SHEET_NAME", "Sheet1"), "sheet (tab) receiving the rows")
	fs.StringVar(&cfg.WorkbookPath, "workbook", env("WORKBOOK_PATH", "responses.xlsx"), "path to the local .xlsx file (workbook backend)")
	fs.StringVar(&cfg.PublicDir, "public", env("PUBLIC_DIR", "public"), "directory holding the survey page")
	fs.StringVar(&cfg.SurveySchema, "survey-schema", env("SURVEY_SCHEMA", ""), "survey definition checked against the column order at startup")
	err = fs.Parse(args)
	if err != nil {
		return cfg, err
	}

	// credentials never come from flags, they would leak through ps
	cfg.ServiceAccountEmail = env("GOOGLE_SERVICE_ACCOUNT_EMAIL", "")
	cfg.PrivateKey = strings.ReplaceAll(getenv("GOOGLE_PRIVATE_KEY"), `\n`, "\n")

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))

	switch cfg.Backend {
	case BackendGoogle:
		switch {
		case cfg.ServiceAccountEmail == "":
			err = errors.New("missing GOOGLE_SERVICE_ACCOUNT_EMAIL")
		case cfg.PrivateKey == "":
			err = errors.New("missing GOOGLE_PRIVATE_KEY")
		case cfg.SpreadsheetID == "":
			err = errors.New("missing parameter -spreadsheet-id")
		}
	case BackendWorkbook:
		if cfg.WorkbookPath == "" {
			err = errors.New("missing parameter -workbook")
		}
	default:
		err = errors.New("unknown backend " + cfg.Backend)
	}

	return
}

func (cfg Config) Production() bool {
	return cfg.Mode == ModeProduction
}

// Target names the spreadsheet rows are written to.
func (cfg Config) Target() string {
	if cfg.Backend == BackendWorkbook {
		return cfg.WorkbookPath + "#" + cfg.SheetName
	}
	return cfg.SpreadsheetID + "#" + cfg.SheetName
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
