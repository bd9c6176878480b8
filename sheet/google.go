package sheet

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// GoogleConnector signs in with a service account and opens one tab of a
// Google spreadsheet.
type GoogleConnector struct {
	Email         string
	PrivateKey    string
	SpreadsheetID string
	SheetName     string

	// TokenURL defaults to google.JWTTokenURL.
	TokenURL string
	// Options are passed to sheets.NewService after the token source.
	Options []option.ClientOption
}

func (c GoogleConnector) Connect(ctx context.Context) (Sheet, error) {
	tokenURL := c.TokenURL
	if tokenURL == "" {
		tokenURL = google.JWTTokenURL
	}
	conf := &jwt.Config{
		Email:      c.Email,
		PrivateKey: []byte(c.PrivateKey),
		Scopes:     []string{sheets.SpreadsheetsScope},
		TokenURL:   tokenURL,
	}

	// fetch the token now so a bad key fails here and not on the first read
	ts := conf.TokenSource(ctx)
	_, err := ts.Token()
	if err != nil {
		return nil, errors.Wrap(err, "sheet.google.authorize")
	}

	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, c.Options...)
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "sheet.google.service")
	}

	return NewGoogleSheet(svc, c.SpreadsheetID, c.SheetName), nil
}

type GoogleSheet struct {
	svc           *sheets.Service
	spreadsheetID string
	name          string
}

func NewGoogleSheet(svc *sheets.Service, spreadsheetID, name string) *GoogleSheet {
	return &GoogleSheet{svc, spreadsheetID, name}
}

func (s *GoogleSheet) Extent(ctx context.Context) (int, error) {
	resp, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetID, s.name+"!A:A").
		Context(ctx).
		Do()
	if err != nil {
		return 0, errors.Wrap(err, "sheet.google.read_column")
	}
	return len(resp.Values), nil
}

func (s *GoogleSheet) WriteRow(ctx context.Context, row int, cells []any) error {
	values := &sheets.ValueRange{Values: [][]any{cells}}
	_, err := s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, fmt.Sprintf("%s!A%d", s.name, row), values).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return errors.Wrapf(err, "sheet.google.write_row(%d)", row)
	}
	return nil
}

func (*GoogleSheet) Close() error {
	return nil
}
