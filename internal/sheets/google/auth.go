package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// clientOptions selects Sheets credentials. An OAuth user token is used when
// both GOOGLE_OAUTH_CLIENT_* and GOOGLE_OAUTH_TOKEN_* are set; otherwise
// service account credentials are required.
func clientOptions(ctx context.Context) ([]goption.ClientOption, error) {
	clientJSON, err := readEnvOrFile("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	if err != nil {
		return nil, err
	}
	if clientJSON != nil {
		tokenJSON, err := readEnvOrFile("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
		if err != nil {
			return nil, err
		}
		if tokenJSON == nil {
			return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
		}
		ts, err := oauthTokenSource(ctx, clientJSON, tokenJSON)
		if err != nil {
			return nil, err
		}
		slog.InfoContext(ctx, "Using OAuth user credentials for Google Sheets")
		return []goption.ClientOption{goption.WithTokenSource(ts)}, nil
	}

	creds, err := credentialsFromEnv(ctx)
	if err != nil {
		return nil, err
	}
	return []goption.ClientOption{
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, nil
}

// OAuthConfig parses an OAuth client secret for the spreadsheets scope.
func OAuthConfig(clientJSON []byte, redirectURL string) (*oauth2.Config, error) {
	cfg, err := googleoauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	return cfg, nil
}

func oauthTokenSource(ctx context.Context, clientJSON, tokenJSON []byte) (oauth2.TokenSource, error) {
	cfg, err := OAuthConfig(clientJSON, "")
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("oauth token has neither access nor refresh token")
	}
	return cfg.TokenSource(ctx, &tok), nil
}

// SaveToken writes tok as JSON readable by GOOGLE_OAUTH_TOKEN_FILE.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// readEnvOrFile returns the inline value of jsonKey, or the contents of the
// file named by fileKey. Both unset yields nil and no error.
func readEnvOrFile(jsonKey, fileKey string) ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv(jsonKey)); inline != "" {
		return []byte(inline), nil
	}
	path := strings.TrimSpace(os.Getenv(fileKey))
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileKey, err)
	}
	return data, nil
}
