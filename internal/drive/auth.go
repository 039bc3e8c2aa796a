package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// AuthOptions builds Drive API client options from a credentials file.
//
// With tokenFile empty, credentialsFile must be a service-account key and
// is used directly. Otherwise credentialsFile is an OAuth client secret
// and tokenFile a previously issued token; the token source refreshes it
// as needed.
func AuthOptions(ctx context.Context, credentialsFile, tokenFile string) ([]option.ClientOption, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	if tokenFile == "" {
		creds, err := google.CredentialsFromJSON(ctx, b, gdrive.DriveScope)
		if err != nil {
			return nil, fmt.Errorf("parse service account credentials: %w", err)
		}
		return []option.ClientOption{option.WithCredentials(creds)}, nil
	}

	conf, err := google.ConfigFromJSON(b, gdrive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client credentials: %w", err)
	}
	tok, err := readToken(tokenFile)
	if err != nil {
		return nil, err
	}
	return []option.ClientOption{option.WithTokenSource(conf.TokenSource(ctx, tok))}, nil
}

func readToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(b, tok); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return tok, nil
}
