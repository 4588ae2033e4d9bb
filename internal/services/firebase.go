package services

import (
	"context"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// InitFirebase initializes the Firebase Admin SDK and returns an auth client.
// When no credentials file exists at credPath, Application Default Credentials
// are used (the usual setup on Cloud Run / GCE).
func InitFirebase(ctx context.Context, credPath string) (*auth.Client, error) {
	var opts []option.ClientOption
	if _, err := os.Stat(credPath); err == nil {
		opts = append(opts, option.WithCredentialsFile(credPath))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, err
	}
	return app.Auth(ctx)
}
