package bootstrap

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
)

// InitFirebase returns the auth client that verifies ID tokens and their role
// claim. An empty projectID falls back to the ambient credentials.
func InitFirebase(ctx context.Context, projectID string) (*auth.Client, error) {
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return app.Auth(ctx)
}
