package firebase

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"firebase.google.com/go/v4/messaging"
	"firebase.google.com/go/v4/storage"
	"github.com/anonto42/dank-memes/backend/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Settings selects the project and the resources the app talks to
type Settings struct {
	CredentialsPath string
	ProjectID       string
	DatabaseURL     string
	StorageBucket   string
}

// App holds the initialized Firebase app. Service clients are created on demand.
type App struct {
	FirebaseApp *firebase.App
}

// InitFirebase initializes the Firebase application. Without a credentials
// path the app uses Application Default Credentials.
func InitFirebase(ctx context.Context, s Settings) (*App, error) {
	var opts []option.ClientOption
	if s.CredentialsPath != "" {
		// Check if the credentials file exists
		if _, err := os.Stat(s.CredentialsPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("Firebase credentials file not found at %s", s.CredentialsPath)
		}
		opts = append(opts, option.WithCredentialsFile(s.CredentialsPath))
	}

	conf := &firebase.Config{
		ProjectID:     s.ProjectID,
		DatabaseURL:   s.DatabaseURL,
		StorageBucket: s.StorageBucket,
	}
	firebaseApp, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	logger.Log.Info("Firebase app initialized", zap.String("project_id", s.ProjectID))
	return &App{FirebaseApp: firebaseApp}, nil
}

// Firestore returns a Firestore client for the app's project
func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	client, err := a.FirebaseApp.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %w", err)
	}
	return client, nil
}

// Messaging returns a Cloud Messaging client
func (a *App) Messaging(ctx context.Context) (*messaging.Client, error) {
	client, err := a.FirebaseApp.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting messaging client: %w", err)
	}
	return client, nil
}

// Database returns a Realtime Database client for the configured DatabaseURL
func (a *App) Database(ctx context.Context) (*db.Client, error) {
	client, err := a.FirebaseApp.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting realtime database client: %w", err)
	}
	return client, nil
}

// Storage returns a Cloud Storage client bound to the configured bucket
func (a *App) Storage(ctx context.Context) (*storage.Client, error) {
	client, err := a.FirebaseApp.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting storage client: %w", err)
	}
	return client, nil
}
