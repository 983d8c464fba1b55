package db

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// ConnectFirestore opens a Firestore client. When FIRESTORE_EMULATOR_HOST is
// set the client talks to the emulator without credentials.
func ConnectFirestore(ctx context.Context, projectID string) (*firestore.Client, error) {
	var opts []option.ClientOption
	if os.Getenv("FIRESTORE_EMULATOR_HOST") != "" {
		opts = append(opts, option.WithoutAuthentication())
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client for project %s: %w", projectID, err)
	}
	return client, nil
}
