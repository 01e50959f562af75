package repository

import (
	"context"
	"fmt"

	"aistudio/core/auth"
	"aistudio/model"
)

// SeedDemoUser makes sure the demo user exists and returns it. Projects
// created by the UI without a session belong to this user.
func SeedDemoUser(ctx context.Context, store UserRepository, username, password string) (*model.User, error) {
	existing, err := store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up demo user: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user, err := store.CreateUser(ctx, &model.User{Username: username, PasswordHash: hash})
	if err != nil {
		return nil, fmt.Errorf("failed to create demo user: %w", err)
	}
	return user, nil
}
